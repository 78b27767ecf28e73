// Command salon-stats prints the salon statistics overview.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/kendall-kelly/beauty-salon-api/services"
	"go.uber.org/zap"
)

const (
	formatConsole = "console"
	formatJSON    = "json"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "salon-stats:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("salon-stats", flag.ContinueOnError)
	format := fs.String("format", formatConsole, "output format: console or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format != formatConsole && *format != formatJSON {
		return fmt.Errorf("unknown format %q (want %s or %s)", *format, formatConsole, formatJSON)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel, cfg.GoEnv)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	config.SetLogger(logger)

	if err := config.ConnectDatabase(cfg); err != nil {
		return err
	}
	if sqlDB, err := config.GetDB().DB(); err == nil {
		defer sqlDB.Close()
	}

	stats, err := services.NewStatsService(config.GetDB()).Collect(ctx)
	if err != nil {
		return err
	}
	logger.Debug("statistics collected", zap.Int64("bookings", stats.Bookings.Total))

	return render(out, *format, stats)
}

func render(w io.Writer, format string, stats *services.Statistics) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	return renderConsole(w, stats)
}

func renderConsole(w io.Writer, stats *services.Statistics) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Salon statistics (%s)\n\n", stats.GeneratedAt.Format("2006-01-02 15:04 MST"))

	fmt.Fprintln(tw, "BOOKINGS")
	fmt.Fprintf(tw, "  total\t%d\n", stats.Bookings.Total)
	for _, status := range models.BookingStatuses {
		fmt.Fprintf(tw, "  %s\t%d\n", status, stats.Bookings.ByStatus[status])
	}
	fmt.Fprintf(tw, "  upcoming (30 days)\t%d\n\n", stats.Bookings.Upcoming)

	fmt.Fprintln(tw, "MASTERS")
	fmt.Fprintf(tw, "  total\t%d\n", stats.Masters.Total)
	fmt.Fprintf(tw, "  with bookings\t%d\n", stats.Masters.WithBookings)
	fmt.Fprintf(tw, "  average experience\t%.1f years\n", stats.Masters.AverageExperience)
	fmt.Fprintf(tw, "  experienced\t%d\n\n", stats.Masters.Experienced)

	fmt.Fprintln(tw, "SERVICES")
	fmt.Fprintf(tw, "  total\t%d\n", stats.Services.Total)
	fmt.Fprintf(tw, "  average price\t%s\n", stats.Services.AveragePrice.StringFixed(2))
	for i, u := range stats.Services.MostBooked {
		fmt.Fprintf(tw, "  #%d %s\t%d bookings\n", i+1, u.Title, u.Bookings)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "REVIEWS")
	fmt.Fprintf(tw, "  total\t%d\n", stats.Reviews.Total)
	fmt.Fprintf(tw, "  average rating\t%.2f\n", stats.Reviews.AverageRating)
	fmt.Fprintf(tw, "  rated 4 or higher\t%d\n", stats.Reviews.HighRated)
	fmt.Fprintf(tw, "  with comments\t%d\n\n", stats.Reviews.WithComments)

	fmt.Fprintln(tw, "USERS")
	fmt.Fprintf(tw, "  total\t%d\n", stats.Users.Total)
	fmt.Fprintf(tw, "  clients\t%d\n", stats.Users.Clients)
	fmt.Fprintf(tw, "  admins\t%d\n", stats.Users.Admins)
	fmt.Fprintf(tw, "  with bookings\t%d\n\n", stats.Users.WithBookings)

	fmt.Fprintln(tw, "LAST 30 DAYS")
	fmt.Fprintf(tw, "  new bookings\t%d\n", stats.Recent.Bookings)
	fmt.Fprintf(tw, "  new reviews\t%d\n", stats.Recent.Reviews)
	fmt.Fprintf(tw, "  new users\t%d\n", stats.Recent.Users)

	return tw.Flush()
}

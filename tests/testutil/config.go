package testutil

import (
	"testing"

	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/stretchr/testify/require"
)

// LoadTestConfig loads the configuration of a test run: GO_ENV=test, an
// in-memory SQLite database and a fake Auth0 tenant. The variables are
// restored when t finishes.
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	t.Setenv("GO_ENV", "test")
	t.Setenv("DATABASE_URL", "sqlite::memory:")
	t.Setenv("AUTH0_DOMAIN", "test.auth0.com")
	t.Setenv("AUTH0_AUDIENCE", "https://api.test.com")
	t.Setenv("PORT", "8080")
	t.Setenv("AWS_S3_BUCKET", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.True(t, cfg.IsTest())
	return cfg
}

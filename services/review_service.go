package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kendall-kelly/beauty-salon-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	minRating        = 0
	maxRating        = 5
	minCommentLength = 10
)

// ReviewInput holds the fields of a new review
type ReviewInput struct {
	UserID   *uint
	MasterID uint
	Rating   int
	Comment  *string
}

// ReviewFilter narrows ListByMaster
type ReviewFilter struct {
	MinRating *int
	MaxRating *int
}

// ReviewService records client reviews of masters. Reviews are append-only.
type ReviewService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewReviewService creates a review service backed by db
func NewReviewService(db *gorm.DB, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{db: db, logger: logger}
}

// Create adds a review. Non-privileged actors always review as themselves.
func (s *ReviewService) Create(ctx context.Context, actor Actor, in ReviewInput) (*models.Review, error) {
	if in.Rating < minRating || in.Rating > maxRating {
		return nil, invalid("rating", fmt.Sprintf("must be between %d and %d", minRating, maxRating))
	}

	var comment *string
	if in.Comment != nil {
		if trimmed := strings.TrimSpace(*in.Comment); trimmed != "" {
			if utf8.RuneCountInString(trimmed) < minCommentLength {
				return nil, invalid("comment", fmt.Sprintf("must be at least %d characters", minCommentLength))
			}
			comment = &trimmed
		}
	}

	review := models.Review{MasterID: in.MasterID, Rating: in.Rating, Comment: comment}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID, err := s.reviewer(tx, actor, in.UserID)
		if err != nil {
			return err
		}
		review.UserID = userID

		if err := exists(tx, &models.Master{}, "master", in.MasterID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&review).Error; err != nil {
			return fmt.Errorf("create review: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("review created",
		zap.Uint("review_id", review.ID),
		zap.Uint("master_id", review.MasterID),
		zap.Int("rating", review.Rating),
	)
	return &review, nil
}

// ListByMaster returns the reviews of a master, newest first
func (s *ReviewService) ListByMaster(ctx context.Context, masterID uint, filter ReviewFilter) ([]models.Review, error) {
	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Master{}, "master", masterID); err != nil {
		return nil, err
	}

	query := db.Where("master_id = ?", masterID)
	if filter.MinRating != nil {
		query = query.Where("rating >= ?", *filter.MinRating)
	}
	if filter.MaxRating != nil {
		query = query.Where("rating <= ?", *filter.MaxRating)
	}

	var reviews []models.Review
	if err := query.Preload("User").Order("created_at DESC").Order("id DESC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews of master %d: %w", masterID, err)
	}
	return reviews, nil
}

func (s *ReviewService) reviewer(tx *gorm.DB, actor Actor, requested *uint) (uint, error) {
	if actor.Privileged && requested != nil {
		if err := exists(tx, &models.User{}, "user", *requested); err != nil {
			return 0, err
		}
		return *requested, nil
	}
	user, err := resolveIdentity(tx, actor.Email)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

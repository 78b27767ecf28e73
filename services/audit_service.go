package services

import (
	"context"
	"fmt"
	"time"

	"github.com/kendall-kelly/beauty-salon-api/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tracked is a fixed set of audited fields captured before a mutation
type Tracked[S any] interface {
	Diff(next S) models.FieldChanges
	Removed() models.FieldChanges
}

// ChangesFor computes the change map for action.
// Created records carry no changes, updates diff old against next,
// and deletions record every tracked field as removed.
func ChangesFor[S Tracked[S]](action models.ChangeAction, old, next *S) models.FieldChanges {
	switch {
	case action == models.ChangeActionUpdated && old != nil && next != nil:
		return (*old).Diff(*next)
	case action == models.ChangeActionDeleted && old != nil:
		return (*old).Removed()
	default:
		return models.FieldChanges{}
	}
}

// LookupFunc loads the current state of a tracked entity.
// It returns (nil, nil) when the entity no longer exists.
type LookupFunc func(db *gorm.DB, id uint) (interface{}, error)

// HistoryEntry is a change record together with its subject, when it still exists
type HistoryEntry struct {
	models.ChangeHistory
	Subject interface{} `json:"subject"`
}

// HistoryFilter narrows ListHistory. Zero values match everything.
type HistoryFilter struct {
	EntityType models.EntityType
	EntityID   uint
	Limit      int
}

// AuditService writes and reads the append-only change history
type AuditService struct {
	db      *gorm.DB
	logger  *zap.Logger
	now     func() time.Time
	lookups map[models.EntityType]LookupFunc
}

// NewAuditService creates an audit service with lookups for bookings and masters
func NewAuditService(db *gorm.DB, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{
		db:      db,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		lookups: make(map[models.EntityType]LookupFunc),
	}
	s.RegisterLookup(models.EntityTypeBooking, func(db *gorm.DB, id uint) (interface{}, error) {
		var booking models.Booking
		return lookupRow(db, &booking, id)
	})
	s.RegisterLookup(models.EntityTypeMaster, func(db *gorm.DB, id uint) (interface{}, error) {
		var master models.Master
		return lookupRow(db, &master, id)
	})
	return s
}

// RegisterLookup sets the loader used to resolve subjects of entityType
func (s *AuditService) RegisterLookup(entityType models.EntityType, fn LookupFunc) {
	s.lookups[entityType] = fn
}

// Record appends a history record using tx, so it commits or rolls back with the mutation
func (s *AuditService) Record(tx *gorm.DB, ref models.EntityRef, action models.ChangeAction, actor string, changes models.FieldChanges) (*models.ChangeHistory, error) {
	if !ref.Type.Valid() {
		return nil, invalid("entity_type", fmt.Sprintf("unknown entity type %q", ref.Type))
	}
	if changes == nil {
		changes = models.FieldChanges{}
	}

	record := models.ChangeHistory{
		EntityType: ref.Type,
		EntityID:   ref.ID,
		Action:     action,
		ChangedBy:  actor,
		Changes:    datatypes.NewJSONType(changes),
		Timestamp:  s.now(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("record %s history for %s %d: %w", action, ref.Type, ref.ID, err)
	}

	s.logger.Info("history recorded",
		zap.String("entity_type", string(ref.Type)),
		zap.Uint("entity_id", ref.ID),
		zap.String("action", string(action)),
		zap.String("changed_by", actor),
		zap.Int("changed_fields", len(changes)),
	)
	return &record, nil
}

// RecordChange diffs old against next for action and appends the result
func RecordChange[S Tracked[S]](s *AuditService, tx *gorm.DB, ref models.EntityRef, action models.ChangeAction, actor string, old, next *S) (*models.ChangeHistory, error) {
	return s.Record(tx, ref, action, actor, ChangesFor(action, old, next))
}

// ListHistory returns matching records newest first
func (s *AuditService) ListHistory(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	if filter.EntityType != "" && !filter.EntityType.Valid() {
		return nil, invalid("entity_type", fmt.Sprintf("unknown entity type %q", filter.EntityType))
	}

	db := s.db.WithContext(ctx)
	query := db.Model(&models.ChangeHistory{})
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != 0 {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []models.ChangeHistory
	if err := query.Order("timestamp DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		subject, err := s.Lookup(db, record.Ref())
		if err != nil {
			return nil, err
		}
		entries = append(entries, HistoryEntry{ChangeHistory: record, Subject: subject})
	}
	return entries, nil
}

// Lookup resolves ref to the entity it points at, or nil if it is gone
func (s *AuditService) Lookup(db *gorm.DB, ref models.EntityRef) (interface{}, error) {
	fn, ok := s.lookups[ref.Type]
	if !ok {
		return nil, nil
	}
	subject, err := fn(db, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup %s %d: %w", ref.Type, ref.ID, err)
	}
	return subject, nil
}

func lookupRow[T any](db *gorm.DB, dest *T, id uint) (interface{}, error) {
	result := db.Limit(1).Find(dest, id)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return dest, nil
}

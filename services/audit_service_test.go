package services

import (
	"context"
	"testing"
	"time"

	"github.com/kendall-kelly/beauty-salon-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestChangesFor(t *testing.T) {
	old := models.MasterSnapshot{FullName: "Anna", Specialization: "Nails", ExperienceYears: 1}
	next := models.MasterSnapshot{FullName: "Anna", Specialization: "Nails", ExperienceYears: 2}

	tests := []struct {
		name     string
		action   models.ChangeAction
		old      *models.MasterSnapshot
		next     *models.MasterSnapshot
		expected models.FieldChanges
	}{
		{"created", models.ChangeActionCreated, nil, &next, models.FieldChanges{}},
		{"updated", models.ChangeActionUpdated, &old, &next, models.FieldChanges{"experience_years": {Old: "1", New: "2"}}},
		{"updated without changes", models.ChangeActionUpdated, &old, &old, models.FieldChanges{}},
		{"deleted", models.ChangeActionDeleted, &old, nil, old.Removed()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ChangesFor(tt.action, tt.old, tt.next))
		})
	}
}

func TestAuditService_Record(t *testing.T) {
	db := setupTestDB(t)
	audit := NewAuditService(db, nil)
	fixed := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	audit.now = func() time.Time { return fixed }

	ref := models.EntityRef{Type: models.EntityTypeMaster, ID: 7}
	record, err := audit.Record(db, ref, models.ChangeActionCreated, "", nil)
	require.NoError(t, err)

	var stored models.ChangeHistory
	require.NoError(t, db.First(&stored, record.ID).Error)
	assert.Equal(t, ref, stored.Ref())
	assert.Equal(t, models.ChangeActionCreated, stored.Action)
	assert.Equal(t, "", stored.ChangedBy, "actor may be empty")
	assert.NotNil(t, stored.FieldChanges())
	assert.Empty(t, stored.FieldChanges())
	assert.True(t, fixed.Equal(stored.Timestamp))
}

func TestAuditService_RecordRejectsUnknownEntityType(t *testing.T) {
	db := setupTestDB(t)
	audit := NewAuditService(db, nil)

	_, err := audit.Record(db, models.EntityRef{Type: "review", ID: 1}, models.ChangeActionCreated, "x", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuditService_ListHistoryNewestFirstWithSubject(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	audit := NewAuditService(db, nil)

	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	step := 0
	audit.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	masterRef := models.EntityRef{Type: models.EntityTypeMaster, ID: f.master.ID}
	goneRef := models.EntityRef{Type: models.EntityTypeBooking, ID: 99}
	_, err := audit.Record(db, masterRef, models.ChangeActionCreated, "admin@salon.test", nil)
	require.NoError(t, err)
	_, err = audit.Record(db, goneRef, models.ChangeActionDeleted, "admin@salon.test", models.FieldChanges{"status": {Old: "pending"}})
	require.NoError(t, err)
	_, err = audit.Record(db, masterRef, models.ChangeActionUpdated, "admin@salon.test", models.FieldChanges{"full_name": {Old: "A", New: "B"}})
	require.NoError(t, err)

	entries, err := audit.ListHistory(context.Background(), HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.ChangeActionUpdated, entries[0].Action)
	assert.Equal(t, models.ChangeActionDeleted, entries[1].Action)
	assert.Equal(t, models.ChangeActionCreated, entries[2].Action)

	master, ok := entries[0].Subject.(*models.Master)
	require.True(t, ok, "master subject should resolve")
	assert.Equal(t, f.master.FullName, master.FullName)
	assert.Nil(t, entries[1].Subject, "deleted booking has no subject")

	onlyMaster, err := audit.ListHistory(context.Background(), HistoryFilter{
		EntityType: models.EntityTypeMaster,
		EntityID:   f.master.ID,
	})
	require.NoError(t, err)
	assert.Len(t, onlyMaster, 2)

	limited, err := audit.ListHistory(context.Background(), HistoryFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = audit.ListHistory(context.Background(), HistoryFilter{EntityType: "service"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuditService_RegisterLookup(t *testing.T) {
	db := setupTestDB(t)
	audit := NewAuditService(db, nil)
	audit.RegisterLookup(models.EntityTypeBooking, func(db *gorm.DB, id uint) (interface{}, error) {
		return map[string]uint{"id": id}, nil
	})

	subject, err := audit.Lookup(db, models.EntityRef{Type: models.EntityTypeBooking, ID: 5})
	require.NoError(t, err)
	assert.Equal(t, map[string]uint{"id": 5}, subject)
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// EntityType names a kind of tracked entity
type EntityType string

const (
	EntityTypeBooking EntityType = "booking"
	EntityTypeMaster  EntityType = "master"
)

// Valid reports whether t is a tracked entity type
func (t EntityType) Valid() bool {
	return t == EntityTypeBooking || t == EntityTypeMaster
}

// ChangeAction is the kind of mutation a history record describes
type ChangeAction string

const (
	ChangeActionCreated ChangeAction = "created"
	ChangeActionUpdated ChangeAction = "updated"
	ChangeActionDeleted ChangeAction = "deleted"
)

// EntityRef points at a tracked entity without owning it.
// The entity may no longer exist.
type EntityRef struct {
	Type EntityType `json:"entity_type"`
	ID   uint       `json:"entity_id"`
}

// FieldChange is the before/after text of one field
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// FieldChanges maps a field name to its change
type FieldChanges map[string]FieldChange

// Track records field when old and new differ
func (c FieldChanges) Track(field, old, new string) {
	if old != new {
		c[field] = FieldChange{Old: old, New: new}
	}
}

// ChangeHistory is an append-only audit record of a create, update or delete
type ChangeHistory struct {
	ID         uint                             `gorm:"primaryKey" json:"id"`
	EntityType EntityType                       `gorm:"type:varchar(32);not null;index:idx_change_history_entity" json:"entity_type"`
	EntityID   uint                             `gorm:"not null;index:idx_change_history_entity" json:"entity_id"`
	Action     ChangeAction                     `gorm:"type:varchar(20);not null" json:"action"`
	ChangedBy  string                           `gorm:"type:varchar(255)" json:"changed_by"`
	Changes    datatypes.JSONType[FieldChanges] `gorm:"not null" json:"changes"`
	Timestamp  time.Time                        `gorm:"not null;index" json:"timestamp"`
}

// TableName specifies the table name for the ChangeHistory model
func (ChangeHistory) TableName() string {
	return "change_history"
}

// Ref returns the entity this record describes
func (h *ChangeHistory) Ref() EntityRef {
	return EntityRef{Type: h.EntityType, ID: h.EntityID}
}

// FieldChanges returns the decoded change map (never nil)
func (h *ChangeHistory) FieldChanges() FieldChanges {
	changes := h.Changes.Data()
	if changes == nil {
		return FieldChanges{}
	}
	return changes
}

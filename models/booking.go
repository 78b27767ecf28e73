package models

import (
	"time"
)

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BookingStatuses lists every valid status in display order
var BookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusCompleted,
	BookingStatusCancelled,
}

// Valid reports whether s is one of the four known statuses
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Booking is a client's appointment with a master for a service
type Booking struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	User          *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	MasterID      uint          `gorm:"not null;index" json:"master_id"`
	Master        *Master       `gorm:"foreignKey:MasterID;constraint:OnDelete:CASCADE" json:"master,omitempty"`
	ServiceID     uint          `gorm:"not null;index" json:"service_id"`
	Service       *Service      `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE" json:"service,omitempty"`
	AppointmentAt time.Time     `gorm:"not null;index" json:"appointment_at"`
	Status        BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// BookingSnapshot holds the booking fields tracked by the change history
type BookingSnapshot struct {
	Status        BookingStatus
	AppointmentAt time.Time
	MasterID      uint
	ServiceID     uint
}

// Snapshot captures the tracked fields of b
func (b *Booking) Snapshot() BookingSnapshot {
	return BookingSnapshot{
		Status:        b.Status,
		AppointmentAt: b.AppointmentAt,
		MasterID:      b.MasterID,
		ServiceID:     b.ServiceID,
	}
}

// Diff returns the tracked fields whose value differs in next
func (s BookingSnapshot) Diff(next BookingSnapshot) FieldChanges {
	changes := FieldChanges{}
	changes.Track("status", string(s.Status), string(next.Status))
	if !s.AppointmentAt.Equal(next.AppointmentAt) {
		changes["appointment_at"] = FieldChange{Old: formatTime(s.AppointmentAt), New: formatTime(next.AppointmentAt)}
	}
	changes.Track("master_id", formatUint(s.MasterID), formatUint(next.MasterID))
	changes.Track("service_id", formatUint(s.ServiceID), formatUint(next.ServiceID))
	return changes
}

// Removed records every tracked field as gone
func (s BookingSnapshot) Removed() FieldChanges {
	return FieldChanges{
		"status":         {Old: string(s.Status)},
		"appointment_at": {Old: formatTime(s.AppointmentAt)},
		"master_id":      {Old: formatUint(s.MasterID)},
		"service_id":     {Old: formatUint(s.ServiceID)},
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

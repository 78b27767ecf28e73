package models

import (
	"strconv"
	"time"
)

// Master is a salon specialist that clients book
type Master struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	FullName        string    `gorm:"type:varchar(255);not null;index" json:"full_name"`
	Specialization  string    `gorm:"type:varchar(255);not null" json:"specialization"`
	ExperienceYears uint      `gorm:"not null;default:0" json:"experience_years"`
	ImageID         *uint     `gorm:"index" json:"image_id"`
	Image           *Image    `gorm:"foreignKey:ImageID;constraint:OnDelete:SET NULL" json:"image,omitempty"`
	Services        []Service `gorm:"-" json:"services,omitempty"` // loaded on demand through master_services
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Master model
func (Master) TableName() string {
	return "masters"
}

// MasterService links a master to a service they perform.
// The (master_id, service_id) pair is unique.
type MasterService struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	MasterID  uint `gorm:"not null;uniqueIndex:idx_master_service" json:"master_id"`
	ServiceID uint `gorm:"not null;uniqueIndex:idx_master_service;index" json:"service_id"`

	Master  *Master  `gorm:"foreignKey:MasterID;constraint:OnDelete:CASCADE" json:"-"`
	Service *Service `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for the MasterService model
func (MasterService) TableName() string {
	return "master_services"
}

// MasterSnapshot holds the master fields tracked by the change history
type MasterSnapshot struct {
	FullName        string
	Specialization  string
	ExperienceYears uint
}

// Snapshot captures the tracked fields of m
func (m *Master) Snapshot() MasterSnapshot {
	return MasterSnapshot{
		FullName:        m.FullName,
		Specialization:  m.Specialization,
		ExperienceYears: m.ExperienceYears,
	}
}

// Diff returns the tracked fields whose value differs in next
func (s MasterSnapshot) Diff(next MasterSnapshot) FieldChanges {
	changes := FieldChanges{}
	changes.Track("full_name", s.FullName, next.FullName)
	changes.Track("specialization", s.Specialization, next.Specialization)
	changes.Track("experience_years", formatUint(s.ExperienceYears), formatUint(next.ExperienceYears))
	return changes
}

// Removed records every tracked field as gone
func (s MasterSnapshot) Removed() FieldChanges {
	return FieldChanges{
		"full_name":        {Old: s.FullName},
		"specialization":   {Old: s.Specialization},
		"experience_years": {Old: formatUint(s.ExperienceYears)},
	}
}

func formatUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

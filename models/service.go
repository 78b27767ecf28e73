package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service is an offering of the salon (haircut, manicure, ...)
type Service struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Title           string          `gorm:"type:varchar(255);not null;index" json:"title"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	RelatedServices []Service       `gorm:"-" json:"related_services,omitempty"` // loaded on demand from related_services
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Service model
func (Service) TableName() string {
	return "services"
}

// RelatedService is one direction of the symmetric "related services" relation.
// Both (a, b) and (b, a) rows are stored.
type RelatedService struct {
	ServiceID        uint `gorm:"primaryKey" json:"service_id"`
	RelatedServiceID uint `gorm:"primaryKey;index" json:"related_service_id"`

	Service        *Service `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE" json:"-"`
	RelatedService *Service `gorm:"foreignKey:RelatedServiceID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for the RelatedService model
func (RelatedService) TableName() string {
	return "related_services"
}

package models

import "gorm.io/gorm"

// AutoMigrate creates or updates the schema for every salon model
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Image{},
		&Service{},
		&RelatedService{},
		&Master{},
		&MasterService{},
		&Booking{},
		&Review{},
		&ChangeHistory{},
	)
}

package models

import "time"

// Image is a stored picture (master portraits)
type Image struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StorageKey string    `gorm:"type:varchar(512);not null;uniqueIndex" json:"storage_key"` // S3 key or local file name
	URL        string    `gorm:"-" json:"url,omitempty"`                                    // computed, presigned or local URL
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

// TableName specifies the table name for the Image model
func (Image) TableName() string {
	return "images"
}

package models

import "time"

// Review is a client's rating of a master. Reviews are never edited.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	MasterID  uint      `gorm:"not null;index" json:"master_id"`
	Master    *Master   `gorm:"foreignKey:MasterID;constraint:OnDelete:CASCADE" json:"-"`
	Rating    int       `gorm:"not null;check:chk_reviews_rating,rating >= 0 AND rating <= 5" json:"rating"`
	Comment   *string   `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the Review model
func (Review) TableName() string {
	return "reviews"
}

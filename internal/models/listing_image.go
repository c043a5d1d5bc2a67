package models

import "time"

// ListingImage represents an image attached to a listing
type ListingImage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID string    `gorm:"type:varchar(36);not null;index" json:"listing_id"`
	ImageURL  string    `gorm:"type:text;not null" json:"image_url"`
	SortOrder int       `gorm:"not null;default:0;index" json:"sort_order"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for ListingImage
func (ListingImage) TableName() string {
	return "listing_images"
}

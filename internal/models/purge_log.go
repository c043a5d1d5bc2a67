package models

import "time"

// PurgeLog represents a record of hard-deleted listings
type PurgeLog struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID       string    `gorm:"type:varchar(36);not null;index" json:"listing_id"`
	Title           string    `gorm:"type:text" json:"title"`
	OwnerID         string    `gorm:"type:varchar(36)" json:"owner_id"`
	RejectionReason string    `gorm:"type:text" json:"rejection_reason"`
	RejectedUntil   time.Time `gorm:"type:datetime" json:"rejected_until"`
	PurgedAt        time.Time `gorm:"type:datetime;not null;autoCreateTime;index" json:"purged_at"`
	Reason          string    `gorm:"type:varchar(50);not null" json:"reason"`
}

// TableName specifies the table name
func (PurgeLog) TableName() string {
	return "purge_logs"
}

// PurgeReason constants
const (
	PurgeReasonExpired = "rejection_expired"
	PurgeReasonOwner   = "owner_deletion"
)

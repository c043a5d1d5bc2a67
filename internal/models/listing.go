package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Listing struct {
	// 基本情報
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string `gorm:"type:text;not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	OwnerID     string `gorm:"type:varchar(36);not null;index" json:"owner_id"`

	// フィルタ用属性
	Price     int64      `gorm:"type:bigint;not null;index" json:"price"`
	Address   string     `gorm:"type:text" json:"address,omitempty"`
	City      string     `gorm:"type:varchar(100);index" json:"city,omitempty"`
	Beds      *int       `gorm:"type:int" json:"beds,omitempty"`
	Baths     *int       `gorm:"type:int" json:"baths,omitempty"`
	Sqft      *float64   `gorm:"type:decimal(10,2)" json:"sqft,omitempty"`
	Floors    *int       `gorm:"type:int" json:"floors,omitempty"`
	YearBuilt *int       `gorm:"type:int" json:"year_built,omitempty"`
	Amenities StringList `gorm:"type:text" json:"amenities,omitempty"`

	// 審査ステータス管理
	Status               ApprovalStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_status_purge,priority:1" json:"status"`
	RejectionReason      *string        `gorm:"type:text" json:"rejection_reason,omitempty"`
	ScheduledForDeletion *time.Time     `gorm:"type:datetime;index:idx_status_purge,priority:2" json:"scheduled_for_deletion,omitempty"`

	Views int64 `gorm:"type:bigint;not null;default:0" json:"views"`

	// タイムスタンプ
	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime;index:idx_created_at,sort:desc" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// ApprovalStatus は掲載の審査ステータス
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is one of the known approval statuses.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// TableName はテーブル名を明示的に指定
func (Listing) TableName() string {
	return "listings"
}

// IsApproved は掲載が公開済みかどうか
func (l *Listing) IsApproved() bool {
	return l.Status == StatusApproved
}

// MarkApproved moves the listing to approved and clears any rejection
// metadata left over from a prior review cycle.
func (l *Listing) MarkApproved() {
	l.Status = StatusApproved
	l.RejectionReason = nil
	l.ScheduledForDeletion = nil
}

// MarkRejected moves the listing to rejected and arms the purge timer.
// Rejection metadata is present exactly while the listing is rejected.
func (l *Listing) MarkRejected(reason string, purgeAt time.Time) {
	l.Status = StatusRejected
	l.RejectionReason = &reason
	l.ScheduledForDeletion = &purgeAt
}

// MarkPending resets a rejected listing back into the review queue.
func (l *Listing) MarkPending() {
	l.Status = StatusPending
	l.RejectionReason = nil
	l.ScheduledForDeletion = nil
}

// PurgeDue reports whether the rejection grace period has elapsed.
func (l *Listing) PurgeDue(now time.Time) bool {
	return l.Status == StatusRejected &&
		l.ScheduledForDeletion != nil &&
		!now.Before(*l.ScheduledForDeletion)
}

// RemainingDeletion returns the time left before the listing is purged,
// floored to zero once the deadline has passed. Zero duration and false
// are returned for listings that are not rejected.
func (l *Listing) RemainingDeletion(now time.Time) (time.Duration, bool) {
	if l.Status != StatusRejected || l.ScheduledForDeletion == nil {
		return 0, false
	}
	remaining := l.ScheduledForDeletion.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// FormatRemaining renders a purge countdown for clients.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "deleting soon"
	}
	d = d.Round(time.Minute)
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// StringList stores an ordered set of strings as a JSON column so the same
// model works on both MySQL and PostgreSQL.
type StringList []string

func (sl StringList) Value() (driver.Value, error) {
	if len(sl) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(sl))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (sl *StringList) Scan(src interface{}) error {
	if src == nil {
		*sl = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if len(data) == 0 {
		*sl = nil
		return nil
	}
	return json.Unmarshal(data, (*[]string)(sl))
}

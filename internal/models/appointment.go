package models

import "time"

// Appointment represents a scheduled property viewing request
type Appointment struct {
	ID          string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	ListingID   string            `gorm:"type:varchar(36);not null;index:idx_listing_status,priority:1;index:idx_listing_slot,priority:1" json:"listing_id"`
	RequesterID string            `gorm:"type:varchar(36);not null;index" json:"requester_id"`
	Date        string            `gorm:"type:varchar(10);not null;index:idx_listing_slot,priority:2" json:"date"`
	TimeSlot    string            `gorm:"type:varchar(5);not null;index:idx_listing_slot,priority:3" json:"time_slot"`
	Status      AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_listing_status,priority:2" json:"status"`
	MeetingLink string            `gorm:"type:text" json:"meeting_link,omitempty"`
	Notes       string            `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time         `gorm:"type:datetime;not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// AppointmentStatus は内見予約のステータス
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is one of the known appointment statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status change is allowed from s.
// Confirmed appointments still accept meeting-link updates.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentConfirmed || s == AppointmentCancelled
}

// TableName はテーブル名を明示的に指定
func (Appointment) TableName() string {
	return "appointments"
}

// Blocking reports whether the appointment still occupies its slot.
func (a *Appointment) Blocking() bool {
	return a.Status != AppointmentCancelled
}

// DateFormat is the wire and storage layout of appointment dates.
const DateFormat = "2006-01-02"

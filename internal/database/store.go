package database

import (
	"time"

	"estate-marketplace/internal/models"
)

// ListingFilters describes the query parameters accepted by ListListings.
type ListingFilters struct {
	Status   string
	OwnerID  string
	City     string
	MinPrice *int64
	MaxPrice *int64
	Limit    int
	Offset   int
}

// ListingTransition describes the target state of a listing status change.
// RejectionReason and ScheduledForDeletion are written as given, nil meaning
// cleared, so rejection metadata exists exactly while the listing is
// rejected.
type ListingTransition struct {
	To                   models.ApprovalStatus
	RejectionReason      *string
	ScheduledForDeletion *time.Time
}

// AppointmentTransition describes the target state of an appointment status
// change. A nil MeetingLink leaves the stored link untouched.
type AppointmentTransition struct {
	To          models.AppointmentStatus
	MeetingLink *string
}

// Store is the persistence boundary of the lifecycle core. Both the GORM
// MySQL implementation and the raw PostgreSQL implementation satisfy it,
// selected by configuration the same way the portal picks its database.
//
// Status transitions are compare-and-set: the update applies only if the
// stored status still matches the expected pre-state. A lost race surfaces
// as ConcurrentModificationError, a missing row as NotFoundError.
type Store interface {
	CreateListing(l *models.Listing, images []models.ListingImage) error
	GetListing(id string) (*models.Listing, error)
	GetListingImages(listingID string) ([]models.ListingImage, error)
	ListListings(f ListingFilters) ([]models.Listing, error)
	TransitionListing(id string, expect models.ApprovalStatus, t ListingTransition) (*models.Listing, error)
	// DeleteListing hard-deletes the listing and its images. It is
	// idempotent: deleting an absent id reports existed=false, not an error.
	DeleteListing(id string) (existed bool, err error)
	FindExpiredListings(now time.Time, limit int) ([]models.Listing, error)
	AddListingViews(id string, delta int64) error
	CountListingsByStatus() (map[models.ApprovalStatus]int64, error)

	CreatePurgeLog(pl *models.PurgeLog) error
	RecentPurgeLogs(limit int) ([]models.PurgeLog, error)

	// CreateAppointment inserts the appointment unless a non-cancelled
	// appointment already holds the same (listing, date, slot), in which
	// case it fails with SlotTakenError.
	CreateAppointment(a *models.Appointment) error
	GetAppointment(id string) (*models.Appointment, error)
	ListAppointmentsByListing(listingID string) ([]models.Appointment, error)
	AppointmentsOnDate(listingID, date string) ([]models.Appointment, error)
	TransitionAppointment(id string, expect models.AppointmentStatus, t AppointmentTransition) (*models.Appointment, error)

	Close() error
}

package appointments

import (
	"log"
	"strings"
	"time"

	"estate-marketplace/internal/clock"
	"estate-marketplace/internal/database"
	"estate-marketplace/internal/models"

	"github.com/google/uuid"
)

// BookingWindowDays bounds how far ahead a viewing can be requested.
const BookingWindowDays = 30

// Service validates viewing requests against availability rules and
// enforces the appointment status machine: pending -> confirmed|cancelled,
// with confirmed accepting meeting-link updates but no further status
// change.
type Service struct {
	store      database.Store
	clock      clock.Clock
	windowDays int
}

func NewService(store database.Store, clk clock.Clock, windowDays int) *Service {
	if windowDays <= 0 {
		windowDays = BookingWindowDays
	}
	return &Service{store: store, clock: clk, windowDays: windowDays}
}

// ScheduleRequest carries the parameters of a viewing request.
type ScheduleRequest struct {
	ListingID   string
	RequesterID string
	Date        string // "2006-01-02"
	TimeSlot    string // "HH:MM"
	Notes       string
}

// Schedule creates a pending appointment against an approved listing.
func (s *Service) Schedule(req ScheduleRequest) (*models.Appointment, error) {
	now := s.clock.Now()

	if !ValidSlot(req.TimeSlot) {
		return nil, &models.ValidationError{
			Field:   "time",
			Message: "must be a half-hour slot between 09:00 and 18:00",
		}
	}

	day, err := time.ParseInLocation(models.DateFormat, req.Date, now.Location())
	if err != nil {
		return nil, &models.ValidationError{Field: "date", Message: "must be formatted as YYYY-MM-DD"}
	}
	if isWeekend(day) {
		return nil, &models.ValidationError{Field: "date", Message: "viewings are available on weekdays only"}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return nil, &models.ValidationError{Field: "date", Message: "must not be in the past"}
	}
	if day.After(today.AddDate(0, 0, s.windowDays)) {
		return nil, &models.ValidationError{
			Field:   "date",
			Message: "must be within the booking window",
		}
	}

	// Same-day bookings must still be ahead of the wall clock.
	start, err := slotStart(req.Date, req.TimeSlot, now.Location())
	if err != nil {
		return nil, &models.ValidationError{Field: "time", Message: err.Error()}
	}
	if day.Equal(today) && !start.After(now) {
		return nil, &models.ValidationError{Field: "time", Message: "slot has already passed today"}
	}

	listing, err := s.store.GetListing(req.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsApproved() {
		return nil, &models.InvalidStateError{
			Entity:  "listing",
			ID:      req.ListingID,
			Current: string(listing.Status),
			Op:      "schedule a viewing for",
		}
	}

	appt := &models.Appointment{
		ID:          uuid.NewString(),
		ListingID:   req.ListingID,
		RequesterID: req.RequesterID,
		Date:        req.Date,
		TimeSlot:    req.TimeSlot,
		Status:      models.AppointmentPending,
		Notes:       req.Notes,
	}
	if err := s.store.CreateAppointment(appt); err != nil {
		return nil, err
	}

	log.Printf("Appointments: viewing %s requested on listing %s (%s %s)",
		appt.ID, appt.ListingID, appt.Date, appt.TimeSlot)
	return appt, nil
}

// SetStatus confirms or cancels a pending appointment. Only the owner of
// the target listing may call it.
func (s *Service) SetStatus(appointmentID, reviewerID string, status models.AppointmentStatus) (*models.Appointment, error) {
	if status != models.AppointmentConfirmed && status != models.AppointmentCancelled {
		return nil, &models.ValidationError{
			Field:   "status",
			Message: "must be \"confirmed\" or \"cancelled\"",
		}
	}

	appt, err := s.store.GetAppointment(appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(appt.ListingID, reviewerID); err != nil {
		return nil, err
	}
	if appt.Status != models.AppointmentPending {
		return nil, &models.InvalidTransitionError{
			Entity: "appointment",
			ID:     appointmentID,
			From:   string(appt.Status),
			To:     string(status),
		}
	}

	updated, err := s.store.TransitionAppointment(appointmentID, models.AppointmentPending, database.AppointmentTransition{
		To: status,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Appointments: viewing %s %s", appointmentID, status)
	return updated, nil
}

// SetMeetingLink attaches or overwrites the meeting link of a confirmed
// appointment. The link must be an absolute http or https URI.
func (s *Service) SetMeetingLink(appointmentID, reviewerID, link string) (*models.Appointment, error) {
	link = strings.TrimSpace(link)
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		return nil, &models.ValidationError{
			Field:   "meeting_link",
			Message: "must start with http:// or https://",
		}
	}

	appt, err := s.store.GetAppointment(appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(appt.ListingID, reviewerID); err != nil {
		return nil, err
	}
	if appt.Status != models.AppointmentConfirmed {
		return nil, &models.InvalidStateError{
			Entity:  "appointment",
			ID:      appointmentID,
			Current: string(appt.Status),
			Op:      "set the meeting link on",
		}
	}

	updated, err := s.store.TransitionAppointment(appointmentID, models.AppointmentConfirmed, database.AppointmentTransition{
		To:          models.AppointmentConfirmed,
		MeetingLink: &link,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Appointments: viewing %s meeting link updated", appointmentID)
	return updated, nil
}

// AvailableSlots returns the slot grid minus non-cancelled bookings for the
// given listing and date. Dates Schedule would refuse outright, weekends and
// anything outside the booking window, return no slots.
func (s *Service) AvailableSlots(listingID, date string) ([]string, error) {
	now := s.clock.Now()
	day, err := time.ParseInLocation(models.DateFormat, date, now.Location())
	if err != nil {
		return nil, &models.ValidationError{Field: "date", Message: "must be formatted as YYYY-MM-DD"}
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if isWeekend(day) || day.Before(today) || day.After(today.AddDate(0, 0, s.windowDays)) {
		return nil, nil
	}

	if _, err := s.store.GetListing(listingID); err != nil {
		return nil, err
	}

	booked, err := s.store.AppointmentsOnDate(listingID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(booked))
	for i := range booked {
		if booked[i].Blocking() {
			taken[booked[i].TimeSlot] = struct{}{}
		}
	}

	var free []string
	for _, slot := range SlotGrid() {
		if _, ok := taken[slot]; ok {
			continue
		}
		// Hide same-day slots already behind the wall clock.
		if day.Equal(today) {
			start, err := slotStart(date, slot, now.Location())
			if err != nil || !start.After(now) {
				continue
			}
		}
		free = append(free, slot)
	}
	return free, nil
}

// ListForListing returns every appointment on the listing, visible to its
// owner.
func (s *Service) ListForListing(listingID, callerID string) ([]models.Appointment, error) {
	if err := s.authorizeOwner(listingID, callerID); err != nil {
		return nil, err
	}
	return s.store.ListAppointmentsByListing(listingID)
}

func (s *Service) authorizeOwner(listingID, callerID string) error {
	listing, err := s.store.GetListing(listingID)
	if err != nil {
		return err
	}
	if listing.OwnerID != callerID {
		return &models.NotFoundError{Entity: "appointment listing", ID: listingID}
	}
	return nil
}

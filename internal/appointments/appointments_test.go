package appointments

import (
	"errors"
	"testing"
	"time"

	"estate-marketplace/internal/models"
	"estate-marketplace/internal/testfixtures"
)

// Reference clock is Wednesday 2025-06-04 10:00 UTC; the dates below are
// chosen relative to that.
const (
	dayThursday = "2025-06-05"
	daySaturday = "2025-06-07"
	dayPast     = "2025-06-03"
	dayFarOut   = "2025-07-07" // weekday beyond the 30-day window
	dayToday    = "2025-06-04"
)

func newTestService(t *testing.T) (*Service, *testfixtures.MemStore, *testfixtures.Clock) {
	t.Helper()
	store := testfixtures.NewMemStore()
	clk := testfixtures.NewClock(time.Time{})
	return NewService(store, clk, BookingWindowDays), store, clk
}

func TestSlotGrid(t *testing.T) {
	grid := SlotGrid()
	if len(grid) != 18 {
		t.Fatalf("expected 18 half-hour slots, got %d", len(grid))
	}
	if grid[0] != "09:00" || grid[len(grid)-1] != "17:30" {
		t.Fatalf("unexpected grid bounds: %s .. %s", grid[0], grid[len(grid)-1])
	}
}

func TestValidSlot(t *testing.T) {
	cases := []struct {
		slot string
		want bool
	}{
		{"09:00", true},
		{"17:30", true},
		{"13:30", true},
		{"18:00", false},
		{"08:30", false},
		{"09:15", false},
		{"9:00", false},
		{"10:00abc", false},
		{"10:00 ", false},
		{"banana", false},
	}
	for _, c := range cases {
		if got := ValidSlot(c.slot); got != c.want {
			t.Errorf("ValidSlot(%q) = %v, want %v", c.slot, got, c.want)
		}
	}
}

func TestScheduleHappyPath(t *testing.T) {
	svc, store, _ := newTestService(t)
	listing := testfixtures.ApprovedListing(store, "seller-1", "Sunny flat")

	appt, err := svc.Schedule(ScheduleRequest{
		ListingID:   listing.ID,
		RequesterID: "buyer-1",
		Date:        dayThursday,
		TimeSlot:    "10:00",
		Notes:       "second viewing",
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if appt.Status != models.AppointmentPending {
		t.Fatalf("new appointment must start pending, got %s", appt.Status)
	}
	if appt.ID == "" {
		t.Fatal("appointment has no id")
	}
	if appt.MeetingLink != "" {
		t.Fatal("pending appointment must not carry a meeting link")
	}
}

func TestScheduleValidation(t *testing.T) {
	svc, store, _ := newTestService(t)
	listing := testfixtures.ApprovedListing(store, "seller-1", "Sunny flat")

	cases := []struct {
		name string
		date string
		slot string
	}{
		{"off-grid time", dayThursday, "10:15"},
		{"trailing junk in time", dayThursday, "10:00abc"},
		{"after closing", dayThursday, "18:00"},
		{"weekend", daySaturday, "10:00"},
		{"past date", dayPast, "10:00"},
		{"beyond window", dayFarOut, "10:00"},
		{"same-day past slot", dayToday, "09:00"},
		{"bad date format", "05/06/2025", "10:00"},
	}
	for _, c := range cases {
		_, err := svc.Schedule(ScheduleRequest{
			ListingID:   listing.ID,
			RequesterID: "buyer-1",
			Date:        c.date,
			TimeSlot:    c.slot,
		})
		if !models.IsValidation(err) {
			t.Errorf("%s: expected ValidationError, got %v", c.name, err)
		}
	}

	// A same-day slot still ahead of the clock is fine.
	if _, err := svc.Schedule(ScheduleRequest{
		ListingID:   listing.ID,
		RequesterID: "buyer-1",
		Date:        dayToday,
		TimeSlot:    "10:30",
	}); err != nil {
		t.Fatalf("same-day future slot rejected: %v", err)
	}
}

func TestScheduleRequiresApprovedListing(t *testing.T) {
	svc, store, _ := newTestService(t)
	pending := testfixtures.PendingListing(store, "seller-1", "Not yet reviewed")

	_, err := svc.Schedule(ScheduleRequest{
		ListingID:   pending.ID,
		RequesterID: "buyer-1",
		Date:        dayThursday,
		TimeSlot:    "10:00",
	})
	var ise *models.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}

	_, err = svc.Schedule(ScheduleRequest{
		ListingID:   "no-such-listing",
		RequesterID: "buyer-1",
		Date:        dayThursday,
		TimeSlot:    "10:00",
	})
	if !models.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestScheduleDoubleBooking(t *testing.T) {
	svc, store, _ := newTestService(t)
	listing := testfixtures.ApprovedListing(store, "seller-1", "Sunny flat")

	req := ScheduleRequest{
		ListingID:   listing.ID,
		RequesterID: "buyer-1",
		Date:        dayThursday,
		TimeSlot:    "10:00",
	}
	first, err := svc.Schedule(req)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	req.RequesterID = "buyer-2"
	_, err = svc.Schedule(req)
	var ste *models.SlotTakenError
	if !errors.As(err, &ste) {
		t.Fatalf("expected SlotTakenError, got %v", err)
	}

	// A cancelled booking releases the slot.
	if _, err := svc.SetStatus(first.ID, "seller-1", models.AppointmentCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := svc.Schedule(req); err != nil {
		t.Fatalf("slot not released after cancellation: %v", err)
	}

	// A mangled spelling of a held slot must not slip past validation and
	// shadow the real one.
	req.TimeSlot = "10:00abc"
	if _, err := svc.Schedule(req); !models.IsValidation(err) {
		t.Fatalf("expected ValidationError for mangled slot, got %v", err)
	}
}

func TestSetStatusTransitions(t *testing.T) {
	svc, store, _ := newTestService(t)
	listing := testfixtures.ApprovedListing(store, "seller-1", "Sunny flat")

	appt, err := svc.Schedule(ScheduleRequest{
		ListingID:   listing.ID,
		RequesterID: "buyer-1",
		Date:        dayThursday,
		TimeSlot:    "10:00",
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	// Only the listing owner may decide.
	if _, err := svc.SetStatus(appt.ID, "buyer-1", models.AppointmentConfirmed); !models.IsNotFound(err) {
		t.Fatalf("expected NotFoundError for non-owner, got %v", err)
	}

	if _, err := svc.SetStatus(appt.ID, "seller-1", "finished"); !models.IsValidation(err) {
		t.Fatal("expected ValidationError for unknown status")
	}

	confirmed, err := svc.SetStatus(appt.ID, "seller-1", models.AppointmentConfirmed)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != models.AppointmentConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	// Decided appointments are terminal for SetStatus.
	var ite *models.InvalidTransitionError
	if _, err := svc.SetStatus(appt.ID, "seller-1", models.AppointmentCancelled); !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestSetMeetingLink(t *testing.T) {
	svc, store, _ := newTestService(t)
	listing := testfixtures.ApprovedListing(store, "seller-1", "Sunny flat")

	appt, err := svc.Schedule(ScheduleRequest{
		ListingID:   listing.ID,
		RequesterID: "buyer-1",
		Date:        dayThursday,
		TimeSlot:    "10:00",
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	// Link requires a confirmed appointment.
	var ise *models.InvalidStateError
	if _, err := svc.SetMeetingLink(appt.ID, "seller-1", "https://meet.example.com/abc"); !errors.As(err, &ise) {
		t.Fatalf("expected InvalidStateError while pending, got %v", err)
	}

	if _, err := svc.SetStatus(appt.ID, "seller-1", models.AppointmentConfirmed); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	if _, err := svc.SetMeetingLink(appt.ID, "seller-1", "ftp://meet.example.com/abc"); !models.IsValidation(err) {
		t.Fatal("expected ValidationError for non-http scheme")
	}

	updated, err := svc.SetMeetingLink(appt.ID, "seller-1", "https://meet.example.com/abc")
	if err != nil {
		t.Fatalf("set link failed: %v", err)
	}
	if updated.MeetingLink != "https://meet.example.com/abc" {
		t.Fatalf("link not stored: %q", updated.MeetingLink)
	}

	// Overwriting on a confirmed appointment is allowed.
	updated, err = svc.SetMeetingLink(appt.ID, "seller-1", "http://meet.example.com/new")
	if err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if updated.MeetingLink != "http://meet.example.com/new" {
		t.Fatalf("link not overwritten: %q", updated.MeetingLink)
	}
}

func TestAvailableSlots(t *testing.T) {
	svc, store, _ := newTestService(t)
	listing := testfixtures.ApprovedListing(store, "seller-1", "Sunny flat")

	free, err := svc.AvailableSlots(listing.ID, dayThursday)
	if err != nil {
		t.Fatalf("available slots failed: %v", err)
	}
	if len(free) != 18 {
		t.Fatalf("expected full grid, got %d slots", len(free))
	}

	if _, err := svc.Schedule(ScheduleRequest{
		ListingID:   listing.ID,
		RequesterID: "buyer-1",
		Date:        dayThursday,
		TimeSlot:    "10:00",
	}); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	free, err = svc.AvailableSlots(listing.ID, dayThursday)
	if err != nil {
		t.Fatalf("available slots failed: %v", err)
	}
	if len(free) != 17 {
		t.Fatalf("expected 17 slots after booking, got %d", len(free))
	}
	for _, slot := range free {
		if slot == "10:00" {
			t.Fatal("booked slot still offered")
		}
	}

	// Weekends have no grid at all.
	free, err = svc.AvailableSlots(listing.ID, daySaturday)
	if err != nil {
		t.Fatalf("weekend lookup failed: %v", err)
	}
	if len(free) != 0 {
		t.Fatalf("weekend offered %d slots", len(free))
	}
}

func TestAvailableSlotsMatchSchedulableDates(t *testing.T) {
	svc, store, _ := newTestService(t)
	listing := testfixtures.ApprovedListing(store, "seller-1", "Sunny flat")

	// Dates Schedule refuses must not advertise bookable slots.
	for _, date := range []string{dayPast, dayFarOut} {
		free, err := svc.AvailableSlots(listing.ID, date)
		if err != nil {
			t.Fatalf("lookup for %s failed: %v", date, err)
		}
		if len(free) != 0 {
			t.Fatalf("unbookable date %s offered %d slots", date, len(free))
		}
	}

	// Today only offers slots still ahead of the 10:00 clock.
	free, err := svc.AvailableSlots(listing.ID, dayToday)
	if err != nil {
		t.Fatalf("same-day lookup failed: %v", err)
	}
	if len(free) != 15 {
		t.Fatalf("expected 15 remaining same-day slots, got %d", len(free))
	}
	if free[0] != "10:30" {
		t.Fatalf("first same-day slot should be 10:30, got %s", free[0])
	}
}

func TestListForListing(t *testing.T) {
	svc, store, _ := newTestService(t)
	listing := testfixtures.ApprovedListing(store, "seller-1", "Sunny flat")

	for _, slot := range []string{"11:00", "09:30"} {
		if _, err := svc.Schedule(ScheduleRequest{
			ListingID:   listing.ID,
			RequesterID: "buyer-1",
			Date:        dayThursday,
			TimeSlot:    slot,
		}); err != nil {
			t.Fatalf("schedule failed: %v", err)
		}
	}

	if _, err := svc.ListForListing(listing.ID, "stranger"); !models.IsNotFound(err) {
		t.Fatalf("expected NotFoundError for non-owner, got %v", err)
	}

	appts, err := svc.ListForListing(listing.ID, "seller-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}
	if appts[0].TimeSlot != "09:30" || appts[1].TimeSlot != "11:00" {
		t.Fatalf("appointments not sorted by slot: %s, %s", appts[0].TimeSlot, appts[1].TimeSlot)
	}
}

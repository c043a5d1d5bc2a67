package appointments

import (
	"fmt"
	"time"

	"estate-marketplace/internal/models"
)

// Viewings are booked on a half-hour grid between 09:00 and 18:00, so the
// last slot starts at 17:30.
const (
	slotOpenHour  = 9
	slotCloseHour = 18
	slotMinutes   = 30
)

// SlotGrid enumerates every bookable start time as "HH:MM".
func SlotGrid() []string {
	var slots []string
	for h := slotOpenHour; h < slotCloseHour; h++ {
		for m := 0; m < 60; m += slotMinutes {
			slots = append(slots, fmt.Sprintf("%02d:%02d", h, m))
		}
	}
	return slots
}

// ValidSlot reports whether s is one of the enumerated half-hour slots.
func ValidSlot(s string) bool {
	tod, err := parseHHMM(s)
	if err != nil {
		return false
	}
	h, m := tod.Hour(), tod.Minute()
	if h < slotOpenHour || h >= slotCloseHour {
		return false
	}
	return m%slotMinutes == 0
}

// slotStart combines a calendar date and a slot into a wall-clock instant in
// the given location.
func slotStart(date, slot string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(models.DateFormat, date, loc)
	if err != nil {
		return time.Time{}, err
	}
	tod, err := parseHHMM(slot)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, loc), nil
}

func parseHHMM(s string) (time.Time, error) {
	// Exactly "HH:MM"; trailing characters would otherwise survive into
	// storage and defeat the string-equality slot-uniqueness check.
	if len(s) != 5 {
		return time.Time{}, fmt.Errorf("invalid time string: %s", s)
	}
	return time.Parse("15:04", s)
}

// isWeekend reports whether d falls on Saturday or Sunday.
func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

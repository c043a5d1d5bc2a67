package clock

import "time"

// Clock abstracts the wall clock so deletion timers and booking-window
// checks can be driven by a controllable time source in tests.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

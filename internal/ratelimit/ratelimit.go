package ratelimit

import (
	"sync"
	"time"

	"estate-marketplace/internal/clock"
)

// Limiter enforces per-caller request limits on write endpoints (listing
// submissions and viewing requests) over sliding minute and hour windows.
type Limiter struct {
	requestsPerMinute int
	requestsPerHour   int
	enabled           bool
	clock             clock.Clock

	mu      sync.Mutex
	minutes map[string][]time.Time
	hours   map[string][]time.Time
}

// NewLimiter creates a limiter with the given per-caller limits.
func NewLimiter(requestsPerMinute, requestsPerHour int, enabled bool, clk clock.Clock) *Limiter {
	return &Limiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		enabled:           enabled,
		clock:             clk,
		minutes:           make(map[string][]time.Time),
		hours:             make(map[string][]time.Time),
	}
}

// Allow checks whether the caller may issue another write request.
func (l *Limiter) Allow(callerID string) bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.minutes[callerID] = filterTimes(l.minutes[callerID], now.Add(-1*time.Minute))
	l.hours[callerID] = filterTimes(l.hours[callerID], now.Add(-1*time.Hour))

	if l.requestsPerMinute > 0 && len(l.minutes[callerID]) >= l.requestsPerMinute {
		return false
	}
	if l.requestsPerHour > 0 && len(l.hours[callerID]) >= l.requestsPerHour {
		return false
	}

	l.minutes[callerID] = append(l.minutes[callerID], now)
	l.hours[callerID] = append(l.hours[callerID], now)
	return true
}

// Stats contains per-caller limiter statistics
type Stats struct {
	Enabled            bool `json:"enabled"`
	RequestsLastMinute int  `json:"requests_last_minute"`
	RequestsLastHour   int  `json:"requests_last_hour"`
	LimitPerMinute     int  `json:"limit_per_minute"`
	LimitPerHour       int  `json:"limit_per_hour"`
}

// GetStats returns current statistics for one caller
func (l *Limiter) GetStats(callerID string) Stats {
	if !l.enabled {
		return Stats{Enabled: false}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.minutes[callerID] = filterTimes(l.minutes[callerID], now.Add(-1*time.Minute))
	l.hours[callerID] = filterTimes(l.hours[callerID], now.Add(-1*time.Hour))

	return Stats{
		Enabled:            true,
		RequestsLastMinute: len(l.minutes[callerID]),
		RequestsLastHour:   len(l.hours[callerID]),
		LimitPerMinute:     l.requestsPerMinute,
		LimitPerHour:       l.requestsPerHour,
	}
}

// filterTimes keeps only times after the cutoff
func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	result := make([]time.Time, 0, len(times))
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

package ratelimit

import (
	"testing"
	"time"

	"estate-marketplace/internal/testfixtures"
)

func TestAllowEnforcesMinuteLimit(t *testing.T) {
	clk := testfixtures.NewClock(time.Time{})
	l := NewLimiter(3, 100, true, clk)

	for i := 0; i < 3; i++ {
		if !l.Allow("caller-1") {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	if l.Allow("caller-1") {
		t.Fatal("fourth request within a minute must be limited")
	}

	// Other callers are tracked independently.
	if !l.Allow("caller-2") {
		t.Fatal("unrelated caller was limited")
	}

	// The window slides: a minute later the caller is allowed again.
	clk.Advance(61 * time.Second)
	if !l.Allow("caller-1") {
		t.Fatal("request after window expiry was limited")
	}
}

func TestAllowEnforcesHourLimit(t *testing.T) {
	clk := testfixtures.NewClock(time.Time{})
	l := NewLimiter(100, 5, true, clk)

	for i := 0; i < 5; i++ {
		if !l.Allow("caller-1") {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
		clk.Advance(2 * time.Minute)
	}
	if l.Allow("caller-1") {
		t.Fatal("sixth request within the hour must be limited")
	}

	clk.Advance(time.Hour)
	if !l.Allow("caller-1") {
		t.Fatal("request after hour window expiry was limited")
	}
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	clk := testfixtures.NewClock(time.Time{})
	l := NewLimiter(1, 1, false, clk)

	for i := 0; i < 10; i++ {
		if !l.Allow("caller-1") {
			t.Fatal("disabled limiter must not limit")
		}
	}
	if s := l.GetStats("caller-1"); s.Enabled {
		t.Fatal("stats must report disabled")
	}
}

func TestGetStats(t *testing.T) {
	clk := testfixtures.NewClock(time.Time{})
	l := NewLimiter(10, 100, true, clk)

	l.Allow("caller-1")
	l.Allow("caller-1")
	clk.Advance(2 * time.Minute)
	l.Allow("caller-1")

	s := l.GetStats("caller-1")
	if s.RequestsLastMinute != 1 {
		t.Fatalf("expected 1 request in last minute, got %d", s.RequestsLastMinute)
	}
	if s.RequestsLastHour != 3 {
		t.Fatalf("expected 3 requests in last hour, got %d", s.RequestsLastHour)
	}
	if s.LimitPerMinute != 10 || s.LimitPerHour != 100 {
		t.Fatalf("limits not reported: %+v", s)
	}
}

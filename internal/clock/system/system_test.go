package system

import (
	"testing"
	"time"
)

// TestClockNowUTC ensures the clock returns UTC timestamps.
func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

func TestFixedAdvance(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := NewFixed(start)
	if !clk.Now().Equal(start) {
		t.Fatalf("Now() = %v", clk.Now())
	}
	clk.Advance(90 * time.Second)
	if want := start.Add(90 * time.Second); !clk.Now().Equal(want) {
		t.Fatalf("Now() = %v, want %v", clk.Now(), want)
	}
}

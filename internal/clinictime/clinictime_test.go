package clinictime

import (
	"testing"
	"time"
)

func TestTodayUsesClinicZoneNotUTC(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}

	// 2026-03-01 23:30 UTC is already 2026-03-02 08:30 in Tokyo.
	at := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	clock := NewFixed(at, tokyo)

	if got := clock.Today(); got != "2026-03-02" {
		t.Fatalf("expected clinic-local day 2026-03-02, got %s", got)
	}
}

func TestTodayJustBeforeMidnight(t *testing.T) {
	tokyo, _ := time.LoadLocation("Asia/Tokyo")

	// 14:59 UTC == 23:59 JST, still the same clinic day.
	at := time.Date(2026, 3, 1, 14, 59, 0, 0, time.UTC)
	if got := NewFixed(at, tokyo).Today(); got != "2026-03-01" {
		t.Fatalf("expected 2026-03-01, got %s", got)
	}

	// One minute later the clinic day rolls over.
	at = at.Add(time.Minute)
	if got := NewFixed(at, tokyo).Today(); got != "2026-03-02" {
		t.Fatalf("expected 2026-03-02 after JST midnight, got %s", got)
	}
}

func TestNewUnknownZoneFallsBackToUTC(t *testing.T) {
	clock, err := New("Mars/Olympus")
	if err == nil {
		t.Fatal("expected error for unknown zone")
	}
	if clock == nil || clock.Location() != time.UTC {
		t.Fatal("expected UTC fallback clock")
	}
}

func TestNewKnownZone(t *testing.T) {
	clock, err := New("Asia/Tokyo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clock.Location().String() != "Asia/Tokyo" {
		t.Fatalf("expected Asia/Tokyo, got %s", clock.Location())
	}
}

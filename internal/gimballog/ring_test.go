package gimballog

import (
	"testing"
	"time"
)

func TestRingNewestFirstAndBounded(t *testing.T) {
	r := NewRing(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r.Add(base.Add(time.Duration(i)*time.Second), "line")
	}

	entries := r.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected ring bounded to 3 entries, got %d", len(entries))
	}
	if !entries[0].Time.After(entries[1].Time) {
		t.Fatalf("expected newest-first ordering")
	}
}

func TestRingClear(t *testing.T) {
	r := NewRing(10)
	r.Add(time.Now(), "a")
	r.Clear()
	if len(r.Entries()) != 0 {
		t.Fatalf("expected empty ring after clear")
	}
}

func TestRingFormatsTimestamp(t *testing.T) {
	r := NewRing(1)
	at := time.Date(2026, 1, 1, 13, 5, 9, 250_000_000, time.UTC)
	e := r.Add(at, "hello")
	want := "[13:05:09.250] hello"
	if e.Line != want {
		t.Fatalf("got %q, want %q", e.Line, want)
	}
}

// Package gimballog is a small bounded, newest-first log ring used to keep
// a human-readable trail of outbound attitude commands for display, the
// same role the teacher's speaker/cam packages play for their own domains:
// a narrow, single-purpose helper owned by the controller.
package gimballog

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one logged line, newest-first in the ring.
type Entry struct {
	ID   uuid.UUID
	Time time.Time
	Line string
}

// Ring keeps the most recent entries, newest first, up to max.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

// NewRing creates a ring holding up to max entries.
func NewRing(max int) *Ring {
	if max <= 0 {
		max = 1
	}
	return &Ring{max: max}
}

// Add formats message with a HH:MM:SS.mmm timestamp and prepends it to the ring.
func (r *Ring) Add(at time.Time, message string) Entry {
	entry := Entry{
		ID:   uuid.New(),
		Time: at,
		Line: fmt.Sprintf("[%s] %s", at.Format("15:04:05.000"), message),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]Entry{entry}, r.entries...)
	if len(r.entries) > r.max {
		r.entries = r.entries[:r.max]
	}
	return entry
}

// Entries returns a newest-first snapshot of the ring.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Clear empties the ring.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

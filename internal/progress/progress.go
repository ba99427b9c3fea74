// Package progress records module completion against the external
// progress-tracking collaborator. The viewer only ever calls into it;
// nothing here feeds back into tree state.
package progress

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ItemType distinguishes what kind of media item was completed.
type ItemType string

const (
	ItemVideo    ItemType = "video"
	ItemDocument ItemType = "documento"
)

// Entry is a single completion state change.
type Entry struct {
	UserID    string
	ModuleID  string
	ItemIndex int
	ItemType  ItemType
	Completed bool
	CreatedAt time.Time
}

// Recorder accepts completion state changes.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// NopRecorder ignores all entries.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error {
	return nil
}

// MemoryRecorder stores entries in memory for tests. It enforces the
// same identifier requirements as the Postgres recorder, so wiring that
// drops the user id fails here too.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, e Entry) error {
	if e.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if e.ModuleID == "" {
		return fmt.Errorf("module id is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()

	return nil
}

// Entries returns a copy of everything recorded so far.
func (r *MemoryRecorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

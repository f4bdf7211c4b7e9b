package client

import (
	"sync"
	"time"
)

// SaveState is what the editor's save indicator shows.
type SaveState int

const (
	StateIdle SaveState = iota
	StateSaving
	StateSaved
	StateError
)

func (s SaveState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSaving:
		return "saving"
	case StateSaved:
		return "saved"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StatusNotifier observes state transitions, typically to update the
// indicator in the UI.
type StatusNotifier func(SaveState)

// StatusTracker is the save-status machine: idle -> saving -> saved ->
// idle with an automatic reset after a display delay, or idle ->
// saving -> error staying put until the next user action. A generation
// counter keeps a stale auto-reset from clobbering the state of a save
// that started later.
type StatusTracker struct {
	mu         sync.Mutex
	state      SaveState
	generation int
	displayFor time.Duration
	notify     StatusNotifier
}

// NewStatusTracker creates a tracker. displayFor controls how long
// "saved" stays visible; zero means 2 seconds. notifier may be nil.
func NewStatusTracker(displayFor time.Duration, notifier StatusNotifier) *StatusTracker {
	if displayFor <= 0 {
		displayFor = 2 * time.Second
	}
	return &StatusTracker{
		state:      StateIdle,
		displayFor: displayFor,
		notify:     notifier,
	}
}

// State returns the currently displayed state.
func (t *StatusTracker) State() SaveState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Begin marks a save as in flight.
func (t *StatusTracker) Begin() {
	t.transition(StateSaving)
}

// Succeed marks the save complete and schedules the reset to idle.
func (t *StatusTracker) Succeed() {
	gen := t.transition(StateSaved)
	time.AfterFunc(t.displayFor, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		// Only reset if nothing newer replaced the state meanwhile.
		if t.generation == gen && t.state == StateSaved {
			t.generation++
			t.state = StateIdle
			t.fireLocked()
		}
	})
}

// Fail marks the save failed. The error state holds until UserAction.
func (t *StatusTracker) Fail() {
	t.transition(StateError)
}

// UserAction clears a displayed error. Idle and saved states are
// untouched; an in-flight save keeps showing saving.
func (t *StatusTracker) UserAction() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateError {
		t.generation++
		t.state = StateIdle
		t.fireLocked()
	}
}

// Reset forces the tracker back to idle without showing an error, used
// after a silent save failure.
func (t *StatusTracker) Reset() {
	t.transition(StateIdle)
}

func (t *StatusTracker) transition(to SaveState) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	t.state = to
	t.fireLocked()
	return t.generation
}

func (t *StatusTracker) fireLocked() {
	if t.notify != nil {
		t.notify(t.state)
	}
}

package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// DefaultQuietPeriod is how long the saver waits after the last change
// before saving.
const DefaultQuietPeriod = 1500 * time.Millisecond

// ErrSaverClosed is returned when a save is requested after Close.
var ErrSaverClosed = errors.New("saver is closed")

// saverState is the debounce machine's state. pending means the timer
// is armed; savingPending means edits arrived while a save was in
// flight and exactly one follow-up save must run on completion.
type saverState int

const (
	saverIdle saverState = iota
	saverPending
	saverSaving
	saverSavingPending
)

// SaveFunc performs the actual write, normally API.SaveContent bound
// to a project.
type SaveFunc func(ctx context.Context, content domain.Content) (*Project, error)

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithQuietPeriod overrides the debounce window.
func WithQuietPeriod(d time.Duration) SaverOption {
	return func(s *Saver) {
		if d > 0 {
			s.quiet = d
		}
	}
}

// WithStatus attaches a status tracker.
func WithStatus(t *StatusTracker) SaverOption {
	return func(s *Saver) { s.status = t }
}

// WithOnSaved attaches a callback invoked with the server's response
// after every successful save, normally Reconciler.OnSaved.
func WithOnSaved(fn func(*Project)) SaverOption {
	return func(s *Saver) { s.onSaved = fn }
}

// Saver is the debounced save pipeline. Change notifications arm a
// quiet-period timer; the content is read from the accessor at save
// time, not at notification time, so a burst of edits produces one
// save carrying the final content.
type Saver struct {
	mu       sync.Mutex
	state    saverState
	timer    *time.Timer
	closed   bool
	quiet    time.Duration
	accessor ContentAccessor
	save     SaveFunc
	status   *StatusTracker
	onSaved  func(*Project)
}

// NewSaver creates a saver over the given surface and save function.
func NewSaver(accessor ContentAccessor, save SaveFunc, opts ...SaverOption) *Saver {
	if accessor == nil {
		panic("ContentAccessor cannot be nil for Saver")
	}
	if save == nil {
		panic("SaveFunc cannot be nil for Saver")
	}
	s := &Saver{
		state:    saverIdle,
		quiet:    DefaultQuietPeriod,
		accessor: accessor,
		save:     save,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.status == nil {
		s.status = NewStatusTracker(0, nil)
	}
	return s
}

// NotifyChanged records a content change. From idle it arms the timer;
// from pending it re-arms it, extending the quiet period; during a
// save it marks the follow-up instead of touching the timer.
func (s *Saver) NotifyChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.status.UserAction()

	switch s.state {
	case saverIdle:
		s.state = saverPending
		s.timer = time.AfterFunc(s.quiet, s.timerFired)
	case saverPending:
		s.timer.Stop()
		s.timer = time.AfterFunc(s.quiet, s.timerFired)
	case saverSaving:
		s.state = saverSavingPending
	case saverSavingPending:
		// already marked
	}
}

func (s *Saver) timerFired() {
	s.mu.Lock()
	if s.closed || s.state != saverPending {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.state = saverSaving
	s.mu.Unlock()

	// Timer saves are silent: the failure is logged in runSave and the
	// next change event retries.
	_ = s.runSave(true)
}

// SaveNow cancels any armed timer and saves immediately. When a save
// is already in flight it marks the follow-up and returns; the caller
// is not told that save's outcome. silent suppresses the error state
// on the status machine.
func (s *Saver) SaveNow(silent bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSaverClosed
	}
	switch s.state {
	case saverSaving, saverSavingPending:
		s.state = saverSavingPending
		s.mu.Unlock()
		return nil
	default:
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.state = saverSaving
		s.mu.Unlock()
		return s.runSave(silent)
	}
}

// Close discards an armed timer without flushing. Any in-flight save
// finishes on its own.
func (s *Saver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// runSave performs one save, plus exactly one follow-up when edits
// arrived while it ran. The content is read fresh for each write.
func (s *Saver) runSave(silent bool) error {
	for {
		content := domain.Content{
			HTML: s.accessor.HTML(),
			CSS:  s.accessor.CSS(),
			JS:   s.accessor.JS(),
		}
		s.status.Begin()

		project, err := s.save(context.Background(), content)
		if err != nil {
			// A follow-up marked while this save ran still has to
			// happen; failure does not consume the mark.
			s.mu.Lock()
			followUp := s.state == saverSavingPending
			if followUp {
				s.state = saverSaving
			} else {
				s.state = saverIdle
			}
			s.mu.Unlock()
			if silent {
				s.status.Reset()
				logrus.WithError(err).Warn("Silent save failed")
			} else {
				s.status.Fail()
			}
			if followUp {
				continue
			}
			return err
		}

		s.mu.Lock()
		followUp := s.state == saverSavingPending
		if followUp {
			s.state = saverSaving
		} else {
			s.state = saverIdle
		}
		s.mu.Unlock()

		s.status.Succeed()
		if s.onSaved != nil {
			s.onSaved(project)
		}
		if !followUp {
			return nil
		}
	}
}

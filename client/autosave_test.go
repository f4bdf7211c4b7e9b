package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// stubSurface is a minimal in-memory editing surface.
type stubSurface struct {
	mu      sync.Mutex
	html    string
	css     string
	js      string
	applied []domain.Change
}

func (s *stubSurface) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html
}

func (s *stubSurface) CSS() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.css
}

func (s *stubSurface) JS() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.js
}

func (s *stubSurface) ApplyChange(change domain.Change) error {
	if change.Kind == "glitter:sprinkle" {
		return ErrUnknownChangeKind
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, change)
	return nil
}

func (s *stubSurface) setHTML(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = html
}

func (s *stubSurface) appliedChanges() []domain.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Change, len(s.applied))
	copy(out, s.applied)
	return out
}

// recordingSave collects every content the saver wrote.
type recordingSave struct {
	mu       sync.Mutex
	contents []domain.Content
	err      error
}

func (r *recordingSave) fn(ctx context.Context, content domain.Content) (*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.contents = append(r.contents, content)
	return &Project{Version: len(r.contents) + 1, UpdatedAt: time.Now()}, nil
}

func (r *recordingSave) saved() []domain.Content {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Content, len(r.contents))
	copy(out, r.contents)
	return out
}

func (r *recordingSave) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func TestSaver_BurstProducesSingleSaveWithFinalContent(t *testing.T) {
	surface := &stubSurface{}
	save := &recordingSave{}
	saver := NewSaver(surface, save.fn, WithQuietPeriod(40*time.Millisecond))
	defer saver.Close()

	for _, html := range []string{"<p>a</p>", "<p>ab</p>", "<p>abc</p>", "<p>abcd</p>"} {
		surface.setHTML(html)
		saver.NotifyChanged()
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(save.saved()) == 1 }, time.Second, 10*time.Millisecond)
	// The single save carries the content as of fire time, not the
	// content when the first notification arrived.
	assert.Equal(t, "<p>abcd</p>", save.saved()[0].HTML)

	// And it stays at one save.
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, save.saved(), 1)
}

func TestSaver_NotifyReArmsQuietPeriod(t *testing.T) {
	surface := &stubSurface{}
	save := &recordingSave{}
	saver := NewSaver(surface, save.fn, WithQuietPeriod(60*time.Millisecond))
	defer saver.Close()

	saver.NotifyChanged()
	time.Sleep(40 * time.Millisecond)
	saver.NotifyChanged() // re-arms: the original deadline passes quietly

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, save.saved(), "save fired before the extended quiet period elapsed")

	require.Eventually(t, func() bool { return len(save.saved()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestSaver_SaveNowCancelsTimer(t *testing.T) {
	surface := &stubSurface{}
	surface.setHTML("<p>now</p>")
	save := &recordingSave{}
	saver := NewSaver(surface, save.fn, WithQuietPeriod(50*time.Millisecond))
	defer saver.Close()

	saver.NotifyChanged()
	require.NoError(t, saver.SaveNow(false))
	require.Len(t, save.saved(), 1)

	// The canceled timer must not produce a second save.
	time.Sleep(120 * time.Millisecond)
	assert.Len(t, save.saved(), 1)
}

func TestSaver_RapidSaveNow_ExactlyTwoWrites(t *testing.T) {
	surface := &stubSurface{}
	surface.setHTML("<p>v1</p>")

	var mu sync.Mutex
	var saved []domain.Content
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	saveFn := func(ctx context.Context, content domain.Content) (*Project, error) {
		mu.Lock()
		first := len(saved) == 0
		saved = append(saved, content)
		mu.Unlock()
		entered <- struct{}{}
		if first {
			<-release
		}
		return &Project{Version: 2}, nil
	}

	saver := NewSaver(surface, saveFn, WithQuietPeriod(time.Hour))
	defer saver.Close()

	done := make(chan error, 1)
	go func() { done <- saver.SaveNow(false) }()
	<-entered // first save is in flight

	// Edits land while the save runs; the second SaveNow collapses
	// into the follow-up.
	surface.setHTML("<p>v2</p>")
	require.NoError(t, saver.SaveNow(false))
	close(release)

	require.NoError(t, <-done)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(saved) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "<p>v1</p>", saved[0].HTML)
	// The follow-up reads content at its own save time.
	assert.Equal(t, "<p>v2</p>", saved[1].HTML)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, saved, 2, "exactly two writes expected")
}

func TestSaver_FollowUpSurvivesFailedSave(t *testing.T) {
	surface := &stubSurface{}
	surface.setHTML("<p>v1</p>")

	var mu sync.Mutex
	var saved []domain.Content
	calls := 0
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	saveFn := func(ctx context.Context, content domain.Content) (*Project, error) {
		mu.Lock()
		calls++
		first := calls == 1
		if !first {
			saved = append(saved, content)
		}
		mu.Unlock()
		entered <- struct{}{}
		if first {
			<-release
			return nil, errors.New("backend down")
		}
		return &Project{Version: 2}, nil
	}

	status := NewStatusTracker(time.Hour, nil)
	saver := NewSaver(surface, saveFn, WithQuietPeriod(time.Hour), WithStatus(status))
	defer saver.Close()

	done := make(chan error, 1)
	go func() { done <- saver.SaveNow(false) }()
	<-entered // first save is in flight and will fail

	surface.setHTML("<p>v2</p>")
	require.NoError(t, saver.SaveNow(false)) // collapses into the follow-up
	close(release)

	// The failed save does not swallow the marked follow-up: the second
	// write runs, carries the newer content, and its success is what the
	// first caller sees.
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
	require.Len(t, saved, 1)
	assert.Equal(t, "<p>v2</p>", saved[0].HTML)
	assert.Equal(t, StateSaved, status.State())
}

func TestSaver_SilentFailureRetriedOnNextChange(t *testing.T) {
	surface := &stubSurface{}
	save := &recordingSave{}
	save.setErr(errors.New("backend down"))
	status := NewStatusTracker(time.Hour, nil)
	saver := NewSaver(surface, save.fn, WithQuietPeriod(20*time.Millisecond), WithStatus(status))
	defer saver.Close()

	saver.NotifyChanged()
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, save.saved())
	// Silent failures never show the error state.
	assert.Equal(t, StateIdle, status.State())

	save.setErr(nil)
	saver.NotifyChanged()
	require.Eventually(t, func() bool { return len(save.saved()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestSaver_ExplicitFailureSurfacesError(t *testing.T) {
	surface := &stubSurface{}
	save := &recordingSave{}
	save.setErr(errors.New("backend down"))
	status := NewStatusTracker(time.Hour, nil)
	saver := NewSaver(surface, save.fn, WithStatus(status))
	defer saver.Close()

	err := saver.SaveNow(false)
	require.Error(t, err)
	assert.Equal(t, StateError, status.State())

	// The next user action clears the error display.
	saver.NotifyChanged()
	assert.Equal(t, StateIdle, status.State())
}

func TestSaver_CloseDropsPendingTimer(t *testing.T) {
	surface := &stubSurface{}
	save := &recordingSave{}
	saver := NewSaver(surface, save.fn, WithQuietPeriod(30*time.Millisecond))

	saver.NotifyChanged()
	saver.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, save.saved(), "closed saver must not flush")

	assert.ErrorIs(t, saver.SaveNow(false), ErrSaverClosed)
}

func TestSaver_OnSavedReceivesResponse(t *testing.T) {
	surface := &stubSurface{}
	save := &recordingSave{}
	rec := NewReconciler(surface)
	saver := NewSaver(surface, save.fn, WithOnSaved(rec.OnSaved))
	defer saver.Close()

	require.NoError(t, saver.SaveNow(false))
	assert.Equal(t, 2, rec.Version())
	// The save response never rewrites the surface.
	assert.Empty(t, surface.appliedChanges())
}

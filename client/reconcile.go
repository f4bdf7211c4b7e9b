package client

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// Reconciler folds server state back into the client. Save responses
// update tracked metadata only; the editing surface is never
// re-rendered from a save response, since the user may have kept
// editing while the request was in flight. Remote changes, by
// contrast, do go to the surface.
type Reconciler struct {
	accessor ContentAccessor

	mu        sync.Mutex
	version   int
	updatedAt time.Time
}

// NewReconciler creates a reconciler over the editing surface.
func NewReconciler(accessor ContentAccessor) *Reconciler {
	if accessor == nil {
		panic("ContentAccessor cannot be nil for Reconciler")
	}
	return &Reconciler{accessor: accessor}
}

// OnSaved records the authoritative version and timestamp from a save
// response. Metadata only.
func (r *Reconciler) OnSaved(project *Project) {
	if project == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.version = project.Version
	r.updatedAt = project.UpdatedAt
}

// OnRemoteChange applies one relayed change to the surface. Unknown
// kinds are skipped so newer peers stay compatible; other apply errors
// are logged and dropped, the relay has no redelivery.
func (r *Reconciler) OnRemoteChange(change domain.Change) {
	if err := r.accessor.ApplyChange(change); err != nil {
		if errors.Is(err, ErrUnknownChangeKind) {
			logrus.WithField("kind", change.Kind).Debug("Skipping unknown change kind")
			return
		}
		logrus.WithFields(logrus.Fields{
			"kind":      change.Kind,
			"target_id": change.TargetID,
		}).WithError(err).Warn("Failed to apply remote change")
	}
}

// Version returns the last version a save response reported.
func (r *Reconciler) Version() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// UpdatedAt returns the last save timestamp the server reported.
func (r *Reconciler) UpdatedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updatedAt
}

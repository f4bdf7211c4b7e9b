package repository

import (
	"context"
	"time"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// StateRepository covers the live, non-durable state the relay needs:
// the presence registry, the cross-node fan-out channel, and request
// rate counters. Implemented on Redis.
type StateRepository interface {
	// === Presence registry ===

	// AddPresence records a connected collaborator on a project.
	AddPresence(ctx context.Context, projectID uint, entry domain.PresenceEntry) error

	// RemovePresence drops one connection's presence entry.
	RemovePresence(ctx context.Context, projectID uint, connID string) error

	// SetCursor updates the cursor on an existing presence entry. Best
	// effort: updating a missing entry is not an error.
	SetCursor(ctx context.Context, projectID uint, connID string, cursor *domain.CursorPosition) error

	// ListPresence returns every presence entry for a project. The
	// result is the canonical presence set; clients mirror it.
	ListPresence(ctx context.Context, projectID uint) ([]domain.PresenceEntry, error)

	// SweepStalePresence removes entries not refreshed within maxAge,
	// covering connections lost to a crashed relay node. Returns the
	// number of entries removed.
	SweepStalePresence(ctx context.Context, maxAge time.Duration) (int, error)

	// CleanupProjectState removes all live state for a project, called
	// when the project is deleted.
	CleanupProjectState(ctx context.Context, projectID uint) error

	// === Relay fan-out ===

	// PublishRelay publishes a frame on the project's relay channel so
	// every node with connected clients can deliver it.
	PublishRelay(ctx context.Context, projectID uint, frame domain.RelayFrame) error

	// SubscribeRelay subscribes to a project's relay channel. The
	// returned stop function must be called when the last local client
	// leaves; it closes the frame channel.
	SubscribeRelay(ctx context.Context, projectID uint) (<-chan domain.RelayFrame, func(), error)

	// === Rate limiting ===

	// CheckRateLimit increments the counter for key and reports whether
	// the limit for the window is exceeded.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

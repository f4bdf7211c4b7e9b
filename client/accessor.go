// Package client is the editor-side core: the debounced save pipeline,
// the save-status machine, the relay session with its pending-change
// queue, and the reconciler that folds server state back into the
// editing surface.
package client

import (
	"errors"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// ErrUnknownChangeKind is returned by ContentAccessor implementations
// for change kinds they do not recognize. The reconciler treats it as
// a no-op so newer peers can emit kinds older clients skip.
var ErrUnknownChangeKind = errors.New("unknown change kind")

// ContentAccessor is the editing surface as the sync core sees it. The
// surface owns the document; the core only reads it at save time and
// applies remote changes to it.
type ContentAccessor interface {
	HTML() string
	CSS() string
	JS() string

	// ApplyChange applies one remote change to the surface. Unknown
	// kinds return ErrUnknownChangeKind.
	ApplyChange(change domain.Change) error
}

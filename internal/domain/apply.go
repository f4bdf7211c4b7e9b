package domain

// ContentComparer decides whether two content values are structurally
// equal. Implemented by the content package; injected so the decision
// stays testable without a parser in this package's tests.
type ContentComparer func(a, b Content) bool

// ApplyContentUpdate runs the compare-and-snapshot step of a content
// save against an in-memory project row. When the incoming content is
// structurally different it returns a snapshot of the previous content
// and bumps Version by one; when identical it returns (nil, false) and
// leaves the row untouched apart from the caller's timestamp update.
//
// The caller is responsible for persisting both the snapshot and the
// mutated row inside a single transaction.
func ApplyContentUpdate(p *Project, incoming Content, equal ContentComparer) (*ProjectVersion, bool) {
	p.LoadContent()
	if equal(p.Content, incoming) {
		return nil, false
	}
	snap := p.Snapshot()
	p.Content = incoming
	p.SyncContentColumns()
	p.Version++
	return snap, true
}

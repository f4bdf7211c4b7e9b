package tasks

import (
	"encoding/json"
)

// Task type identifiers registered with the asynq worker.
const (
	// TypeVersionPrune caps a project's snapshot history after a
	// version-creating save.
	TypeVersionPrune = "version:prune"
	// TypePresenceSweep removes presence entries abandoned by crashed
	// relay nodes. Registered as a periodic task.
	TypePresenceSweep = "presence:sweep"
)

// VersionPrunePayload identifies the project to prune and how many
// snapshots to keep.
type VersionPrunePayload struct {
	ProjectID uint `json:"project_id"`
	Keep      int  `json:"keep"`
}

// NewVersionPruneTask builds the serialized payload for a prune task.
func NewVersionPruneTask(projectID uint, keep int) ([]byte, error) {
	return json.Marshal(VersionPrunePayload{ProjectID: projectID, Keep: keep})
}

// PresenceSweepPayload carries the staleness cutoff in seconds.
type PresenceSweepPayload struct {
	MaxAgeSeconds int `json:"max_age_seconds"`
}

// NewPresenceSweepTask builds the serialized payload for a sweep task.
func NewPresenceSweepTask(maxAgeSeconds int) ([]byte, error) {
	return json.Marshal(PresenceSweepPayload{MaxAgeSeconds: maxAgeSeconds})
}

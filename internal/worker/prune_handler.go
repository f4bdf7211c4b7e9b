package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/repository"
	"github.com/jacksonwyt/byldur-sub000/internal/tasks"
)

// VersionPruneHandler caps a project's snapshot history.
type VersionPruneHandler struct {
	projectRepo repository.ProjectRepository
}

func NewVersionPruneHandler(projectRepo repository.ProjectRepository) *VersionPruneHandler {
	if projectRepo == nil {
		panic("ProjectRepository cannot be nil for VersionPruneHandler")
	}
	return &VersionPruneHandler{projectRepo: projectRepo}
}

// ProcessTask implements asynq.Handler.
func (h *VersionPruneHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.VersionPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// A payload that never parses will never parse on retry.
		return fmt.Errorf("failed to unmarshal prune payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"task_type":  t.Type(),
		"project_id": payload.ProjectID,
		"keep":       payload.Keep,
	})

	removed, err := h.projectRepo.PruneVersions(ctx, payload.ProjectID, payload.Keep)
	if err != nil {
		logCtx.WithError(err).Error("Failed to prune version history")
		return fmt.Errorf("prune versions for project %d: %w", payload.ProjectID, err)
	}
	if removed > 0 {
		logCtx.WithField("removed", removed).Info("Version history pruned")
	}
	return nil
}

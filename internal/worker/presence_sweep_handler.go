package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/repository"
	"github.com/jacksonwyt/byldur-sub000/internal/tasks"
)

// PresenceSweepHandler removes presence entries whose connections died
// without unregistering, e.g. when a relay node crashed.
type PresenceSweepHandler struct {
	stateRepo repository.StateRepository
}

func NewPresenceSweepHandler(stateRepo repository.StateRepository) *PresenceSweepHandler {
	if stateRepo == nil {
		panic("StateRepository cannot be nil for PresenceSweepHandler")
	}
	return &PresenceSweepHandler{stateRepo: stateRepo}
}

// ProcessTask implements asynq.Handler.
func (h *PresenceSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.PresenceSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal sweep payload: %v: %w", err, asynq.SkipRetry)
	}
	maxAge := time.Duration(payload.MaxAgeSeconds) * time.Second
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}

	removed, err := h.stateRepo.SweepStalePresence(ctx, maxAge)
	if err != nil {
		logrus.WithError(err).Error("Failed to sweep stale presence")
		return fmt.Errorf("sweep stale presence: %w", err)
	}
	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"task_type": t.Type(),
			"removed":   removed,
			"max_age":   maxAge.String(),
		}).Info("Stale presence entries removed")
	}
	return nil
}

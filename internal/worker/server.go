// Package worker runs the asynq background server: version history
// pruning after saves and periodic presence sweeps.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/repository"
	"github.com/jacksonwyt/byldur-sub000/internal/tasks"
)

// WorkerServer wraps the asynq server and its handler registrations.
type WorkerServer struct {
	server      *asynq.Server
	log         *logrus.Entry
	projectRepo repository.ProjectRepository
	stateRepo   repository.StateRepository
}

// NewWorkerServer builds the worker. Queue weights favor critical work
// while keeping the low queue (pruning) from starving.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, projectRepo repository.ProjectRepository, stateRepo repository.StateRepository, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:      server,
		log:         logEntry,
		projectRepo: projectRepo,
		stateRepo:   stateRepo,
	}
}

// Start runs the worker server. Call from its own goroutine.
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeVersionPrune, NewVersionPruneHandler(ws.projectRepo).ProcessTask)
	mux.HandleFunc(tasks.TypePresenceSweep, NewPresenceSweepHandler(ws.stateRepo).ProcessTask)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		}
		ws.log.Info("Worker server stopped")
	}
}

// Shutdown stops the worker gracefully.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
}

// NewScheduler registers the periodic presence sweep. The sweep keeps
// presence honest when a relay node dies without unregistering its
// connections.
func NewScheduler(redisOpt asynq.RedisClientOpt, sweepEvery time.Duration, presenceMaxAge time.Duration) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})

	payload, err := tasks.NewPresenceSweepTask(int(presenceMaxAge.Seconds()))
	if err != nil {
		return nil, err
	}
	spec := "@every " + sweepEvery.String()
	if _, err := scheduler.Register(spec, asynq.NewTask(tasks.TypePresenceSweep, payload)); err != nil {
		return nil, err
	}
	return scheduler, nil
}

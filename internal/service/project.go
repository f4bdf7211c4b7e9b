package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
	"github.com/jacksonwyt/byldur-sub000/internal/repository"
	"github.com/jacksonwyt/byldur-sub000/internal/tasks"
)

// TaskEnqueuer is the slice of asynq.Client the project service uses.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ProjectService owns project CRUD and the content-save path.
//
// Content saves are last-writer-wins at the document level: when two
// collaborators save near-simultaneously, the later transaction's
// compare-and-snapshot wins and the loser's content survives only as a
// version snapshot. This is a deliberate product decision, not a merge
// bug; there is no operational transform or CRDT layer.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	collabRepo  repository.CollaboratorRepository
	stateRepo   repository.StateRepository
	enqueuer    TaskEnqueuer
	versionKeep int
	publishBase string
}

// NewProjectService creates a ProjectService. enqueuer may be nil in
// deployments without a background worker; version pruning is then
// skipped. versionKeep caps the per-project snapshot history.
func NewProjectService(
	projectRepo repository.ProjectRepository,
	collabRepo repository.CollaboratorRepository,
	stateRepo repository.StateRepository,
	enqueuer TaskEnqueuer,
	versionKeep int,
	publishBase string,
) *ProjectService {
	if projectRepo == nil || collabRepo == nil {
		panic("ProjectRepository and CollaboratorRepository cannot be nil for ProjectService")
	}
	if versionKeep <= 0 {
		versionKeep = 100
	}
	if publishBase == "" {
		publishBase = "https://sites.byldur.app"
	}
	return &ProjectService{
		projectRepo: projectRepo,
		collabRepo:  collabRepo,
		stateRepo:   stateRepo,
		enqueuer:    enqueuer,
		versionKeep: versionKeep,
		publishBase: publishBase,
	}
}

// MetaUpdate carries the optional metadata fields of a PATCH. Nil
// pointers leave the field untouched.
type MetaUpdate struct {
	Name        *string
	Description *string
	IsPublic    *bool
}

// Create makes a new project owned by ownerID at version 1.
func (s *ProjectService) Create(ctx context.Context, ownerID uint, name, description string, initial domain.Content) (*domain.Project, error) {
	logCtx := logrus.WithFields(logrus.Fields{"owner_id": ownerID, "name": name})
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}

	project := &domain.Project{
		PublicID:    uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Version:     1,
		Content:     initial,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		logCtx.WithError(err).Error("Failed to create project")
		return nil, ErrInternalServer
	}
	logCtx.WithField("project_id", project.PublicID).Info("Project created")
	return project, nil
}

// Get returns a project the caller may read: its owner, any
// collaborator, or anyone when the project is public.
func (s *ProjectService) Get(ctx context.Context, callerID uint, publicID string) (*domain.Project, error) {
	project, err := s.resolve(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, callerID, project); err != nil {
		return nil, err
	}
	return project, nil
}

// Access resolves a project and reports whether the caller may edit
// it. Viewers and anonymous readers of public projects get the project
// with canEdit false; callers with no access at all get ErrForbidden.
func (s *ProjectService) Access(ctx context.Context, callerID uint, publicID string) (*domain.Project, bool, error) {
	project, err := s.resolve(ctx, publicID)
	if err != nil {
		return nil, false, err
	}
	if project.OwnerID == callerID {
		return project, true, nil
	}
	collab, err := s.collabRepo.Find(ctx, project.ID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if project.IsPublic {
				return project, false, nil
			}
			return nil, false, ErrForbidden
		}
		logrus.WithField("project_id", publicID).WithError(err).Error("Failed to check collaborator access")
		return nil, false, ErrInternalServer
	}
	return project, collab.CanEdit(), nil
}

// ListOwned returns the caller's projects, newest first.
func (s *ProjectService) ListOwned(ctx context.Context, callerID uint) ([]domain.Project, error) {
	projects, err := s.projectRepo.FindByOwner(ctx, callerID)
	if err != nil {
		logrus.WithField("owner_id", callerID).WithError(err).Error("Failed to list projects")
		return nil, ErrInternalServer
	}
	return projects, nil
}

// UpdateMeta applies metadata-only changes. The project version is
// never bumped here regardless of what changes.
func (s *ProjectService) UpdateMeta(ctx context.Context, callerID uint, publicID string, update MetaUpdate) (*domain.Project, error) {
	project, err := s.resolve(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != callerID {
		return nil, ErrForbidden
	}

	if update.Name != nil {
		if *update.Name == "" {
			return nil, fmt.Errorf("%w: project name cannot be empty", ErrInvalidInput)
		}
		project.Name = *update.Name
	}
	if update.Description != nil {
		project.Description = *update.Description
	}
	if update.IsPublic != nil {
		project.IsPublic = *update.IsPublic
	}

	if err := s.projectRepo.Save(ctx, project); err != nil {
		logrus.WithField("project_id", publicID).WithError(err).Error("Failed to update project metadata")
		return nil, ErrInternalServer
	}
	return project, nil
}

// UpdateContent is the version-on-write save path. The caller must be
// the owner or an editor-role collaborator. The repository performs the
// compare-and-snapshot atomically; when a snapshot was taken a pruning
// task is enqueued to cap the history length.
func (s *ProjectService) UpdateContent(ctx context.Context, callerID uint, publicID string, incoming domain.Content) (*domain.Project, error) {
	logCtx := logrus.WithFields(logrus.Fields{"project_id": publicID, "user_id": callerID})

	project, err := s.resolve(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeWrite(ctx, callerID, project); err != nil {
		return nil, err
	}

	result, err := s.projectRepo.UpdateContent(ctx, project.ID, incoming)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		logCtx.WithError(err).Error("Content save transaction failed")
		return nil, ErrInternalServer
	}

	if result.Snapshotted {
		logCtx.WithField("version", result.Project.Version).Info("Content saved, snapshot created")
		s.enqueuePrune(project.ID, logCtx)
	} else {
		logCtx.Debug("Content save was a no-op, content unchanged")
	}
	return result.Project, nil
}

// Publish marks the project public and assigns its published URL.
func (s *ProjectService) Publish(ctx context.Context, callerID uint, publicID string) (*domain.Project, error) {
	project, err := s.resolve(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != callerID {
		return nil, ErrForbidden
	}
	project.IsPublic = true
	project.PublishedURL = fmt.Sprintf("%s/%s", s.publishBase, project.PublicID)
	if err := s.projectRepo.Save(ctx, project); err != nil {
		logrus.WithField("project_id", publicID).WithError(err).Error("Failed to publish project")
		return nil, ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"project_id": publicID, "url": project.PublishedURL}).Info("Project published")
	return project, nil
}

// Delete removes the project, its version history and collaborator
// grants, then clears its live relay state best-effort.
func (s *ProjectService) Delete(ctx context.Context, callerID uint, publicID string) error {
	project, err := s.resolve(ctx, publicID)
	if err != nil {
		return err
	}
	if project.OwnerID != callerID {
		return ErrForbidden
	}
	if err := s.projectRepo.Delete(ctx, project.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProjectNotFound
		}
		logrus.WithField("project_id", publicID).WithError(err).Error("Failed to delete project")
		return ErrInternalServer
	}
	if s.stateRepo != nil {
		if err := s.stateRepo.CleanupProjectState(ctx, project.ID); err != nil {
			logrus.WithField("project_id", publicID).WithError(err).Warn("Failed to clean up live state after delete")
		}
	}
	logrus.WithField("project_id", publicID).Info("Project deleted")
	return nil
}

// ListVersions returns the project's snapshot history, newest first.
func (s *ProjectService) ListVersions(ctx context.Context, callerID uint, publicID string, limit int) ([]domain.ProjectVersion, error) {
	project, err := s.resolve(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, callerID, project); err != nil {
		return nil, err
	}
	versions, err := s.projectRepo.ListVersions(ctx, project.ID, limit)
	if err != nil {
		logrus.WithField("project_id", publicID).WithError(err).Error("Failed to list versions")
		return nil, ErrInternalServer
	}
	return versions, nil
}

// RestoreVersion replaces the live content with a snapshot's body. The
// restore goes through the normal save path, so the content being
// replaced is itself snapshotted first and nothing is lost.
func (s *ProjectService) RestoreVersion(ctx context.Context, callerID uint, publicID string, versionID uint) (*domain.Project, error) {
	project, err := s.resolve(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeWrite(ctx, callerID, project); err != nil {
		return nil, err
	}
	version, err := s.projectRepo.FindVersion(ctx, project.ID, versionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		logrus.WithField("project_id", publicID).WithError(err).Error("Failed to load version for restore")
		return nil, ErrInternalServer
	}
	return s.UpdateContent(ctx, callerID, publicID, version.Content())
}

// --- helpers ---

func (s *ProjectService) resolve(ctx context.Context, publicID string) (*domain.Project, error) {
	project, err := s.projectRepo.FindByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		logrus.WithField("project_id", publicID).WithError(err).Error("Failed to load project")
		return nil, ErrInternalServer
	}
	return project, nil
}

func (s *ProjectService) authorizeRead(ctx context.Context, callerID uint, project *domain.Project) error {
	if project.IsPublic || project.OwnerID == callerID {
		return nil
	}
	_, err := s.collabRepo.Find(ctx, project.ID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrForbidden
		}
		logrus.WithField("project_id", project.PublicID).WithError(err).Error("Failed to check collaborator access")
		return ErrInternalServer
	}
	return nil
}

func (s *ProjectService) authorizeWrite(ctx context.Context, callerID uint, project *domain.Project) error {
	if project.OwnerID == callerID {
		return nil
	}
	collab, err := s.collabRepo.Find(ctx, project.ID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrForbidden
		}
		logrus.WithField("project_id", project.PublicID).WithError(err).Error("Failed to check collaborator access")
		return ErrInternalServer
	}
	if !collab.CanEdit() {
		return ErrForbidden
	}
	return nil
}

func (s *ProjectService) enqueuePrune(projectID uint, logCtx *logrus.Entry) {
	if s.enqueuer == nil {
		return
	}
	payload, err := tasks.NewVersionPruneTask(projectID, s.versionKeep)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build version prune task payload")
		return
	}
	task := asynq.NewTask(tasks.TypeVersionPrune, payload)
	if _, err := s.enqueuer.Enqueue(task, asynq.Queue("low")); err != nil {
		// Pruning is housekeeping; a failed enqueue never fails the save.
		logCtx.WithError(err).Warn("Failed to enqueue version prune task")
	}
}

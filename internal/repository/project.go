package repository

import (
	"context"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// ContentUpdateResult reports what a content save did.
type ContentUpdateResult struct {
	Project     *domain.Project
	Snapshotted bool
}

// ProjectRepository defines storage for projects and their version
// history.
type ProjectRepository interface {
	// Create inserts a new project. Returns ErrDuplicateEntry when the
	// public ID collides.
	Create(ctx context.Context, project *domain.Project) error

	// FindByID loads a project by internal ID.
	FindByID(ctx context.Context, id uint) (*domain.Project, error)

	// FindByPublicID loads a project by its API-facing identifier.
	FindByPublicID(ctx context.Context, publicID string) (*domain.Project, error)

	// FindByOwner lists all projects owned by a user, newest first.
	FindByOwner(ctx context.Context, ownerID uint) ([]domain.Project, error)

	// Save persists metadata mutations on an already-loaded project.
	// Content saves must go through UpdateContent instead.
	Save(ctx context.Context, project *domain.Project) error

	// Delete removes a project together with its version history and
	// collaborator records.
	Delete(ctx context.Context, id uint) error

	// UpdateContent performs the compare-and-snapshot content save in a
	// single transaction: the current row is locked, compared to the
	// incoming content, and when different the previous body is written
	// as a ProjectVersion before the row is updated and its version
	// incremented. Identical content touches timestamps only.
	UpdateContent(ctx context.Context, projectID uint, incoming domain.Content) (*ContentUpdateResult, error)

	// ListVersions returns a project's snapshots, newest first.
	ListVersions(ctx context.Context, projectID uint, limit int) ([]domain.ProjectVersion, error)

	// FindVersion loads a single snapshot belonging to the project.
	FindVersion(ctx context.Context, projectID uint, versionID uint) (*domain.ProjectVersion, error)

	// PruneVersions deletes all but the newest keep snapshots and
	// returns how many rows were removed.
	PruneVersions(ctx context.Context, projectID uint, keep int) (int64, error)
}

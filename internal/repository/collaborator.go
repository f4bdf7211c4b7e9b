package repository

import (
	"context"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// CollaboratorRepository defines storage for project access grants.
type CollaboratorRepository interface {
	// Add inserts a collaborator record. Returns ErrDuplicateEntry when
	// the user already collaborates on the project.
	Add(ctx context.Context, collab *domain.Collaborator) error

	// Find returns the grant for one user on one project, or
	// ErrCollaboratorNotFound.
	Find(ctx context.Context, projectID, userID uint) (*domain.Collaborator, error)

	// ListByProject returns all grants on a project.
	ListByProject(ctx context.Context, projectID uint) ([]domain.Collaborator, error)

	// UpdateRole changes an existing grant's role.
	UpdateRole(ctx context.Context, projectID, userID uint, role string) error

	// Remove deletes a grant. Removing a non-existent grant returns
	// ErrCollaboratorNotFound.
	Remove(ctx context.Context, projectID, userID uint) error
}

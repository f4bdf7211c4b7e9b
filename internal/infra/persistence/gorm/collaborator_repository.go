package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
	"github.com/jacksonwyt/byldur-sub000/internal/repository"
)

// GormCollaboratorRepository is the gorm implementation of
// repository.CollaboratorRepository.
type GormCollaboratorRepository struct {
	db *gorm.DB
}

// NewGormCollaboratorRepository creates a GormCollaboratorRepository.
func NewGormCollaboratorRepository(db *gorm.DB) *GormCollaboratorRepository {
	if db == nil {
		panic("database connection cannot be nil for GormCollaboratorRepository")
	}
	return &GormCollaboratorRepository{db: db}
}

func (r *GormCollaboratorRepository) Add(ctx context.Context, collab *domain.Collaborator) error {
	if err := r.db.WithContext(ctx).Create(collab).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: add collaborator (project %d, user %d): %w", collab.ProjectID, collab.UserID, err)
	}
	return nil
}

func (r *GormCollaboratorRepository) Find(ctx context.Context, projectID, userID uint) (*domain.Collaborator, error) {
	var collab domain.Collaborator
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&collab).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCollaboratorNotFound
		}
		return nil, fmt.Errorf("gorm: find collaborator (project %d, user %d): %w", projectID, userID, err)
	}
	return &collab, nil
}

func (r *GormCollaboratorRepository) ListByProject(ctx context.Context, projectID uint) ([]domain.Collaborator, error) {
	var collabs []domain.Collaborator
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&collabs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list collaborators for project %d: %w", projectID, err)
	}
	return collabs, nil
}

func (r *GormCollaboratorRepository) UpdateRole(ctx context.Context, projectID, userID uint, role string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Collaborator{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("gorm: update collaborator role (project %d, user %d): %w", projectID, userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrCollaboratorNotFound
	}
	return nil
}

func (r *GormCollaboratorRepository) Remove(ctx context.Context, projectID, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&domain.Collaborator{})
	if res.Error != nil {
		return fmt.Errorf("gorm: remove collaborator (project %d, user %d): %w", projectID, userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrCollaboratorNotFound
	}
	return nil
}

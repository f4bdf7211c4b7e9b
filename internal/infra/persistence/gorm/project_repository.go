package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jacksonwyt/byldur-sub000/internal/content"
	"github.com/jacksonwyt/byldur-sub000/internal/domain"
	"github.com/jacksonwyt/byldur-sub000/internal/repository"
)

// GormProjectRepository is the gorm implementation of
// repository.ProjectRepository.
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a GormProjectRepository.
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	if db == nil {
		panic("database connection cannot be nil for GormProjectRepository")
	}
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	project.SyncContentColumns()
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create project %q: %w", project.PublicID, err)
	}
	project.LoadContent()
	return nil
}

func (r *GormProjectRepository) FindByID(ctx context.Context, id uint) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).First(&project, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProjectNotFound
		}
		return nil, fmt.Errorf("gorm: find project by id %d: %w", id, err)
	}
	project.LoadContent()
	return &project, nil
}

func (r *GormProjectRepository) FindByPublicID(ctx context.Context, publicID string) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProjectNotFound
		}
		return nil, fmt.Errorf("gorm: find project by public id %q: %w", publicID, err)
	}
	project.LoadContent()
	return &project, nil
}

func (r *GormProjectRepository) FindByOwner(ctx context.Context, ownerID uint) ([]domain.Project, error) {
	var projects []domain.Project
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find projects by owner %d: %w", ownerID, err)
	}
	for i := range projects {
		projects[i].LoadContent()
	}
	return projects, nil
}

func (r *GormProjectRepository) Save(ctx context.Context, project *domain.Project) error {
	project.SyncContentColumns()
	if err := r.db.WithContext(ctx).Save(project).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save project %d: %w", project.ID, err)
	}
	return nil
}

// Delete removes the project and cascades to its versions and
// collaborator grants inside one transaction.
func (r *GormProjectRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&domain.ProjectVersion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&domain.Collaborator{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Project{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrProjectNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("gorm: delete project %d: %w", id, err)
	}
	return nil
}

// UpdateContent implements the version-on-write invariant: the project
// row is locked for the duration of the transaction, the stored content
// is compared structurally to the incoming content, and only when they
// differ is a snapshot of the previous body written before the row is
// updated and its version incremented. A failure anywhere rolls back
// both writes, so no orphaned version record can survive.
func (r *GormProjectRepository) UpdateContent(ctx context.Context, projectID uint, incoming domain.Content) (*repository.ContentUpdateResult, error) {
	var result repository.ContentUpdateResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project domain.Project
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&project, projectID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrProjectNotFound
			}
			return err
		}

		snapshot, changed := domain.ApplyContentUpdate(&project, incoming, content.Equal)
		if changed {
			if err := tx.Create(snapshot).Error; err != nil {
				return fmt.Errorf("write version snapshot: %w", err)
			}
		}
		// Save also runs for the no-op case so UpdatedAt reflects the
		// save attempt.
		if err := tx.Save(&project).Error; err != nil {
			return fmt.Errorf("update project row: %w", err)
		}

		project.LoadContent()
		result.Project = &project
		result.Snapshotted = changed
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("gorm: update content for project %d: %w", projectID, err)
	}
	return &result, nil
}

func (r *GormProjectRepository) ListVersions(ctx context.Context, projectID uint, limit int) ([]domain.ProjectVersion, error) {
	var versions []domain.ProjectVersion
	q := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("gorm: list versions for project %d: %w", projectID, err)
	}
	return versions, nil
}

func (r *GormProjectRepository) FindVersion(ctx context.Context, projectID uint, versionID uint) (*domain.ProjectVersion, error) {
	var version domain.ProjectVersion
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND id = ?", projectID, versionID).
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrVersionNotFound
		}
		return nil, fmt.Errorf("gorm: find version %d for project %d: %w", versionID, projectID, err)
	}
	return &version, nil
}

// PruneVersions keeps the newest keep snapshots and deletes the rest.
func (r *GormProjectRepository) PruneVersions(ctx context.Context, projectID uint, keep int) (int64, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("gorm: prune versions: keep must be positive, got %d", keep)
	}
	var keepIDs []uint
	err := r.db.WithContext(ctx).
		Model(&domain.ProjectVersion{}).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(keep).
		Pluck("id", &keepIDs).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: prune versions for project %d: %w", projectID, err)
	}
	if len(keepIDs) < keep {
		// Fewer snapshots than the cap, nothing to prune.
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("project_id = ? AND id NOT IN ?", projectID, keepIDs).
		Delete(&domain.ProjectVersion{})
	if res.Error != nil {
		return 0, fmt.Errorf("gorm: prune versions for project %d: %w", projectID, res.Error)
	}
	return res.RowsAffected, nil
}

// isDuplicateEntry detects MySQL unique constraint violations (1062).
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// Package mocks provides hand-written testify mocks for the repository
// interfaces, used by the service tests.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
	"github.com/jacksonwyt/byldur-sub000/internal/repository"
)

// ProjectRepository mocks repository.ProjectRepository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *ProjectRepository) FindByID(ctx context.Context, id uint) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*domain.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) FindByPublicID(ctx context.Context, publicID string) (*domain.Project, error) {
	args := m.Called(ctx, publicID)
	if p, ok := args.Get(0).(*domain.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) FindByOwner(ctx context.Context, ownerID uint) ([]domain.Project, error) {
	args := m.Called(ctx, ownerID)
	if ps, ok := args.Get(0).([]domain.Project); ok {
		return ps, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Save(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *ProjectRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProjectRepository) UpdateContent(ctx context.Context, projectID uint, incoming domain.Content) (*repository.ContentUpdateResult, error) {
	args := m.Called(ctx, projectID, incoming)
	if r, ok := args.Get(0).(*repository.ContentUpdateResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) ListVersions(ctx context.Context, projectID uint, limit int) ([]domain.ProjectVersion, error) {
	args := m.Called(ctx, projectID, limit)
	if vs, ok := args.Get(0).([]domain.ProjectVersion); ok {
		return vs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) FindVersion(ctx context.Context, projectID uint, versionID uint) (*domain.ProjectVersion, error) {
	args := m.Called(ctx, projectID, versionID)
	if v, ok := args.Get(0).(*domain.ProjectVersion); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) PruneVersions(ctx context.Context, projectID uint, keep int) (int64, error) {
	args := m.Called(ctx, projectID, keep)
	return args.Get(0).(int64), args.Error(1)
}

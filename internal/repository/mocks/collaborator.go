package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// CollaboratorRepository mocks repository.CollaboratorRepository.
type CollaboratorRepository struct {
	mock.Mock
}

func (m *CollaboratorRepository) Add(ctx context.Context, collab *domain.Collaborator) error {
	args := m.Called(ctx, collab)
	return args.Error(0)
}

func (m *CollaboratorRepository) Find(ctx context.Context, projectID, userID uint) (*domain.Collaborator, error) {
	args := m.Called(ctx, projectID, userID)
	if c, ok := args.Get(0).(*domain.Collaborator); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CollaboratorRepository) ListByProject(ctx context.Context, projectID uint) ([]domain.Collaborator, error) {
	args := m.Called(ctx, projectID)
	if cs, ok := args.Get(0).([]domain.Collaborator); ok {
		return cs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CollaboratorRepository) UpdateRole(ctx context.Context, projectID, userID uint, role string) error {
	args := m.Called(ctx, projectID, userID, role)
	return args.Error(0)
}

func (m *CollaboratorRepository) Remove(ctx context.Context, projectID, userID uint) error {
	args := m.Called(ctx, projectID, userID)
	return args.Error(0)
}

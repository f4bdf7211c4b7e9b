package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// StateRepository mocks repository.StateRepository.
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) AddPresence(ctx context.Context, projectID uint, entry domain.PresenceEntry) error {
	args := m.Called(ctx, projectID, entry)
	return args.Error(0)
}

func (m *StateRepository) RemovePresence(ctx context.Context, projectID uint, connID string) error {
	args := m.Called(ctx, projectID, connID)
	return args.Error(0)
}

func (m *StateRepository) SetCursor(ctx context.Context, projectID uint, connID string, cursor *domain.CursorPosition) error {
	args := m.Called(ctx, projectID, connID, cursor)
	return args.Error(0)
}

func (m *StateRepository) ListPresence(ctx context.Context, projectID uint) ([]domain.PresenceEntry, error) {
	args := m.Called(ctx, projectID)
	if es, ok := args.Get(0).([]domain.PresenceEntry); ok {
		return es, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StateRepository) SweepStalePresence(ctx context.Context, maxAge time.Duration) (int, error) {
	args := m.Called(ctx, maxAge)
	return args.Int(0), args.Error(1)
}

func (m *StateRepository) CleanupProjectState(ctx context.Context, projectID uint) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

func (m *StateRepository) PublishRelay(ctx context.Context, projectID uint, frame domain.RelayFrame) error {
	args := m.Called(ctx, projectID, frame)
	return args.Error(0)
}

func (m *StateRepository) SubscribeRelay(ctx context.Context, projectID uint) (<-chan domain.RelayFrame, func(), error) {
	args := m.Called(ctx, projectID)
	var ch <-chan domain.RelayFrame
	if c, ok := args.Get(0).(<-chan domain.RelayFrame); ok {
		ch = c
	} else if c, ok := args.Get(0).(chan domain.RelayFrame); ok {
		ch = c
	}
	var stop func()
	if f, ok := args.Get(1).(func()); ok {
		stop = f
	}
	return ch, stop, args.Error(2)
}

func (m *StateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

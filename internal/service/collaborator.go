package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
	"github.com/jacksonwyt/byldur-sub000/internal/repository"
)

// CollaboratorInfo joins a grant with the user it names, the shape the
// collaborator list endpoint returns.
type CollaboratorInfo struct {
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// CollaboratorService manages project access grants. These are plain
// request/response operations against the backend, not relay messages.
type CollaboratorService struct {
	projectRepo repository.ProjectRepository
	collabRepo  repository.CollaboratorRepository
	userRepo    repository.UserRepository
}

// NewCollaboratorService creates a CollaboratorService.
func NewCollaboratorService(
	projectRepo repository.ProjectRepository,
	collabRepo repository.CollaboratorRepository,
	userRepo repository.UserRepository,
) *CollaboratorService {
	if projectRepo == nil || collabRepo == nil || userRepo == nil {
		panic("all repositories must be non-nil for CollaboratorService")
	}
	return &CollaboratorService{
		projectRepo: projectRepo,
		collabRepo:  collabRepo,
		userRepo:    userRepo,
	}
}

// Invite adds a user to the project by username. Only the owner may
// invite.
func (s *CollaboratorService) Invite(ctx context.Context, callerID uint, publicID, username, role string) (*CollaboratorInfo, error) {
	logCtx := logrus.WithFields(logrus.Fields{"project_id": publicID, "invitee": username})

	if !domain.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	project, err := s.ownedProject(ctx, callerID, publicID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		logCtx.WithError(err).Error("Failed to look up invitee")
		return nil, ErrInternalServer
	}
	if user.ID == project.OwnerID {
		return nil, ErrAlreadyCollaborator
	}

	collab := &domain.Collaborator{ProjectID: project.ID, UserID: user.ID, Role: role}
	if err := s.collabRepo.Add(ctx, collab); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrAlreadyCollaborator
		}
		logCtx.WithError(err).Error("Failed to add collaborator")
		return nil, ErrInternalServer
	}

	logCtx.WithField("role", role).Info("Collaborator invited")
	return &CollaboratorInfo{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.Name(),
		Role:        role,
	}, nil
}

// List returns every collaborator on the project with their user info.
// Any collaborator or the owner may list.
func (s *CollaboratorService) List(ctx context.Context, callerID uint, publicID string) ([]CollaboratorInfo, error) {
	project, err := s.accessibleProject(ctx, callerID, publicID)
	if err != nil {
		return nil, err
	}
	collabs, err := s.collabRepo.ListByProject(ctx, project.ID)
	if err != nil {
		logrus.WithField("project_id", publicID).WithError(err).Error("Failed to list collaborators")
		return nil, ErrInternalServer
	}

	infos := make([]CollaboratorInfo, 0, len(collabs))
	for _, c := range collabs {
		info := CollaboratorInfo{UserID: c.UserID, Role: c.Role}
		if user, err := s.userRepo.FindByID(ctx, c.UserID); err == nil {
			info.Username = user.Username
			info.DisplayName = user.Name()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// UpdateRole changes an existing collaborator's role. Owner only.
func (s *CollaboratorService) UpdateRole(ctx context.Context, callerID uint, publicID string, userID uint, role string) error {
	if !domain.ValidRole(role) {
		return ErrInvalidRole
	}
	project, err := s.ownedProject(ctx, callerID, publicID)
	if err != nil {
		return err
	}
	if err := s.collabRepo.UpdateRole(ctx, project.ID, userID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		logrus.WithField("project_id", publicID).WithError(err).Error("Failed to update collaborator role")
		return ErrInternalServer
	}
	return nil
}

// Remove revokes a collaborator's access. The owner may remove anyone;
// a collaborator may remove themselves (leave).
func (s *CollaboratorService) Remove(ctx context.Context, callerID uint, publicID string, userID uint) error {
	project, err := s.resolveProject(ctx, publicID)
	if err != nil {
		return err
	}
	if project.OwnerID != callerID && callerID != userID {
		return ErrForbidden
	}
	if err := s.collabRepo.Remove(ctx, project.ID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		logrus.WithField("project_id", publicID).WithError(err).Error("Failed to remove collaborator")
		return ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"project_id": publicID, "user_id": userID}).Info("Collaborator removed")
	return nil
}

// --- helpers ---

func (s *CollaboratorService) resolveProject(ctx context.Context, publicID string) (*domain.Project, error) {
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

func (s *CollaboratorService) ownedProject(ctx context.Context, callerID uint, publicID string) (*domain.Project, error) {
	project, err := s.resolveProject(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != callerID {
		return nil, ErrForbidden
	}
	return project, nil
}

func (s *CollaboratorService) accessibleProject(ctx context.Context, callerID uint, publicID string) (*domain.Project, error) {
	project, err := s.resolveProject(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID == callerID {
		return project, nil
	}
	if _, err := s.collabRepo.Find(ctx, project.ID, callerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrForbidden
		}
		logrus.WithField("project_id", publicID).WithError(err).Error("Failed to check collaborator access")
		return nil, ErrInternalServer
	}
	return project, nil
}

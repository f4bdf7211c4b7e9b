package service

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
	"github.com/jacksonwyt/byldur-sub000/internal/repository"
	"github.com/jacksonwyt/byldur-sub000/internal/repository/mocks"
)

// fakeEnqueuer records enqueued tasks without a running redis.
type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func newProjectServiceForTest() (*ProjectService, *mocks.ProjectRepository, *mocks.CollaboratorRepository, *mocks.StateRepository, *fakeEnqueuer) {
	projectRepo := new(mocks.ProjectRepository)
	collabRepo := new(mocks.CollaboratorRepository)
	stateRepo := new(mocks.StateRepository)
	enqueuer := &fakeEnqueuer{}
	svc := NewProjectService(projectRepo, collabRepo, stateRepo, enqueuer, 100, "https://sites.example.com")
	return svc, projectRepo, collabRepo, stateRepo, enqueuer
}

func testProject() *domain.Project {
	return &domain.Project{
		ID:       7,
		PublicID: "pub-7",
		OwnerID:  1,
		Name:     "Landing Page",
		Version:  3,
	}
}

func TestProjectService_Create_Success(t *testing.T) {
	svc, projectRepo, _, _, _ := newProjectServiceForTest()
	projectRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Project")).Return(nil)

	project, err := svc.Create(context.Background(), 1, "Landing Page", "first draft", domain.Content{HTML: "<p>hi</p>"})

	require.NoError(t, err)
	assert.NotEmpty(t, project.PublicID)
	assert.Equal(t, uint(1), project.OwnerID)
	assert.Equal(t, 1, project.Version)
	projectRepo.AssertExpectations(t)
}

func TestProjectService_Create_EmptyNameRejected(t *testing.T) {
	svc, projectRepo, _, _, _ := newProjectServiceForTest()

	_, err := svc.Create(context.Background(), 1, "", "", domain.Content{})

	assert.ErrorIs(t, err, ErrInvalidInput)
	projectRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProjectService_Get_OwnerAllowed(t *testing.T) {
	svc, projectRepo, collabRepo, _, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)

	project, err := svc.Get(context.Background(), 1, "pub-7")

	require.NoError(t, err)
	assert.Equal(t, "Landing Page", project.Name)
	collabRepo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectService_Get_PublicProjectAllowsAnyone(t *testing.T) {
	svc, projectRepo, collabRepo, _, _ := newProjectServiceForTest()
	public := testProject()
	public.IsPublic = true
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(public, nil)

	_, err := svc.Get(context.Background(), 99, "pub-7")

	require.NoError(t, err)
	collabRepo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectService_Get_StrangerForbidden(t *testing.T) {
	svc, projectRepo, collabRepo, _, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)
	collabRepo.On("Find", mock.Anything, uint(7), uint(99)).Return(nil, repository.ErrCollaboratorNotFound)

	_, err := svc.Get(context.Background(), 99, "pub-7")

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestProjectService_Get_CollaboratorAllowed(t *testing.T) {
	svc, projectRepo, collabRepo, _, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)
	collabRepo.On("Find", mock.Anything, uint(7), uint(2)).
		Return(&domain.Collaborator{ProjectID: 7, UserID: 2, Role: domain.RoleViewer}, nil)

	_, err := svc.Get(context.Background(), 2, "pub-7")

	require.NoError(t, err)
}

func TestProjectService_Get_NotFound(t *testing.T) {
	svc, projectRepo, _, _, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "missing").Return(nil, repository.ErrProjectNotFound)

	_, err := svc.Get(context.Background(), 1, "missing")

	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectService_UpdateMeta_NeverBumpsVersion(t *testing.T) {
	svc, projectRepo, _, _, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)
	projectRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Project")).Return(nil)

	name := "Renamed"
	public := true
	project, err := svc.UpdateMeta(context.Background(), 1, "pub-7", MetaUpdate{Name: &name, IsPublic: &public})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", project.Name)
	assert.True(t, project.IsPublic)
	assert.Equal(t, 3, project.Version)
}

func TestProjectService_UpdateMeta_NonOwnerForbidden(t *testing.T) {
	svc, projectRepo, _, _, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)

	name := "Renamed"
	_, err := svc.UpdateMeta(context.Background(), 2, "pub-7", MetaUpdate{Name: &name})

	assert.ErrorIs(t, err, ErrForbidden)
	projectRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProjectService_UpdateContent_SnapshotEnqueuesPrune(t *testing.T) {
	svc, projectRepo, _, _, enqueuer := newProjectServiceForTest()
	updated := testProject()
	updated.Version = 4
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)
	projectRepo.On("UpdateContent", mock.Anything, uint(7), mock.AnythingOfType("domain.Content")).
		Return(&repository.ContentUpdateResult{Project: updated, Snapshotted: true}, nil)

	project, err := svc.UpdateContent(context.Background(), 1, "pub-7", domain.Content{HTML: "<p>new</p>"})

	require.NoError(t, err)
	assert.Equal(t, 4, project.Version)
	require.Len(t, enqueuer.tasks, 1)
	assert.Equal(t, "version:prune", enqueuer.tasks[0].Type())
}

func TestProjectService_UpdateContent_NoOpSkipsPrune(t *testing.T) {
	svc, projectRepo, _, _, enqueuer := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)
	projectRepo.On("UpdateContent", mock.Anything, uint(7), mock.AnythingOfType("domain.Content")).
		Return(&repository.ContentUpdateResult{Project: testProject(), Snapshotted: false}, nil)

	project, err := svc.UpdateContent(context.Background(), 1, "pub-7", domain.Content{HTML: "<p>same</p>"})

	require.NoError(t, err)
	assert.Equal(t, 3, project.Version)
	assert.Empty(t, enqueuer.tasks)
}

func TestProjectService_UpdateContent_EditorAllowed(t *testing.T) {
	svc, projectRepo, collabRepo, _, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)
	collabRepo.On("Find", mock.Anything, uint(7), uint(2)).
		Return(&domain.Collaborator{ProjectID: 7, UserID: 2, Role: domain.RoleEditor}, nil)
	projectRepo.On("UpdateContent", mock.Anything, uint(7), mock.AnythingOfType("domain.Content")).
		Return(&repository.ContentUpdateResult{Project: testProject(), Snapshotted: false}, nil)

	_, err := svc.UpdateContent(context.Background(), 2, "pub-7", domain.Content{HTML: "<p>x</p>"})

	require.NoError(t, err)
}

func TestProjectService_UpdateContent_ViewerForbidden(t *testing.T) {
	svc, projectRepo, collabRepo, _, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)
	collabRepo.On("Find", mock.Anything, uint(7), uint(2)).
		Return(&domain.Collaborator{ProjectID: 7, UserID: 2, Role: domain.RoleViewer}, nil)

	_, err := svc.UpdateContent(context.Background(), 2, "pub-7", domain.Content{HTML: "<p>x</p>"})

	assert.ErrorIs(t, err, ErrForbidden)
	projectRepo.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectService_Publish_SetsURL(t *testing.T) {
	svc, projectRepo, _, _, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)
	projectRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Project")).Return(nil)

	project, err := svc.Publish(context.Background(), 1, "pub-7")

	require.NoError(t, err)
	assert.True(t, project.IsPublic)
	assert.Equal(t, "https://sites.example.com/pub-7", project.PublishedURL)
}

func TestProjectService_Delete_CleansLiveState(t *testing.T) {
	svc, projectRepo, _, stateRepo, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)
	projectRepo.On("Delete", mock.Anything, uint(7)).Return(nil)
	stateRepo.On("CleanupProjectState", mock.Anything, uint(7)).Return(nil)

	err := svc.Delete(context.Background(), 1, "pub-7")

	require.NoError(t, err)
	stateRepo.AssertExpectations(t)
}

func TestProjectService_Delete_NonOwnerForbidden(t *testing.T) {
	svc, projectRepo, _, _, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)

	err := svc.Delete(context.Background(), 2, "pub-7")

	assert.ErrorIs(t, err, ErrForbidden)
	projectRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestProjectService_RestoreVersion_GoesThroughSavePath(t *testing.T) {
	svc, projectRepo, _, _, enqueuer := newProjectServiceForTest()
	restored := testProject()
	restored.Version = 4
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)
	projectRepo.On("FindVersion", mock.Anything, uint(7), uint(12)).
		Return(&domain.ProjectVersion{ID: 12, ProjectID: 7, HTML: "<p>old</p>", Version: 2}, nil)
	projectRepo.On("UpdateContent", mock.Anything, uint(7), domain.Content{HTML: "<p>old</p>"}).
		Return(&repository.ContentUpdateResult{Project: restored, Snapshotted: true}, nil)

	project, err := svc.RestoreVersion(context.Background(), 1, "pub-7", 12)

	require.NoError(t, err)
	assert.Equal(t, 4, project.Version)
	// Restoring snapshots the content it replaced, so pruning still runs.
	assert.Len(t, enqueuer.tasks, 1)
}

func TestProjectService_RestoreVersion_MissingVersion(t *testing.T) {
	svc, projectRepo, _, _, _ := newProjectServiceForTest()
	projectRepo.On("FindByPublicID", mock.Anything, "pub-7").Return(testProject(), nil)
	projectRepo.On("FindVersion", mock.Anything, uint(7), uint(12)).Return(nil, repository.ErrVersionNotFound)

	_, err := svc.RestoreVersion(context.Background(), 1, "pub-7", 12)

	assert.ErrorIs(t, err, ErrVersionNotFound)
}

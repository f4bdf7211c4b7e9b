package service

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
	"github.com/jacksonwyt/byldur-sub000/internal/repository"
	"github.com/jacksonwyt/byldur-sub000/internal/repository/mocks"
)

const testSecret = "test-secret-key"

func newAuthServiceForTest(t *testing.T) (*AuthService, *mocks.UserRepository) {
	t.Helper()
	userRepo := new(mocks.UserRepository)
	svc, err := NewAuthService(userRepo, testSecret, 1)
	require.NoError(t, err)
	return svc, userRepo
}

func TestAuthService_Register_HashesPassword(t *testing.T) {
	svc, userRepo := newAuthServiceForTest(t)
	var saved *domain.User
	userRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*domain.User)
			saved.ID = 5
		}).
		Return(nil)

	user, err := svc.Register(context.Background(), "alice", "s3cret", "alice@example.com", "Alice")

	require.NoError(t, err)
	assert.Equal(t, uint(5), user.ID)
	// The returned struct never carries the password.
	assert.Empty(t, user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("s3cret")))
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	svc, userRepo := newAuthServiceForTest(t)
	userRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).
		Return(repository.ErrDuplicateEntry)

	_, err := svc.Register(context.Background(), "alice", "s3cret", "", "")

	assert.ErrorIs(t, err, ErrRegistrationFailed)
}

func TestAuthService_Register_MissingFields(t *testing.T) {
	svc, userRepo := newAuthServiceForTest(t)

	_, err := svc.Register(context.Background(), "alice", "", "", "")

	assert.ErrorIs(t, err, ErrInvalidInput)
	userRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, userRepo := newAuthServiceForTest(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	userRepo.On("FindByUsername", mock.Anything, "alice").
		Return(&domain.User{ID: 5, Username: "alice", Password: string(hash)}, nil)

	token, err := svc.Login(context.Background(), "alice", "s3cret")

	require.NoError(t, err)
	parsed, err := jwt.Parse(token, func(tk *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(5), claims["user_id"])
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, userRepo := newAuthServiceForTest(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	userRepo.On("FindByUsername", mock.Anything, "alice").
		Return(&domain.User{ID: 5, Username: "alice", Password: string(hash)}, nil)

	_, err := svc.Login(context.Background(), "alice", "wrong")

	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestAuthService_Login_UnknownUserSameError(t *testing.T) {
	svc, userRepo := newAuthServiceForTest(t)
	userRepo.On("FindByUsername", mock.Anything, "ghost").Return(nil, repository.ErrUserNotFound)

	_, err := svc.Login(context.Background(), "ghost", "whatever")

	// Unknown user and bad password are indistinguishable to the caller.
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestNewAuthService_RequiresSecret(t *testing.T) {
	_, err := NewAuthService(new(mocks.UserRepository), "", 1)
	assert.Error(t, err)
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	forumModel "carforum/internal/domain/forum/model"
	"carforum/internal/domain/user/model"
	"carforum/internal/pkg/config"
	"carforum/pkg/errs"
	baseModel "carforum/pkg/model"
	"carforum/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsernames(ctx context.Context, usernames []string) ([]model.User, error) {
	args := m.Called(ctx, usernames)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProfileImage(ctx context.Context, id uint, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}

func (m *MockUserRepository) CreateLoginHistory(ctx context.Context, h *model.LoginHistory) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *MockUserRepository) CloseLatestLogin(ctx context.Context, userID uint, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

// MockProfileContent is a mock of ProfileContent
type MockProfileContent struct {
	mock.Mock
}

func (m *MockProfileContent) PostsByAuthor(ctx context.Context, userID uint, offset, limit int) ([]forumModel.Post, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	return args.Get(0).([]forumModel.Post), args.Get(1).(int64), args.Error(2)
}

func (m *MockProfileContent) RepliesByAuthor(ctx context.Context, userID uint, offset, limit int) ([]forumModel.Reply, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	return args.Get(0).([]forumModel.Reply), args.Get(1).(int64), args.Error(2)
}

// MockConversationClearer is a mock of ConversationClearer
type MockConversationClearer struct {
	mock.Mock
}

func (m *MockConversationClearer) Clear(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func createTestUser(id uint, username, password string) *model.User {
	hash, _ := utils.HashPassword(password)
	return &model.User{
		BaseModel:    baseModel.BaseModel{ID: id},
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		service := NewUserService(mockRepo, nil, nil, nil, 5)

		mockRepo.On("GetByUsername", ctx, "alice").Return(nil, errs.ErrNotFound)
		mockRepo.On("GetByEmail", ctx, "alice@example.com").Return(nil, errs.ErrNotFound)
		mockRepo.On("Create", ctx, mock.AnythingOfType("*model.User")).Return(nil)

		user, err := service.Register(ctx, " alice ", "secret", "alice@example.com")

		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, model.DefaultProfileImage, user.ProfileImageURL)
		assert.NotEqual(t, "secret", user.PasswordHash)
		assert.True(t, utils.CheckPassword(user.PasswordHash, "secret"))
		mockRepo.AssertExpectations(t)
	})

	t.Run("validation errors name the field", func(t *testing.T) {
		service := NewUserService(new(MockUserRepository), nil, nil, nil, 5)
		cases := []struct {
			name, username, password, email, field string
		}{
			{"empty username", "", "pw", "a@b.co", "username"},
			{"empty password", "bob", "", "a@b.co", "password"},
			{"bad email", "bob", "pw", "not-an-email", "email"},
			{"email without dot", "bob", "pw", "bob@localhost", "email"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := service.Register(ctx, tc.username, tc.password, tc.email)
				var ve *errs.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tc.field, ve.Field)
				assert.ErrorIs(t, err, errs.ErrValidation)
			})
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		service := NewUserService(mockRepo, nil, nil, nil, 5)
		mockRepo.On("GetByUsername", ctx, "alice").Return(createTestUser(1, "alice", "x"), nil)

		_, err := service.Register(ctx, "alice", "secret", "other@example.com")

		var ve *errs.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "username", ve.Field)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		service := NewUserService(mockRepo, nil, nil, nil, 5)
		mockRepo.On("GetByUsername", ctx, "carol").Return(nil, errs.ErrNotFound)
		mockRepo.On("GetByEmail", ctx, "alice@example.com").Return(createTestUser(1, "alice", "x"), nil)

		_, err := service.Register(ctx, "carol", "secret", "alice@example.com")

		var ve *errs.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "email", ve.Field)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	config.GlobalConfig.JWT.Secret = strings.Repeat("k", 32)

	t.Run("success records history and issues session token", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		service := NewUserService(mockRepo, nil, nil, nil, 5)
		user := createTestUser(3, "alice", "secret")

		mockRepo.On("GetByUsername", ctx, "alice").Return(user, nil)
		mockRepo.On("CreateLoginHistory", ctx, mock.MatchedBy(func(h *model.LoginHistory) bool {
			return h.UserID == 3 && h.Username == "alice" && h.LogoutTime == nil
		})).Return(nil)

		result, err := service.Login(ctx, "alice", "secret")

		require.NoError(t, err)
		assert.NotEmpty(t, result.SessionID)
		claims, err := utils.ParseToken(result.Token)
		require.NoError(t, err)
		assert.Equal(t, uint(3), claims.UserID)
		assert.Equal(t, result.SessionID, claims.SessionID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		service := NewUserService(mockRepo, nil, nil, nil, 5)
		mockRepo.On("GetByUsername", ctx, "alice").Return(createTestUser(3, "alice", "secret"), nil)

		_, err := service.Login(ctx, "alice", "wrong")

		assert.ErrorIs(t, err, errs.ErrUnauthorized)
		mockRepo.AssertNotCalled(t, "CreateLoginHistory", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		service := NewUserService(mockRepo, nil, nil, nil, 5)
		mockRepo.On("GetByUsername", ctx, "ghost").Return(nil, errs.ErrNotFound)

		_, err := service.Login(ctx, "ghost", "secret")
		assert.ErrorIs(t, err, errs.ErrUnauthorized)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("closes history and clears conversation", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		chats := new(MockConversationClearer)
		service := NewUserService(mockRepo, nil, chats, nil, 5)

		mockRepo.On("CloseLatestLogin", ctx, uint(3), mock.AnythingOfType("time.Time")).Return(nil)
		chats.On("Clear", ctx, "sess-1").Return(nil)

		require.NoError(t, service.Logout(ctx, 3, "sess-1"))
		mockRepo.AssertExpectations(t)
		chats.AssertExpectations(t)
	})

	t.Run("conversation failure does not fail logout", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		chats := new(MockConversationClearer)
		service := NewUserService(mockRepo, nil, chats, nil, 5)

		mockRepo.On("CloseLatestLogin", ctx, uint(3), mock.AnythingOfType("time.Time")).Return(nil)
		chats.On("Clear", ctx, "sess-1").Return(errors.New("redis down"))

		assert.NoError(t, service.Logout(ctx, 3, "sess-1"))
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(3, "alice", "old")

	t.Run("mismatched confirmation", func(t *testing.T) {
		service := NewUserService(new(MockUserRepository), nil, nil, nil, 5)
		err := service.ChangePassword(ctx, 3, "old", "new1", "new2")
		var ve *errs.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "confirm_password", ve.Field)
	})

	t.Run("wrong current password", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		service := NewUserService(mockRepo, nil, nil, nil, 5)
		mockRepo.On("GetByID", ctx, uint(3)).Return(user, nil)

		err := service.ChangePassword(ctx, 3, "nope", "new", "new")
		var ve *errs.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "current_password", ve.Field)
		mockRepo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("success", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		service := NewUserService(mockRepo, nil, nil, nil, 5)
		mockRepo.On("GetByID", ctx, uint(3)).Return(user, nil)
		mockRepo.On("UpdatePassword", ctx, uint(3), mock.MatchedBy(func(hash string) bool {
			return utils.CheckPassword(hash, "new")
		})).Return(nil)

		require.NoError(t, service.ChangePassword(ctx, 3, "old", "new", "new"))
		mockRepo.AssertExpectations(t)
	})
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	content := new(MockProfileContent)
	service := NewUserService(mockRepo, content, nil, nil, 5)

	mockRepo.On("GetByID", ctx, uint(3)).Return(createTestUser(3, "alice", "x"), nil)
	content.On("PostsByAuthor", ctx, uint(3), 5, 5).Return([]forumModel.Post{{Title: "p6"}}, int64(6), nil)
	content.On("RepliesByAuthor", ctx, uint(3), 0, 5).Return([]forumModel.Reply{}, int64(0), nil)

	profile, err := service.GetProfile(ctx, 3, 2, 0)

	require.NoError(t, err)
	assert.Equal(t, "alice", profile.User.Username)
	assert.Equal(t, int64(6), profile.Posts.Total)
	assert.Equal(t, 2, profile.Posts.Pages)
	assert.Equal(t, 2, profile.Posts.Page)
	assert.Equal(t, 1, profile.Replies.Page)
	content.AssertExpectations(t)
}

func TestUpdateAvatarWithoutUploader(t *testing.T) {
	service := NewUserService(new(MockUserRepository), nil, nil, nil, 5)

	_, err := service.UpdateAvatar(context.Background(), 3, nil)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

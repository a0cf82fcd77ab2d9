package service

import (
	"context"
	"errors"
	"testing"

	forumModel "carforum/internal/domain/forum/model"
	"carforum/internal/domain/notification/model"
	"carforum/internal/domain/notification/repository"
	userModel "carforum/internal/domain/user/model"
	"carforum/pkg/database"
	baseModel "carforum/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockUserResolver is a mock of UserResolver
type MockUserResolver struct {
	mock.Mock
}

func (m *MockUserResolver) GetByUsernames(ctx context.Context, usernames []string) ([]userModel.User, error) {
	args := m.Called(ctx, usernames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]userModel.User), args.Error(1)
}

// MockPushService is a mock of push.PushService
type MockPushService struct {
	mock.Mock
}

func (m *MockPushService) PushToAccount(accountID, title, body string, ext map[string]string) error {
	args := m.Called(accountID, title, body, ext)
	return args.Error(0)
}

// failingRepo 对指定接收者写入失败
type failingRepo struct {
	repository.NotificationRepository
	failFor uint
}

func (r *failingRepo) Create(ctx context.Context, n *model.Notification) error {
	if n.UserID == r.failFor {
		return errors.New("disk full")
	}
	return r.NotificationRepository.Create(ctx, n)
}

func user(id uint, name string) userModel.User {
	return userModel.User{BaseModel: baseModel.BaseModel{ID: id}, Username: name, Email: name + "@example.com"}
}

func setupDB(t *testing.T) *gorm.DB {
	db, err := database.OpenSQLite("file::memory:", &userModel.User{}, &model.Notification{})
	require.NoError(t, err)
	return db
}

func allNotifications(t *testing.T, db *gorm.DB) []model.Notification {
	var list []model.Notification
	require.NoError(t, db.Order("id asc").Find(&list).Error)
	return list
}

func testPost() *forumModel.Post {
	return &forumModel.Post{BaseModel: baseModel.BaseModel{ID: 10}, UserID: 1, Title: "t"}
}

func TestOnPostCreated(t *testing.T) {
	ctx := context.Background()

	t.Run("mentions resolved users and skips unknown and self", func(t *testing.T) {
		db := setupDB(t)
		users := new(MockUserResolver)
		d := NewDispatcher(repository.NewNotificationRepository(db), users, nil, nil, 50)

		post := testPost()
		post.Content = "hi @bob and @ghost, also @alice @bob"
		users.On("GetByUsernames", ctx, []string{"alice", "bob", "ghost"}).
			Return([]userModel.User{user(1, "alice"), user(2, "bob")}, nil)

		created, err := d.OnPostCreated(ctx, post)

		require.NoError(t, err)
		assert.Equal(t, 1, created)
		list := allNotifications(t, db)
		require.Len(t, list, 1)
		assert.Equal(t, uint(2), list[0].UserID)
		assert.Equal(t, uint(1), list[0].ActorID)
		assert.Equal(t, model.TypeMention, list[0].NotificationType)
		assert.Equal(t, uint(10), *list[0].PostID)
		assert.Nil(t, list[0].ReplyID)
		assert.Equal(t, post.Content+"...", list[0].Message)
		assert.False(t, list[0].IsRead)
	})

	t.Run("no mentions makes no lookup", func(t *testing.T) {
		users := new(MockUserResolver)
		d := NewDispatcher(repository.NewNotificationRepository(setupDB(t)), users, nil, nil, 50)

		post := testPost()
		post.Content = "plain text, mail me at a@ b"
		created, err := d.OnPostCreated(ctx, post)

		require.NoError(t, err)
		assert.Zero(t, created)
		users.AssertNotCalled(t, "GetByUsernames", mock.Anything, mock.Anything)
	})

	t.Run("preview truncated to fifty characters", func(t *testing.T) {
		db := setupDB(t)
		users := new(MockUserResolver)
		d := NewDispatcher(repository.NewNotificationRepository(db), users, nil, nil, 50)

		post := testPost()
		post.Content = "@bob 0123456789012345678901234567890123456789012345678901234567890"
		users.On("GetByUsernames", ctx, []string{"bob"}).Return([]userModel.User{user(2, "bob")}, nil)

		_, err := d.OnPostCreated(ctx, post)
		require.NoError(t, err)
		list := allNotifications(t, db)
		require.Len(t, list, 1)
		assert.Equal(t, string([]rune(post.Content)[:50])+"...", list[0].Message)
	})
}

func TestOnReplyCreated(t *testing.T) {
	ctx := context.Background()
	post := testPost()

	t.Run("reply by other user notifies post author once", func(t *testing.T) {
		db := setupDB(t)
		users := new(MockUserResolver)
		d := NewDispatcher(repository.NewNotificationRepository(db), users, nil, nil, 50)

		reply := &forumModel.Reply{BaseModel: baseModel.BaseModel{ID: 7}, PostID: 10, UserID: 2, Content: "nice one @alice"}
		users.On("GetByUsernames", ctx, []string{"alice"}).Return([]userModel.User{user(1, "alice")}, nil)

		created, err := d.OnReplyCreated(ctx, post, reply)

		require.NoError(t, err)
		assert.Equal(t, 1, created)
		list := allNotifications(t, db)
		require.Len(t, list, 1)
		assert.Equal(t, model.TypeNewReply, list[0].NotificationType)
		assert.Equal(t, uint(1), list[0].UserID)
		assert.Equal(t, uint(2), list[0].ActorID)
		assert.Equal(t, uint(7), *list[0].ReplyID)
	})

	t.Run("author replying to own post gets nothing", func(t *testing.T) {
		db := setupDB(t)
		d := NewDispatcher(repository.NewNotificationRepository(db), new(MockUserResolver), nil, nil, 50)

		reply := &forumModel.Reply{BaseModel: baseModel.BaseModel{ID: 8}, PostID: 10, UserID: 1, Content: "bump"}
		created, err := d.OnReplyCreated(ctx, post, reply)

		require.NoError(t, err)
		assert.Zero(t, created)
		assert.Empty(t, allNotifications(t, db))
	})

	t.Run("mentions of third parties and self", func(t *testing.T) {
		db := setupDB(t)
		users := new(MockUserResolver)
		d := NewDispatcher(repository.NewNotificationRepository(db), users, nil, nil, 50)

		reply := &forumModel.Reply{BaseModel: baseModel.BaseModel{ID: 9}, PostID: 10, UserID: 2, Content: "@bob @carol look"}
		users.On("GetByUsernames", ctx, []string{"bob", "carol"}).
			Return([]userModel.User{user(2, "bob"), user(3, "carol")}, nil)

		created, err := d.OnReplyCreated(ctx, post, reply)

		require.NoError(t, err)
		assert.Equal(t, 2, created)
		list := allNotifications(t, db)
		require.Len(t, list, 2)
		assert.Equal(t, model.TypeNewReply, list[0].NotificationType)
		assert.Equal(t, uint(1), list[0].UserID)
		assert.Equal(t, model.TypeMention, list[1].NotificationType)
		assert.Equal(t, uint(3), list[1].UserID)
	})

	t.Run("one failed write keeps the others", func(t *testing.T) {
		db := setupDB(t)
		users := new(MockUserResolver)
		repo := &failingRepo{NotificationRepository: repository.NewNotificationRepository(db), failFor: 1}
		d := NewDispatcher(repo, users, nil, nil, 50)

		reply := &forumModel.Reply{BaseModel: baseModel.BaseModel{ID: 9}, PostID: 10, UserID: 2, Content: "@carol"}
		users.On("GetByUsernames", ctx, []string{"carol"}).Return([]userModel.User{user(3, "carol")}, nil)

		created, err := d.OnReplyCreated(ctx, post, reply)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "notify user 1")
		assert.Equal(t, 1, created)
		list := allNotifications(t, db)
		require.Len(t, list, 1)
		assert.Equal(t, uint(3), list[0].UserID)
	})

	t.Run("resolver failure creates nothing", func(t *testing.T) {
		db := setupDB(t)
		users := new(MockUserResolver)
		d := NewDispatcher(repository.NewNotificationRepository(db), users, nil, nil, 50)

		reply := &forumModel.Reply{BaseModel: baseModel.BaseModel{ID: 9}, PostID: 10, UserID: 2, Content: "@carol"}
		users.On("GetByUsernames", ctx, []string{"carol"}).Return(nil, errors.New("db gone"))

		_, err := d.OnReplyCreated(ctx, post, reply)
		assert.Error(t, err)
		assert.Empty(t, allNotifications(t, db))
	})

	t.Run("push failure is not a dispatch failure", func(t *testing.T) {
		db := setupDB(t)
		pusher := new(MockPushService)
		d := NewDispatcher(repository.NewNotificationRepository(db), new(MockUserResolver), pusher, nil, 50)

		pusher.On("PushToAccount", "1", "New reply to your post", mock.Anything, mock.Anything).
			Return(errors.New("push down"))

		reply := &forumModel.Reply{BaseModel: baseModel.BaseModel{ID: 9}, PostID: 10, UserID: 2, Content: "hello"}
		created, err := d.OnReplyCreated(ctx, post, reply)

		require.NoError(t, err)
		assert.Equal(t, 1, created)
		pusher.AssertExpectations(t)
	})
}

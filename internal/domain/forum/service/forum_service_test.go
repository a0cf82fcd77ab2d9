package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"carforum/internal/domain/forum/model"
	"carforum/internal/domain/forum/repository"
	notificationModel "carforum/internal/domain/notification/model"
	userModel "carforum/internal/domain/user/model"
	"carforum/pkg/database"
	"carforum/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockDispatcher is a mock of Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) OnPostCreated(ctx context.Context, post *model.Post) (int, error) {
	args := m.Called(ctx, post)
	return args.Int(0), args.Error(1)
}

func (m *MockDispatcher) OnReplyCreated(ctx context.Context, post *model.Post, reply *model.Reply) (int, error) {
	args := m.Called(ctx, post, reply)
	return args.Int(0), args.Error(1)
}

type fixture struct {
	db    *gorm.DB
	svc   ForumService
	alice userModel.User
	bob   userModel.User
}

func setup(t *testing.T, dispatcher Dispatcher) *fixture {
	db, err := database.OpenSQLite("file::memory:",
		&userModel.User{}, &model.Post{}, &model.Reply{}, &model.Vote{}, &notificationModel.Notification{})
	require.NoError(t, err)

	f := &fixture{
		db:    db,
		alice: userModel.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"},
		bob:   userModel.User{Username: "bob", Email: "bob@example.com", PasswordHash: "h"},
	}
	require.NoError(t, db.Create(&f.alice).Error)
	require.NoError(t, db.Create(&f.bob).Error)
	f.svc = NewForumService(repository.NewForumRepository(db), dispatcher, nil, Options{PageSize: 2, ReplyPageSize: 6})
	return f
}

func (f *fixture) post(t *testing.T, author uint, title, content string) *model.Post {
	res, err := f.svc.CreatePost(context.Background(), author, CreatePostInput{Title: title, Category: model.CategoryDiscussion, Content: content})
	require.NoError(t, err)
	return res.Post
}

func (f *fixture) reload(t *testing.T, id uint) model.Post {
	var p model.Post
	require.NoError(t, f.db.First(&p, id).Error)
	return p
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("counters start at zero and dispatch runs", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		dispatcher.On("OnPostCreated", ctx, mock.AnythingOfType("*model.Post")).Return(2, nil)
		f := setup(t, dispatcher)

		res, err := f.svc.CreatePost(ctx, f.alice.ID, CreatePostInput{Title: " Hello ", Category: "news", Content: "hi @bob"})

		require.NoError(t, err)
		assert.Equal(t, 2, res.Notified)
		assert.Empty(t, res.NotifyError)
		p := f.reload(t, res.Post.ID)
		assert.Equal(t, "Hello", p.Title)
		assert.Zero(t, p.Views)
		assert.Zero(t, p.RepliesCount)
		assert.Zero(t, p.Likes)
		assert.True(t, p.LastReplyDate.Equal(p.CreatedAt))
		dispatcher.AssertExpectations(t)
	})

	t.Run("dispatch failure is reported but post is kept", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		dispatcher.On("OnPostCreated", ctx, mock.Anything).Return(0, errors.New("notify user 2: boom"))
		f := setup(t, dispatcher)

		res, err := f.svc.CreatePost(ctx, f.alice.ID, CreatePostInput{Title: "t", Category: "news", Content: "c"})

		require.NoError(t, err)
		assert.Contains(t, res.NotifyError, "boom")
		f.reload(t, res.Post.ID)
	})

	t.Run("validation", func(t *testing.T) {
		f := setup(t, nil)
		cases := map[string]CreatePostInput{
			"title":    {Title: " ", Category: "news", Content: "c"},
			"content":  {Title: "t", Category: "news", Content: ""},
			"category": {Title: "t", Category: "gossip", Content: "c"},
		}
		for field, in := range cases {
			_, err := f.svc.CreatePost(ctx, f.alice.ID, in)
			var ve *errs.ValidationError
			require.ErrorAs(t, err, &ve, field)
			assert.Equal(t, field, ve.Field)
		}
		var count int64
		f.db.Model(&model.Post{}).Count(&count)
		assert.Zero(t, count)
	})
}

func TestSubmitReply(t *testing.T) {
	ctx := context.Background()

	t.Run("increments counter and sets last reply date", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		dispatcher.On("OnPostCreated", ctx, mock.Anything).Return(0, nil)
		dispatcher.On("OnReplyCreated", ctx, mock.Anything, mock.Anything).Return(1, nil)
		f := setup(t, dispatcher)
		p := f.post(t, f.alice.ID, "First", "body")

		res, err := f.svc.SubmitReply(ctx, f.bob.ID, p.ID, "nice", nil)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Notified)
		after := f.reload(t, p.ID)
		assert.Equal(t, 1, after.RepliesCount)

		var stored model.Reply
		require.NoError(t, f.db.First(&stored, res.Reply.ID).Error)
		assert.True(t, after.LastReplyDate.Equal(stored.CreatedAt))
		dispatcher.AssertCalled(t, "OnReplyCreated", ctx, mock.MatchedBy(func(post *model.Post) bool {
			return post.ID == p.ID && post.UserID == f.alice.ID
		}), mock.Anything)
	})

	t.Run("empty content rejected", func(t *testing.T) {
		f := setup(t, nil)
		p := f.post(t, f.alice.ID, "First", "body")

		_, err := f.svc.SubmitReply(ctx, f.bob.ID, p.ID, "   ", nil)

		assert.ErrorIs(t, err, errs.ErrValidation)
		assert.Zero(t, f.reload(t, p.ID).RepliesCount)
	})

	t.Run("missing post", func(t *testing.T) {
		f := setup(t, nil)
		_, err := f.svc.SubmitReply(ctx, f.bob.ID, 404, "hi", nil)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("parent must belong to the same post", func(t *testing.T) {
		f := setup(t, nil)
		p1 := f.post(t, f.alice.ID, "One", "body")
		p2 := f.post(t, f.alice.ID, "Two", "body")
		r1, err := f.svc.SubmitReply(ctx, f.bob.ID, p1.ID, "on one", nil)
		require.NoError(t, err)

		_, err = f.svc.SubmitReply(ctx, f.bob.ID, p2.ID, "wrong thread", &r1.Reply.ID)
		var ve *errs.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "parent_id", ve.Field)
		assert.Zero(t, f.reload(t, p2.ID).RepliesCount)

		missing := uint(999)
		_, err = f.svc.SubmitReply(ctx, f.bob.ID, p1.ID, "ghost parent", &missing)
		assert.ErrorIs(t, err, errs.ErrValidation)

		child, err := f.svc.SubmitReply(ctx, f.alice.ID, p1.ID, "answer", &r1.Reply.ID)
		require.NoError(t, err)
		assert.Equal(t, r1.Reply.ID, *child.Reply.ParentID)
		assert.Equal(t, 2, f.reload(t, p1.ID).RepliesCount)

		tree, err := f.svc.ReplyTree(ctx, p1.ID)
		require.NoError(t, err)
		require.Len(t, tree, 1)
		require.Len(t, tree[0].Children, 1)
		assert.Equal(t, "answer", tree[0].Children[0].Content)
	})
}

func TestCastVote(t *testing.T) {
	ctx := context.Background()

	t.Run("like then like is rejected", func(t *testing.T) {
		f := setup(t, nil)
		p := f.post(t, f.alice.ID, "First", "body")
		target := model.Target{Type: model.TargetPost, ID: p.ID}

		res, err := f.svc.CastVote(ctx, f.bob.ID, target, model.VoteLike)
		require.NoError(t, err)
		assert.Equal(t, &VoteResult{Likes: 1, Neutral: false}, res)

		_, err = f.svc.CastVote(ctx, f.bob.ID, target, model.VoteLike)
		assert.ErrorIs(t, err, errs.ErrInvalidVote)
		assert.Equal(t, 1, f.reload(t, p.ID).Likes)
	})

	t.Run("opposite vote cancels then votes again", func(t *testing.T) {
		f := setup(t, nil)
		p := f.post(t, f.alice.ID, "First", "body")
		target := model.Target{Type: model.TargetPost, ID: p.ID}

		_, err := f.svc.CastVote(ctx, f.bob.ID, target, model.VoteLike)
		require.NoError(t, err)

		res, err := f.svc.CastVote(ctx, f.bob.ID, target, model.VoteDislike)
		require.NoError(t, err)
		assert.Equal(t, &VoteResult{Likes: 0, Neutral: true}, res)

		var count int64
		f.db.Model(&model.Vote{}).Count(&count)
		assert.Zero(t, count)

		res, err = f.svc.CastVote(ctx, f.bob.ID, target, model.VoteDislike)
		require.NoError(t, err)
		assert.Equal(t, &VoteResult{Likes: -1, Neutral: false}, res)

		res, err = f.svc.CastVote(ctx, f.bob.ID, target, model.VoteLike)
		require.NoError(t, err)
		assert.Equal(t, &VoteResult{Likes: 0, Neutral: true}, res)
	})

	t.Run("votes on replies are independent of the post", func(t *testing.T) {
		f := setup(t, nil)
		p := f.post(t, f.alice.ID, "First", "body")
		r, err := f.svc.SubmitReply(ctx, f.bob.ID, p.ID, "reply", nil)
		require.NoError(t, err)

		_, err = f.svc.CastVote(ctx, f.alice.ID, model.Target{Type: model.TargetPost, ID: p.ID}, model.VoteLike)
		require.NoError(t, err)
		res, err := f.svc.CastVote(ctx, f.alice.ID, model.Target{Type: model.TargetReply, ID: r.Reply.ID}, model.VoteDislike)
		require.NoError(t, err)
		assert.Equal(t, -1, res.Likes)

		var vote model.Vote
		require.NoError(t, f.db.Where("reply_id = ?", r.Reply.ID).First(&vote).Error)
		assert.Nil(t, vote.PostID)
		assert.Equal(t, 1, f.reload(t, p.ID).Likes)
	})

	t.Run("missing target leaves no trace", func(t *testing.T) {
		f := setup(t, nil)
		_, err := f.svc.CastVote(ctx, f.bob.ID, model.Target{Type: model.TargetReply, ID: 42}, model.VoteLike)
		assert.ErrorIs(t, err, errs.ErrNotFound)

		var count int64
		f.db.Model(&model.Vote{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("unknown action", func(t *testing.T) {
		f := setup(t, nil)
		p := f.post(t, f.alice.ID, "First", "body")
		_, err := f.svc.CastVote(ctx, f.bob.ID, model.Target{Type: model.TargetPost, ID: p.ID}, "love")
		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestFeed(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)

	first := f.post(t, f.alice.ID, "First Post", "about engines")
	second := f.post(t, f.bob.ID, "Second Post", "about tyres 100%")
	// 固定时间保证排序稳定
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.db.Model(&model.Post{}).Where("id = ?", first.ID).Update("last_reply_date", base).Error)
	require.NoError(t, f.db.Model(&model.Post{}).Where("id = ?", second.ID).Update("last_reply_date", base.Add(time.Hour)).Error)

	t.Run("search by title", func(t *testing.T) {
		page, err := f.svc.SearchPosts(ctx, 0, "First", model.SearchTitles, 1)
		require.NoError(t, err)
		items := page.List.([]FeedItem)
		require.Len(t, items, 1)
		assert.Equal(t, "First Post", items[0].Title)
	})

	t.Run("search both is case insensitive", func(t *testing.T) {
		page, err := f.svc.SearchPosts(ctx, 0, "post", model.SearchBoth, 1)
		require.NoError(t, err)
		assert.Len(t, page.List.([]FeedItem), 2)
	})

	t.Run("search descriptions escapes wildcards", func(t *testing.T) {
		page, err := f.svc.SearchPosts(ctx, 0, "100%", model.SearchDescriptions, 1)
		require.NoError(t, err)
		items := page.List.([]FeedItem)
		require.Len(t, items, 1)
		assert.Equal(t, second.ID, items[0].ID)

		page, err = f.svc.SearchPosts(ctx, 0, "%", model.SearchTitles, 1)
		require.NoError(t, err)
		assert.Empty(t, page.List)
	})

	t.Run("empty query gives empty result", func(t *testing.T) {
		page, err := f.svc.SearchPosts(ctx, 0, "  ", model.SearchBoth, 1)
		require.NoError(t, err)
		assert.Empty(t, page.List)
		assert.Zero(t, page.Total)
	})

	t.Run("sorted by last reply with fallback to author", func(t *testing.T) {
		page, err := f.svc.ListPosts(ctx, 0, "", 1)
		require.NoError(t, err)
		items := page.List.([]FeedItem)
		require.Len(t, items, 2)
		assert.Equal(t, second.ID, items[0].ID)
		assert.Equal(t, "bob", items[0].LastReplier)
		assert.False(t, items[0].HasReplies)
		assert.Empty(t, items[0].UserVote)
	})

	t.Run("reply moves post to top and sets replier", func(t *testing.T) {
		_, err := f.svc.SubmitReply(ctx, f.bob.ID, first.ID, "reply", nil)
		require.NoError(t, err)
		_, err = f.svc.CastVote(ctx, f.alice.ID, model.Target{Type: model.TargetPost, ID: first.ID}, model.VoteDislike)
		require.NoError(t, err)

		page, err := f.svc.ListPosts(ctx, f.alice.ID, model.CategoryDiscussion, 1)
		require.NoError(t, err)
		items := page.List.([]FeedItem)
		require.Len(t, items, 2)
		assert.Equal(t, first.ID, items[0].ID)
		assert.Equal(t, "bob", items[0].LastReplier)
		assert.True(t, items[0].HasReplies)
		assert.Equal(t, model.VoteDislike, items[0].UserVote)
	})

	t.Run("out of range page is empty", func(t *testing.T) {
		page, err := f.svc.ListPosts(ctx, 0, "", 5)
		require.NoError(t, err)
		assert.Empty(t, page.List)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("huge page number is empty", func(t *testing.T) {
		page, err := f.svc.ListPosts(ctx, 0, "", 1<<62+1)
		require.NoError(t, err)
		assert.Empty(t, page.List)
		assert.Equal(t, int64(2), page.Total)

		page, err = f.svc.SearchPosts(ctx, 0, "post", model.SearchBoth, 1<<62+1)
		require.NoError(t, err)
		assert.Empty(t, page.List)
	})

	t.Run("unknown category is empty", func(t *testing.T) {
		page, err := f.svc.ListPosts(ctx, 0, model.CategoryPoll, 1)
		require.NoError(t, err)
		assert.Empty(t, page.List)
	})
}

func TestGetPostDetail(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	p := f.post(t, f.alice.ID, "First", "body")
	for i := 0; i < 7; i++ {
		_, err := f.svc.SubmitReply(ctx, f.bob.ID, p.ID, "r", nil)
		require.NoError(t, err)
	}

	detail, err := f.svc.GetPostDetail(ctx, 0, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Post.Views)
	assert.Equal(t, "alice", detail.Post.Author.Username)
	assert.Equal(t, int64(7), detail.Replies.Total)
	assert.Equal(t, 2, detail.Replies.Pages)
	replies := detail.Replies.List.([]model.Reply)
	require.Len(t, replies, 1)

	_, err = f.svc.GetPostDetail(ctx, 0, 999, 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	detail, err = f.svc.GetPostDetail(ctx, f.bob.ID, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Post.Views)
	assert.Len(t, detail.Replies.List.([]model.Reply), 6)
	assert.Empty(t, detail.UserVote)
}

func TestDeletePost(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	p := f.post(t, f.alice.ID, "First", "body")
	r, err := f.svc.SubmitReply(ctx, f.bob.ID, p.ID, "reply", nil)
	require.NoError(t, err)
	_, err = f.svc.CastVote(ctx, f.bob.ID, model.Target{Type: model.TargetPost, ID: p.ID}, model.VoteLike)
	require.NoError(t, err)
	_, err = f.svc.CastVote(ctx, f.alice.ID, model.Target{Type: model.TargetReply, ID: r.Reply.ID}, model.VoteLike)
	require.NoError(t, err)
	pid := p.ID
	require.NoError(t, f.db.Create(&notificationModel.Notification{UserID: f.alice.ID, ActorID: f.bob.ID, PostID: &pid, NotificationType: notificationModel.TypeNewReply}).Error)

	t.Run("only the author may delete", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.DeletePost(ctx, f.bob.ID, p.ID), errs.ErrForbidden)
		f.reload(t, p.ID)
	})

	t.Run("cascade", func(t *testing.T) {
		require.NoError(t, f.svc.DeletePost(ctx, f.alice.ID, p.ID))

		var count int64
		f.db.Model(&model.Post{}).Where("id = ?", p.ID).Count(&count)
		assert.Zero(t, count)
		f.db.Unscoped().Model(&model.Post{}).Where("id = ?", p.ID).Count(&count)
		assert.Equal(t, int64(1), count, "post is soft deleted")
		f.db.Model(&model.Reply{}).Where("post_id = ?", p.ID).Count(&count)
		assert.Zero(t, count)
		f.db.Model(&model.Vote{}).Count(&count)
		assert.Zero(t, count)
		f.db.Model(&notificationModel.Notification{}).Count(&count)
		assert.Zero(t, count)

		_, err := f.svc.CastVote(ctx, f.bob.ID, model.Target{Type: model.TargetPost, ID: p.ID}, model.VoteDislike)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})
}

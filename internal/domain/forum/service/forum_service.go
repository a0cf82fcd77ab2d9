package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"carforum/internal/domain/forum/model"
	"carforum/internal/domain/forum/repository"
	userModel "carforum/internal/domain/user/model"
	"carforum/pkg/database"
	"carforum/pkg/errs"
	"carforum/pkg/logger"
	"carforum/pkg/metrics"
	"carforum/pkg/utils"

	"go.uber.org/zap"
)

// Dispatcher 写入成功后的通知分发
type Dispatcher interface {
	OnPostCreated(ctx context.Context, post *model.Post) (int, error)
	OnReplyCreated(ctx context.Context, post *model.Post, reply *model.Reply) (int, error)
}

// CreatePostInput 发帖参数
type CreatePostInput struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

// PostResult 发帖结果，NotifyError 非空表示部分通知写入失败 (帖子已提交)
type PostResult struct {
	Post        *model.Post `json:"post"`
	Notified    int         `json:"notified"`
	NotifyError string      `json:"notifyError,omitempty"`
}

// ReplyResult 回复结果
type ReplyResult struct {
	Reply       *model.Reply `json:"reply"`
	Notified    int          `json:"notified"`
	NotifyError string       `json:"notifyError,omitempty"`
}

// VoteResult 投票后的点赞数，Neutral 表示本次操作取消了已有投票
type VoteResult struct {
	Likes   int  `json:"likes"`
	Neutral bool `json:"neutral"`
}

// FeedItem 列表项，附带最后回复者与时间；没有回复时取帖子作者与发帖时间
type FeedItem struct {
	model.Post
	LastReplier string    `json:"lastReplier"`
	LastReplyAt time.Time `json:"lastReplyAt"`
	HasReplies  bool      `json:"hasReplies"`
	UserVote    string    `json:"userVote,omitempty"`
}

// PostDetail 帖子详情
type PostDetail struct {
	Post     *model.Post      `json:"post"`
	Replies  utils.PageResult `json:"replies"`
	UserVote string           `json:"userVote,omitempty"`
}

// ForumService 帖子、回复、投票
type ForumService interface {
	CreatePost(ctx context.Context, userID uint, in CreatePostInput) (*PostResult, error)
	SubmitReply(ctx context.Context, userID, postID uint, content string, parentID *uint) (*ReplyResult, error)
	RecordView(ctx context.Context, postID uint) error
	GetPostDetail(ctx context.Context, viewerID, postID uint, page int) (*PostDetail, error)
	ReplyTree(ctx context.Context, postID uint) ([]*model.Reply, error)
	DeletePost(ctx context.Context, userID, postID uint) error
	CastVote(ctx context.Context, userID uint, target model.Target, action string) (*VoteResult, error)
	ListPosts(ctx context.Context, viewerID uint, category string, page int) (utils.PageResult, error)
	SearchPosts(ctx context.Context, viewerID uint, query string, mode model.SearchMode, page int) (utils.PageResult, error)
	VoteStates(ctx context.Context, userID uint, postIDs []uint) (map[uint]string, error)
}

// Options 分页配置
type Options struct {
	PageSize      int
	ReplyPageSize int
}

type forumService struct {
	repo       repository.ForumRepository
	dispatcher Dispatcher
	metrics    *metrics.MetricsCollector
	opts       Options
}

// NewForumService dispatcher 与 collector 可为 nil
func NewForumService(repo repository.ForumRepository, dispatcher Dispatcher, collector *metrics.MetricsCollector, opts Options) ForumService {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.ReplyPageSize <= 0 {
		opts.ReplyPageSize = 6
	}
	return &forumService{repo: repo, dispatcher: dispatcher, metrics: collector, opts: opts}
}

// CreatePost 发帖，计数器从 0 开始，最后回复时间取发帖时间
func (s *forumService) CreatePost(ctx context.Context, userID uint, in CreatePostInput) (*PostResult, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	switch {
	case title == "":
		return nil, errs.Invalid("title", "Title is required")
	case utf8.RuneCountInString(title) > 255:
		return nil, errs.Invalid("title", "Title is too long")
	case content == "":
		return nil, errs.Invalid("content", "Content is required")
	case !model.ValidCategory(in.Category):
		return nil, errs.Invalid("category", "Invalid category")
	}

	now := time.Now().UTC()
	post := &model.Post{
		Title:         title,
		Category:      in.Category,
		Content:       content,
		UserID:        userID,
		LastReplyDate: now,
	}
	post.CreatedAt = now
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	s.metrics.RecordPost()

	result := &PostResult{Post: post}
	if s.dispatcher != nil {
		n, err := s.dispatcher.OnPostCreated(ctx, post)
		result.Notified, result.NotifyError = n, s.dispatchError("post", post.ID, err)
	}
	return result, nil
}

// SubmitReply 在一个事务内写入回复、回复数 +1、更新最后回复时间
func (s *forumService) SubmitReply(ctx context.Context, userID, postID uint, content string, parentID *uint) (*ReplyResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.Invalid("content", "Reply cannot be empty")
	}

	var post *model.Post
	reply := &model.Reply{Content: content, PostID: postID, ParentID: parentID, UserID: userID}
	err := s.repo.Transaction(ctx, func(tx repository.ForumRepository) error {
		p, err := tx.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		if parentID != nil {
			parent, err := tx.GetReply(ctx, *parentID)
			if errors.Is(err, errs.ErrNotFound) {
				return errs.Invalid("parent_id", "Parent reply does not exist")
			}
			if err != nil {
				return err
			}
			if parent.PostID != postID {
				return errs.Invalid("parent_id", "Parent reply belongs to another post")
			}
		}

		reply.CreatedAt = time.Now().UTC()
		if err := tx.CreateReply(ctx, reply); err != nil {
			return err
		}
		if err := tx.TouchPostOnReply(ctx, postID, reply.CreatedAt); err != nil {
			return err
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReply()

	result := &ReplyResult{Reply: reply}
	if s.dispatcher != nil {
		n, err := s.dispatcher.OnReplyCreated(ctx, post, reply)
		result.Notified, result.NotifyError = n, s.dispatchError("reply", reply.ID, err)
	}
	return result, nil
}

func (s *forumService) dispatchError(kind string, id uint, err error) string {
	if err == nil {
		return ""
	}
	logger.Log.Error("notification dispatch incomplete",
		zap.String("event", kind),
		zap.Uint("id", id),
		zap.Error(err))
	return err.Error()
}

func (s *forumService) RecordView(ctx context.Context, postID uint) error {
	return s.repo.IncrementViews(ctx, postID)
}

// GetPostDetail 浏览数 +1，回复按时间升序分页
func (s *forumService) GetPostDetail(ctx context.Context, viewerID, postID uint, page int) (*PostDetail, error) {
	if err := s.repo.IncrementViews(ctx, postID); err != nil {
		return nil, err
	}
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	p := utils.FixedPage(page, s.opts.ReplyPageSize)
	offset, limit := p.GetPageOffset()
	replies, total, err := s.repo.ListReplies(ctx, postID, offset, limit)
	if err != nil {
		return nil, err
	}

	detail := &PostDetail{Post: post, Replies: utils.NewPageResult(replies, total, p)}
	if viewerID != 0 {
		states, err := s.repo.VoteStates(ctx, viewerID, []uint{postID})
		if err != nil {
			return nil, err
		}
		detail.UserVote = states[postID]
	}
	return detail, nil
}

// ReplyTree 一次查询取出全部回复后在内存中组装
func (s *forumService) ReplyTree(ctx context.Context, postID uint) ([]*model.Reply, error) {
	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	replies, err := s.repo.AllReplies(ctx, postID)
	if err != nil {
		return nil, err
	}
	return model.BuildReplyTree(replies), nil
}

// DeletePost 仅作者可删除。回复软删除，相关投票与通知物理删除，帖子软删除，全部在同一事务内
func (s *forumService) DeletePost(ctx context.Context, userID, postID uint) error {
	return s.repo.Transaction(ctx, func(tx repository.ForumRepository) error {
		post, err := tx.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return errs.ErrForbidden
		}

		replyIDs, err := tx.ReplyIDs(ctx, postID)
		if err != nil {
			return err
		}
		if err := tx.DeleteVotesForPost(ctx, postID, replyIDs); err != nil {
			return err
		}
		if err := tx.DeleteNotificationsForPost(ctx, postID); err != nil {
			return err
		}
		if err := tx.SoftDeleteReplies(ctx, postID); err != nil {
			return err
		}
		return tx.SoftDeletePost(ctx, postID)
	})
}

func voteDelta(voteType string) int {
	if voteType == model.VoteLike {
		return 1
	}
	return -1
}

// CastVote 投票状态机：
//
//	无投票 + like/dislike -> 新建投票，点赞数 ±1
//	同方向重复           -> ErrInvalidVote，无任何修改
//	反方向               -> 删除投票回到无投票状态，撤销原来的 ±1
//
// 账本修改与计数调整在同一事务内完成。
func (s *forumService) CastVote(ctx context.Context, userID uint, target model.Target, action string) (*VoteResult, error) {
	if !model.ValidAction(action) {
		return nil, errs.Invalid("action", "Action must be like or dislike")
	}

	result := &VoteResult{}
	outcome := "created"
	err := s.repo.Transaction(ctx, func(tx repository.ForumRepository) error {
		if _, err := tx.LockLikes(ctx, target); err != nil {
			return err
		}
		existing, err := tx.FindVote(ctx, userID, target)
		if err != nil {
			return err
		}

		var delta int
		if existing == nil {
			if err := tx.CreateVote(ctx, target.NewVote(userID, action)); err != nil {
				// 并发的同用户投票由唯一索引拦截
				if database.IsUniqueViolation(err) {
					return errs.ErrInvalidVote
				}
				return err
			}
			delta = voteDelta(action)
		} else {
			if existing.VoteType == action {
				return errs.ErrInvalidVote
			}
			if err := tx.DeleteVote(ctx, existing.ID); err != nil {
				return err
			}
			delta = -voteDelta(existing.VoteType)
			result.Neutral = true
			outcome = "cancelled"
		}

		likes, err := tx.AdjustLikes(ctx, target, delta)
		if err != nil {
			return err
		}
		result.Likes = likes
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrInvalidVote) {
			s.metrics.RecordVote(string(target.Type), "rejected")
		}
		return nil, err
	}
	s.metrics.RecordVote(string(target.Type), outcome)
	return result, nil
}

// ListPosts 按分类列出，分类为空时列出全部
func (s *forumService) ListPosts(ctx context.Context, viewerID uint, category string, page int) (utils.PageResult, error) {
	return s.feed(ctx, viewerID, model.PostFilter{Category: category}, page)
}

// SearchPosts 标题/内容不区分大小写的子串搜索，空查询返回空结果
func (s *forumService) SearchPosts(ctx context.Context, viewerID uint, query string, mode model.SearchMode, page int) (utils.PageResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		p := utils.FixedPage(page, s.opts.PageSize)
		return utils.NewPageResult([]FeedItem{}, 0, p), nil
	}
	return s.feed(ctx, viewerID, model.PostFilter{Query: query, Mode: mode}, page)
}

func authorName(u *userModel.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}

func (s *forumService) feed(ctx context.Context, viewerID uint, filter model.PostFilter, page int) (utils.PageResult, error) {
	p := utils.FixedPage(page, s.opts.PageSize)
	offset, limit := p.GetPageOffset()
	posts, total, err := s.repo.ListPosts(ctx, filter, offset, limit)
	if err != nil {
		return utils.PageResult{}, err
	}

	ids := make([]uint, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}
	latest, err := s.repo.LatestReplies(ctx, ids)
	if err != nil {
		return utils.PageResult{}, err
	}
	states, err := s.repo.VoteStates(ctx, viewerID, ids)
	if err != nil {
		return utils.PageResult{}, err
	}

	items := make([]FeedItem, 0, len(posts))
	for _, post := range posts {
		item := FeedItem{
			Post:        post,
			LastReplier: authorName(post.Author),
			LastReplyAt: post.CreatedAt,
			UserVote:    states[post.ID],
		}
		if r, ok := latest[post.ID]; ok {
			item.LastReplier = authorName(r.Author)
			item.LastReplyAt = r.CreatedAt
			item.HasReplies = true
		}
		items = append(items, item)
	}
	return utils.NewPageResult(items, total, p), nil
}

func (s *forumService) VoteStates(ctx context.Context, userID uint, postIDs []uint) (map[uint]string, error) {
	return s.repo.VoteStates(ctx, userID, postIDs)
}

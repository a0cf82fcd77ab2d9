package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"carforum/internal/domain/forum/model"
	notificationModel "carforum/internal/domain/notification/model"
	"carforum/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForumRepository 帖子、回复、投票账本的存储
type ForumRepository interface {
	// Transaction 在同一事务内执行 fn，fn 收到的仓库绑定该事务
	Transaction(ctx context.Context, fn func(repo ForumRepository) error) error

	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id uint) (*model.Post, error)
	ListPosts(ctx context.Context, filter model.PostFilter, offset, limit int) ([]model.Post, int64, error)
	IncrementViews(ctx context.Context, id uint) error
	TouchPostOnReply(ctx context.Context, postID uint, at time.Time) error
	SoftDeletePost(ctx context.Context, id uint) error
	PostsByAuthor(ctx context.Context, userID uint, offset, limit int) ([]model.Post, int64, error)

	CreateReply(ctx context.Context, reply *model.Reply) error
	GetReply(ctx context.Context, id uint) (*model.Reply, error)
	ListReplies(ctx context.Context, postID uint, offset, limit int) ([]model.Reply, int64, error)
	AllReplies(ctx context.Context, postID uint) ([]model.Reply, error)
	LatestReplies(ctx context.Context, postIDs []uint) (map[uint]model.Reply, error)
	ReplyIDs(ctx context.Context, postID uint) ([]uint, error)
	SoftDeleteReplies(ctx context.Context, postID uint) error
	RepliesByAuthor(ctx context.Context, userID uint, offset, limit int) ([]model.Reply, int64, error)

	LockLikes(ctx context.Context, target model.Target) (int, error)
	FindVote(ctx context.Context, userID uint, target model.Target) (*model.Vote, error)
	CreateVote(ctx context.Context, vote *model.Vote) error
	DeleteVote(ctx context.Context, id uint) error
	AdjustLikes(ctx context.Context, target model.Target, delta int) (int, error)
	DeleteVotesForPost(ctx context.Context, postID uint, replyIDs []uint) error
	VoteStates(ctx context.Context, userID uint, postIDs []uint) (map[uint]string, error)

	DeleteNotificationsForPost(ctx context.Context, postID uint) error
}

type forumRepository struct {
	db *gorm.DB
}

func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.ErrNotFound
	}
	return err
}

func (r *forumRepository) Transaction(ctx context.Context, fn func(repo ForumRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&forumRepository{db: tx})
	})
}

// --- Post ---

func (r *forumRepository) CreatePost(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *forumRepository) GetPost(ctx context.Context, id uint) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// escapeLike 转义 LIKE 通配符，配合 ESCAPE '\' 使用
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListPosts 按最后回复时间倒序，时间相同按 ID 倒序
func (r *forumRepository) ListPosts(ctx context.Context, filter model.PostFilter, offset, limit int) ([]model.Post, int64, error) {
	var posts []model.Post
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Post{})
	switch {
	case filter.Category != "":
		query = query.Where("category = ?", filter.Category)
	case filter.Query != "":
		pattern := "%" + escapeLike(strings.ToLower(filter.Query)) + "%"
		switch filter.Mode {
		case model.SearchTitles:
			query = query.Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern)
		case model.SearchDescriptions:
			query = query.Where(`LOWER(content) LIKE ? ESCAPE '\'`, pattern)
		default:
			query = query.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 || int64(offset) >= total {
		return []model.Post{}, total, nil
	}

	err := query.Preload("Author").
		Order("last_reply_date desc").Order("id desc").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	return posts, total, err
}

func (r *forumRepository) IncrementViews(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// TouchPostOnReply 回复数 +1 并更新最后回复时间
func (r *forumRepository) TouchPostOnReply(ctx context.Context, postID uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", postID).
		UpdateColumns(map[string]interface{}{
			"replies_count":   gorm.Expr("replies_count + ?", 1),
			"last_reply_date": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *forumRepository) SoftDeletePost(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.Post{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *forumRepository) PostsByAuthor(ctx context.Context, userID uint, offset, limit int) ([]model.Post, int64, error) {
	var posts []model.Post
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Post{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at desc").Order("id desc").Offset(offset).Limit(limit).Find(&posts).Error
	return posts, total, err
}

// --- Reply ---

func (r *forumRepository) CreateReply(ctx context.Context, reply *model.Reply) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(reply).Error
}

func (r *forumRepository) GetReply(ctx context.Context, id uint) (*model.Reply, error) {
	var reply model.Reply
	if err := r.db.WithContext(ctx).First(&reply, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &reply, nil
}

func (r *forumRepository) ListReplies(ctx context.Context, postID uint, offset, limit int) ([]model.Reply, int64, error) {
	var replies []model.Reply
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Reply{}).Where("post_id = ?", postID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if int64(offset) >= total {
		return []model.Reply{}, total, nil
	}
	err := query.Preload("Author").
		Order("created_at asc").Order("id asc").
		Offset(offset).Limit(limit).
		Find(&replies).Error
	return replies, total, err
}

// AllReplies 一次查询取出帖子下全部回复，用于组装回复树
func (r *forumRepository) AllReplies(ctx context.Context, postID uint) ([]model.Reply, error) {
	var replies []model.Reply
	err := r.db.WithContext(ctx).Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at asc").Order("id asc").
		Find(&replies).Error
	return replies, err
}

// LatestReplies 每个帖子的最新一条回复，按 post_id 分组取最大 ID
func (r *forumRepository) LatestReplies(ctx context.Context, postIDs []uint) (map[uint]model.Reply, error) {
	latest := make(map[uint]model.Reply, len(postIDs))
	if len(postIDs) == 0 {
		return latest, nil
	}

	db := r.db.WithContext(ctx)
	sub := db.Model(&model.Reply{}).Select("MAX(id)").Where("post_id IN ?", postIDs).Group("post_id")

	var replies []model.Reply
	if err := db.Preload("Author").Where("id IN (?)", sub).Find(&replies).Error; err != nil {
		return nil, err
	}
	for _, reply := range replies {
		latest[reply.PostID] = reply
	}
	return latest, nil
}

func (r *forumRepository) ReplyIDs(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Reply{}).Where("post_id = ?", postID).Pluck("id", &ids).Error
	return ids, err
}

func (r *forumRepository) SoftDeleteReplies(ctx context.Context, postID uint) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&model.Reply{}).Error
}

func (r *forumRepository) RepliesByAuthor(ctx context.Context, userID uint, offset, limit int) ([]model.Reply, int64, error) {
	var replies []model.Reply
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Reply{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at desc").Order("id desc").Offset(offset).Limit(limit).Find(&replies).Error
	return replies, total, err
}

// --- Vote ---

func targetModel(t model.Target) interface{} {
	if t.Type == model.TargetReply {
		return &model.Reply{}
	}
	return &model.Post{}
}

// LockLikes 读取目标的点赞数并加行锁 (SQLite 忽略锁子句)，目标不存在返回 ErrNotFound
func (r *forumRepository) LockLikes(ctx context.Context, target model.Target) (int, error) {
	var likes []int
	err := r.db.WithContext(ctx).Model(targetModel(target)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", target.ID).
		Pluck("likes", &likes).Error
	if err != nil {
		return 0, err
	}
	if len(likes) == 0 {
		return 0, errs.ErrNotFound
	}
	return likes[0], nil
}

// FindVote 没有投票记录时返回 nil, nil
func (r *forumRepository) FindVote(ctx context.Context, userID uint, target model.Target) (*model.Vote, error) {
	var vote model.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND "+target.Column()+" = ?", userID, target.ID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *forumRepository) CreateVote(ctx context.Context, vote *model.Vote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *forumRepository) DeleteVote(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Vote{}, id).Error
}

// AdjustLikes 原子地调整点赞数并返回新值
func (r *forumRepository) AdjustLikes(ctx context.Context, target model.Target, delta int) (int, error) {
	db := r.db.WithContext(ctx)
	result := db.Model(targetModel(target)).Where("id = ?", target.ID).
		UpdateColumn("likes", gorm.Expr("likes + ?", delta))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, errs.ErrNotFound
	}

	var likes []int
	if err := db.Model(targetModel(target)).Where("id = ?", target.ID).Pluck("likes", &likes).Error; err != nil {
		return 0, err
	}
	if len(likes) == 0 {
		return 0, errs.ErrNotFound
	}
	return likes[0], nil
}

func (r *forumRepository) DeleteVotesForPost(ctx context.Context, postID uint, replyIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("post_id = ?", postID).Delete(&model.Vote{}).Error; err != nil {
		return err
	}
	if len(replyIDs) == 0 {
		return nil
	}
	return db.Where("reply_id IN ?", replyIDs).Delete(&model.Vote{}).Error
}

// VoteStates 当前用户对一组帖子的投票方向，未投票的帖子不出现在结果中
func (r *forumRepository) VoteStates(ctx context.Context, userID uint, postIDs []uint) (map[uint]string, error) {
	states := make(map[uint]string, len(postIDs))
	if userID == 0 || len(postIDs) == 0 {
		return states, nil
	}

	var votes []model.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	for _, v := range votes {
		if v.PostID != nil {
			states[*v.PostID] = v.VoteType
		}
	}
	return states, nil
}

func (r *forumRepository) DeleteNotificationsForPost(ctx context.Context, postID uint) error {
	return r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&notificationModel.Notification{}).Error
}

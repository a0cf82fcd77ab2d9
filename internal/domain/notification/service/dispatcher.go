package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	forumModel "carforum/internal/domain/forum/model"
	"carforum/internal/domain/notification/model"
	"carforum/internal/domain/notification/repository"
	userModel "carforum/internal/domain/user/model"
	"carforum/internal/pkg/push"
	"carforum/pkg/logger"
	"carforum/pkg/metrics"
	"carforum/pkg/utils"

	"go.uber.org/zap"
)

// UserResolver 按用户名解析被提及的用户，未知用户名直接忽略
type UserResolver interface {
	GetByUsernames(ctx context.Context, usernames []string) ([]userModel.User, error)
}

// Dispatcher 把发帖、回复事件转换为通知。
// 每条通知独立写入，单条失败不影响其它通知，失败汇总后返回。
type Dispatcher struct {
	repo       repository.NotificationRepository
	users      UserResolver
	pusher     push.PushService
	metrics    *metrics.MetricsCollector
	previewLen int
}

// NewDispatcher pusher 与 collector 可为 nil
func NewDispatcher(repo repository.NotificationRepository, users UserResolver, pusher push.PushService, collector *metrics.MetricsCollector, previewLen int) *Dispatcher {
	if previewLen <= 0 {
		previewLen = 50
	}
	return &Dispatcher{
		repo:       repo,
		users:      users,
		pusher:     pusher,
		metrics:    collector,
		previewLen: previewLen,
	}
}

// OnPostCreated 给帖子正文中提及的用户发送 mention 通知
func (d *Dispatcher) OnPostCreated(ctx context.Context, post *forumModel.Post) (int, error) {
	mentioned, err := d.resolveMentions(ctx, post.Content)
	if err != nil {
		return 0, err
	}

	batch := make([]*model.Notification, 0, len(mentioned))
	for _, u := range mentioned {
		batch = append(batch, d.build(u.ID, post.UserID, model.TypeMention, post.ID, nil, post.Content))
	}
	return d.deliver(ctx, batch)
}

// OnReplyCreated 通知帖子作者有新回复，并通知回复中提及的其他用户。
// 帖子作者已由 new_reply 覆盖，不再重复发送 mention。
func (d *Dispatcher) OnReplyCreated(ctx context.Context, post *forumModel.Post, reply *forumModel.Reply) (int, error) {
	mentioned, err := d.resolveMentions(ctx, reply.Content)
	if err != nil {
		return 0, err
	}

	replyID := reply.ID
	batch := make([]*model.Notification, 0, len(mentioned)+1)
	batch = append(batch, d.build(post.UserID, reply.UserID, model.TypeNewReply, post.ID, &replyID, reply.Content))
	for _, u := range mentioned {
		if u.ID == post.UserID {
			continue
		}
		batch = append(batch, d.build(u.ID, reply.UserID, model.TypeMention, post.ID, &replyID, reply.Content))
	}
	return d.deliver(ctx, batch)
}

func (d *Dispatcher) resolveMentions(ctx context.Context, content string) ([]userModel.User, error) {
	names := utils.ExtractMentions(content)
	if len(names) == 0 {
		return nil, nil
	}
	users, err := d.users.GetByUsernames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("resolve mentions: %w", err)
	}
	return users, nil
}

func (d *Dispatcher) build(recipient, actor uint, kind string, postID uint, replyID *uint, content string) *model.Notification {
	pid := postID
	return &model.Notification{
		UserID:           recipient,
		ActorID:          actor,
		PostID:           &pid,
		ReplyID:          replyID,
		Message:          utils.Truncate(content, d.previewLen),
		NotificationType: kind,
	}
}

// deliver 逐条写入，接收者等于触发者的通知被跳过
func (d *Dispatcher) deliver(ctx context.Context, batch []*model.Notification) (int, error) {
	var failures []error
	created := 0
	for _, n := range batch {
		if n.UserID == n.ActorID {
			d.metrics.RecordNotification(n.NotificationType, "skipped")
			continue
		}
		if err := d.repo.Create(ctx, n); err != nil {
			d.metrics.RecordNotification(n.NotificationType, "failed")
			logger.Log.Warn("create notification failed",
				zap.Uint("recipient", n.UserID),
				zap.Uint("actor", n.ActorID),
				zap.String("type", n.NotificationType),
				zap.Error(err))
			failures = append(failures, fmt.Errorf("notify user %d: %w", n.UserID, err))
			continue
		}
		created++
		d.metrics.RecordNotification(n.NotificationType, "created")
		d.push(n)
	}
	return created, errors.Join(failures...)
}

func (d *Dispatcher) push(n *model.Notification) {
	if d.pusher == nil {
		return
	}
	title := "You were mentioned"
	if n.NotificationType == model.TypeNewReply {
		title = "New reply to your post"
	}
	ext := map[string]string{"notification_id": strconv.FormatUint(uint64(n.ID), 10)}
	if n.PostID != nil {
		ext["post_id"] = strconv.FormatUint(uint64(*n.PostID), 10)
	}
	if err := d.pusher.PushToAccount(strconv.FormatUint(uint64(n.UserID), 10), title, n.Message, ext); err != nil {
		d.metrics.RecordDependencyError("push")
		logger.Log.Warn("push notification failed", zap.Uint("recipient", n.UserID), zap.Error(err))
	}
}

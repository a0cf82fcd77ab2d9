package service

import (
	"context"
	"time"

	"carforum/internal/domain/notification/model"
	"carforum/internal/domain/notification/repository"
	"carforum/pkg/utils"
)

// excerptLength 列表中消息摘要的长度
const excerptLength = 30

// NotificationView 通知列表项，附带触发者信息
type NotificationView struct {
	ID               uint      `json:"id"`
	NotificationType string    `json:"notificationType"`
	Message          string    `json:"message"`
	IsRead           bool      `json:"isRead"`
	CreatedAt        time.Time `json:"createdAt"`
	PostID           *uint     `json:"postId"`
	ReplyID          *uint     `json:"replyId"`
	ActorID          uint      `json:"actorId"`
	ActorName        string    `json:"actorName"`
	ActorImage       string    `json:"actorImage"`
}

// NotificationService 通知读取及已读/删除，只作用于接收者本人的通知
type NotificationService interface {
	List(ctx context.Context, userID uint, page int) (utils.PageResult, error)
	Latest(ctx context.Context, userID uint) ([]NotificationView, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) error
}

type notificationService struct {
	repo        repository.NotificationRepository
	pageSize    int
	latestLimit int
}

func NewNotificationService(repo repository.NotificationRepository, pageSize, latestLimit int) NotificationService {
	if pageSize <= 0 {
		pageSize = 10
	}
	if latestLimit <= 0 {
		latestLimit = 3
	}
	return &notificationService{repo: repo, pageSize: pageSize, latestLimit: latestLimit}
}

func toView(n model.Notification) NotificationView {
	v := NotificationView{
		ID:               n.ID,
		NotificationType: n.NotificationType,
		Message:          utils.Truncate(n.Message, excerptLength),
		IsRead:           n.IsRead,
		CreatedAt:        n.CreatedAt,
		PostID:           n.PostID,
		ReplyID:          n.ReplyID,
		ActorID:          n.ActorID,
	}
	if n.Actor != nil {
		v.ActorName = n.Actor.Username
		v.ActorImage = n.Actor.ProfileImageURL
	}
	return v
}

func toViews(list []model.Notification) []NotificationView {
	views := make([]NotificationView, 0, len(list))
	for _, n := range list {
		views = append(views, toView(n))
	}
	return views
}

// List 新的在前，越界页返回空列表
func (s *notificationService) List(ctx context.Context, userID uint, page int) (utils.PageResult, error) {
	p := utils.FixedPage(page, s.pageSize)
	offset, limit := p.GetPageOffset()
	list, total, err := s.repo.List(ctx, userID, offset, limit)
	if err != nil {
		return utils.PageResult{}, err
	}
	return utils.NewPageResult(toViews(list), total, p), nil
}

// Latest 最新的几条未读通知
func (s *notificationService) Latest(ctx context.Context, userID uint) ([]NotificationView, error) {
	list, err := s.repo.LatestUnread(ctx, userID, s.latestLimit)
	if err != nil {
		return nil, err
	}
	return toViews(list), nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id uint) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, userID, id uint) error {
	return s.repo.Delete(ctx, userID, id)
}

package repository

import (
	"context"

	"carforum/internal/domain/notification/model"
	"carforum/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository 通知存储，所有读写都限定接收者
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	List(ctx context.Context, userID uint, offset, limit int) ([]model.Notification, int64, error)
	LatestUnread(ctx context.Context, userID uint, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create 单条插入，自身即原子操作
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(n).Error
}

// List 按时间倒序
func (r *notificationRepository) List(ctx context.Context, userID uint, offset, limit int) ([]model.Notification, int64, error) {
	var list []model.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if int64(offset) >= total {
		return []model.Notification{}, total, nil
	}
	err := query.Preload("Actor").
		Order("created_at desc").Order("id desc").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, total, err
}

func (r *notificationRepository) LatestUnread(ctx context.Context, userID uint, limit int) ([]model.Notification, error) {
	var list []model.Notification
	err := r.db.WithContext(ctx).Preload("Actor").
		Where("user_id = ? AND is_read = ?", userID, false).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead 非接收者或不存在时返回 ErrNotFound
func (r *notificationRepository) MarkRead(ctx context.Context, userID, id uint) error {
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// Delete 非接收者或不存在时返回 ErrNotFound
func (r *notificationRepository) Delete(ctx context.Context, userID, id uint) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

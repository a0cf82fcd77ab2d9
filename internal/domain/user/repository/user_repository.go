package repository

import (
	"context"
	"errors"
	"time"

	"carforum/internal/domain/user/model"
	"carforum/pkg/errs"

	"gorm.io/gorm"
)

// UserRepository 接口定义
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsernames(ctx context.Context, usernames []string) ([]model.User, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
	UpdateProfileImage(ctx context.Context, id uint, url string) error

	CreateLoginHistory(ctx context.Context, h *model.LoginHistory) error
	CloseLatestLogin(ctx context.Context, userID uint, at time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建新的仓库实例
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.ErrNotFound
	}
	return err
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID 根据ID获取用户
func (r *userRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetByUsernames 批量解析用户名，不存在的用户名直接忽略
func (r *userRepository) GetByUsernames(ctx context.Context, usernames []string) ([]model.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	var users []model.User
	err := r.db.WithContext(ctx).Where("username IN ?", usernames).Order("id asc").Find(&users).Error
	return users, err
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.updateColumn(ctx, id, "password_hash", hash)
}

func (r *userRepository) UpdateProfileImage(ctx context.Context, id uint, url string) error {
	return r.updateColumn(ctx, id, "profile_image_url", url)
}

func (r *userRepository) updateColumn(ctx context.Context, id uint, column string, value interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CreateLoginHistory 记录登录
func (r *userRepository) CreateLoginHistory(ctx context.Context, h *model.LoginHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// CloseLatestLogin 关闭最近一条未登出的记录，没有则忽略
func (r *userRepository) CloseLatestLogin(ctx context.Context, userID uint, at time.Time) error {
	var h model.LoginHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND logout_time IS NULL", userID).
		Order("id desc").
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&h).Update("logout_time", at).Error
}

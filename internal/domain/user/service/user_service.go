package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"regexp"
	"strings"
	"time"

	forumModel "carforum/internal/domain/forum/model"
	"carforum/internal/domain/user/model"
	"carforum/internal/domain/user/repository"
	"carforum/internal/pkg/uploader"
	"carforum/pkg/database"
	"carforum/pkg/errs"
	"carforum/pkg/logger"
	"carforum/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// ProfileContent 个人主页需要的帖子/回复查询，由论坛仓库实现
type ProfileContent interface {
	PostsByAuthor(ctx context.Context, userID uint, offset, limit int) ([]forumModel.Post, int64, error)
	RepliesByAuthor(ctx context.Context, userID uint, offset, limit int) ([]forumModel.Reply, int64, error)
}

// ConversationClearer 登出时清理会话对应的聊天记录
type ConversationClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string      `json:"token"`
	ExpireAt  *time.Time  `json:"expireAt"`
	SessionID string      `json:"sessionId"`
	User      *model.User `json:"user"`
}

// Profile 个人主页
type Profile struct {
	User    *model.User      `json:"user"`
	Posts   utils.PageResult `json:"posts"`
	Replies utils.PageResult `json:"replies"`
}

// UserService 用户服务接口
type UserService interface {
	Register(ctx context.Context, username, password, email string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, userID uint, sessionID string) error
	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetByUsernames(ctx context.Context, usernames []string) ([]model.User, error)
	GetProfile(ctx context.Context, id uint, postPage, replyPage int) (*Profile, error)
	ChangePassword(ctx context.Context, id uint, current, newPassword, confirm string) error
	UpdateAvatar(ctx context.Context, id uint, file *multipart.FileHeader) (*model.User, error)
}

// userService 实现
type userService struct {
	repo         repository.UserRepository
	content      ProfileContent
	chats        ConversationClearer
	uploader     uploader.Uploader
	profilePages int
}

// NewUserService 创建用户服务，uploader 与 chats 可为 nil
func NewUserService(repo repository.UserRepository, content ProfileContent, chats ConversationClearer, up uploader.Uploader, profilePageSize int) UserService {
	if profilePageSize <= 0 {
		profilePageSize = 5
	}
	return &userService{
		repo:         repo,
		content:      content,
		chats:        chats,
		uploader:     up,
		profilePages: profilePageSize,
	}
}

// Register 注册
func (s *userService) Register(ctx context.Context, username, password, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return nil, errs.Invalid("username", "Username is required")
	}
	if password == "" {
		return nil, errs.Invalid("password", "Password is required")
	}
	if !emailPattern.MatchString(email) {
		return nil, errs.Invalid("email", "Invalid email address")
	}

	if err := s.ensureFree(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:        username,
		Email:           email,
		PasswordHash:    hash,
		ProfileImageURL: model.DefaultProfileImage,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// 并发注册时由唯一索引兜底
		if database.IsUniqueViolation(err) {
			if strings.Contains(database.ConstraintName(err), "email") {
				return nil, errs.Invalid("email", "Email already registered")
			}
			return nil, errs.Invalid("username", "Username already exists")
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) ensureFree(ctx context.Context, username, email string) error {
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return errs.Invalid("username", "Username already exists")
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return errs.Invalid("email", "Email already registered")
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	return nil
}

// Login 登录：校验密码，记录登录历史，签发带会话 ID 的 token
func (s *userService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, errs.ErrUnauthorized
	}

	history := &model.LoginHistory{
		Username:  user.Username,
		LoginTime: time.Now().UTC(),
		UserID:    user.ID,
	}
	if err := s.repo.CreateLoginHistory(ctx, history); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	sessionID := uuid.NewString()
	token, expireAt, err := utils.GenerateToken(user.ID, user.Username, sessionID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpireAt: expireAt, SessionID: sessionID, User: user}, nil
}

// Logout 关闭登录记录并清空本会话的聊天记录
func (s *userService) Logout(ctx context.Context, userID uint, sessionID string) error {
	if err := s.repo.CloseLatestLogin(ctx, userID, time.Now().UTC()); err != nil {
		return err
	}
	if s.chats != nil && sessionID != "" {
		if err := s.chats.Clear(ctx, sessionID); err != nil {
			logger.Log.Warn("clear conversation failed",
				zap.Uint("user_id", userID),
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}
	return nil
}

// GetUser 获取单个用户
func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *userService) GetByUsernames(ctx context.Context, usernames []string) ([]model.User, error) {
	return s.repo.GetByUsernames(ctx, usernames)
}

// GetProfile 用户信息及其帖子、回复 (各自分页，新的在前)
func (s *userService) GetProfile(ctx context.Context, id uint, postPage, replyPage int) (*Profile, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pp := utils.FixedPage(postPage, s.profilePages)
	offset, limit := pp.GetPageOffset()
	posts, postTotal, err := s.content.PostsByAuthor(ctx, id, offset, limit)
	if err != nil {
		return nil, err
	}

	rp := utils.FixedPage(replyPage, s.profilePages)
	offset, limit = rp.GetPageOffset()
	replies, replyTotal, err := s.content.RepliesByAuthor(ctx, id, offset, limit)
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:    user,
		Posts:   utils.NewPageResult(posts, postTotal, pp),
		Replies: utils.NewPageResult(replies, replyTotal, rp),
	}, nil
}

// ChangePassword 修改密码
func (s *userService) ChangePassword(ctx context.Context, id uint, current, newPassword, confirm string) error {
	if newPassword == "" {
		return errs.Invalid("new_password", "New password is required")
	}
	if newPassword != confirm {
		return errs.Invalid("confirm_password", "New password and confirmation do not match")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(user.PasswordHash, current) {
		return errs.Invalid("current_password", "Current password is incorrect")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, hash)
}

// UpdateAvatar 上传头像并保存地址
func (s *userService) UpdateAvatar(ctx context.Context, id uint, file *multipart.FileHeader) (*model.User, error) {
	if file == nil {
		return nil, errs.Invalid("file", "No file uploaded")
	}
	if s.uploader == nil {
		return nil, errs.Dependency("oss", errors.New("uploader not configured"))
	}

	url, err := s.uploader.UploadFile("avatars", file)
	if err != nil {
		if errors.Is(err, uploader.ErrUnsupportedType) {
			return nil, errs.Invalid("file", err.Error())
		}
		return nil, errs.Dependency("oss", err)
	}
	if err := s.repo.UpdateProfileImage(ctx, id, url); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

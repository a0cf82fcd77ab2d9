package handler

import (
	"net/http"
	"strconv"

	"carforum/internal/domain/user/service"
	"carforum/internal/pkg/middleware"
	"carforum/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	service service.UserService
}

// NewUserHandler 创建处理器
func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterInput 注册输入
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// LoginInput 登录输入
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordInput 修改密码输入
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register 处理注册请求
// @Summary 注册
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RegisterInput true "注册信息"
// @Success 200 {object} response.Response
// @Router /auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	user, err := h.service.Register(c.Request.Context(), input.Username, input.Password, input.Email)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, user)
}

// Login 处理登录请求
// @Summary 登录
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginInput true "登录信息"
// @Success 200 {object} response.Response
// @Router /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	result, err := h.service.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}

// Logout 登出
func (h *UserHandler) Logout(c *gin.Context) {
	err := h.service.Logout(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentSessionID(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, true)
}

// GetProfile 用户主页
// @Summary 用户主页
// @Tags users
// @Produce json
// @Param id path int true "用户ID"
// @Param post_page query int false "帖子页码"
// @Param reply_page query int false "回复页码"
// @Success 200 {object} response.Response
// @Router /users/{id}/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid user id")
		return
	}
	postPage, _ := strconv.Atoi(c.DefaultQuery("post_page", "1"))
	replyPage, _ := strconv.Atoi(c.DefaultQuery("reply_page", "1"))

	profile, err := h.service.GetProfile(c.Request.Context(), uint(id), postPage, replyPage)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, profile)
}

// ChangePassword 修改密码
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	err := h.service.ChangePassword(c.Request.Context(), middleware.CurrentUserID(c),
		input.CurrentPassword, input.NewPassword, input.ConfirmPassword)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, true)
}

// UpdateAvatar 上传头像 (multipart 字段 file)
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	file, _ := c.FormFile("file")
	user, err := h.service.UpdateAvatar(c.Request.Context(), middleware.CurrentUserID(c), file)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, user)
}

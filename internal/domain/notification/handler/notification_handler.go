package handler

import (
	"net/http"
	"strconv"

	"carforum/internal/domain/notification/service"
	"carforum/internal/pkg/middleware"
	"carforum/pkg/response"

	"github.com/gin-gonic/gin"
)

// NotificationHandler 通知处理器
type NotificationHandler struct {
	service service.NotificationService
}

func NewNotificationHandler(service service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid notification id")
		return 0, false
	}
	return uint(id), true
}

// List 通知列表
// @Summary 通知列表
// @Tags notifications
// @Produce json
// @Param page query int false "页码"
// @Success 200 {object} response.Response
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	result, err := h.service.List(c.Request.Context(), middleware.CurrentUserID(c), page)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}

// Latest 最新未读通知
func (h *NotificationHandler) Latest(c *gin.Context) {
	list, err := h.service.Latest(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, list)
}

// UnreadCount 未读数量
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"count": count})
}

// MarkRead 标记已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, true)
}

// MarkAllRead 全部标记已读
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.service.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": n})
}

// Delete 删除通知
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, true)
}

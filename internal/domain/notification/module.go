package notification

import (
	"carforum/internal/domain/notification/handler"
	"carforum/internal/domain/notification/repository"
	"carforum/internal/domain/notification/service"
	"carforum/internal/pkg/middleware"
	"carforum/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// NotificationModule 通知模块 (读侧)，分发由论坛模块在写入后触发
type NotificationModule struct{}

func init() {
	registry.Register(&NotificationModule{})
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) Priority() int {
	return 5
}

func (m *NotificationModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewNotificationRepository(ctx.DB)
	svc := service.NewNotificationService(repo, ctx.Config.Forum.PageSize, ctx.Config.Forum.LatestLimit)
	h := handler.NewNotificationHandler(svc)

	setupRoutes(ctx.Router, h)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.NotificationHandler) {
	group := r.Group("/notifications")
	group.Use(middleware.AuthMiddleware())
	{
		group.GET("", h.List)
		group.GET("/latest", h.Latest)
		group.GET("/unread-count", h.UnreadCount)
		group.POST("/read-all", h.MarkAllRead)
		group.POST("/:id/read", h.MarkRead)
		group.DELETE("/:id", h.Delete)
	}
}

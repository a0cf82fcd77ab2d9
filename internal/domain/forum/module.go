package forum

import (
	"carforum/internal/domain/forum/handler"
	"carforum/internal/domain/forum/repository"
	"carforum/internal/domain/forum/service"
	notificationRepo "carforum/internal/domain/notification/repository"
	notificationService "carforum/internal/domain/notification/service"
	userRepo "carforum/internal/domain/user/repository"
	"carforum/internal/pkg/middleware"
	"carforum/internal/pkg/push"
	"carforum/internal/pkg/registry"
	"carforum/internal/pkg/worker"

	"github.com/gin-gonic/gin"
)

// ForumModule 论坛模块：帖子、回复、投票
type ForumModule struct{}

func init() {
	registry.Register(&ForumModule{})
}

func (m *ForumModule) Name() string {
	return "forum"
}

func (m *ForumModule) Priority() int {
	return 10
}

func (m *ForumModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	pusher, err := push.FromConfig(ctx.Config.Push)
	if err != nil {
		return err
	}
	if pusher != nil {
		pool := worker.NewPushPool(pusher, ctx.Metrics, 4, 256)
		pool.Start()
		ctx.OnShutdown(pool.Stop)
		pusher = pool
	}
	dispatcher := notificationService.NewDispatcher(
		notificationRepo.NewNotificationRepository(ctx.DB),
		userRepo.NewUserRepository(ctx.DB),
		pusher,
		ctx.Metrics,
		ctx.Config.Forum.PreviewLength,
	)
	forumService := service.NewForumService(repository.NewForumRepository(ctx.DB), dispatcher, ctx.Metrics, service.Options{
		PageSize:      ctx.Config.Forum.PageSize,
		ReplyPageSize: ctx.Config.Forum.ReplyPageSize,
	})
	forumHandler := handler.NewForumHandler(forumService)

	// 2. 路由注册
	setupRoutes(ctx.Router, forumHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.ForumHandler) {
	// 匿名可访问，登录后附带投票状态
	public := r.Group("/posts")
	public.Use(middleware.OptionalAuthMiddleware())
	{
		public.GET("", h.ListPosts)
		public.GET("/search", h.SearchPosts)
		public.GET("/:id", h.GetPost)
		public.GET("/:id/replies/tree", h.ReplyTree)
	}

	auth := r.Group("")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.POST("/posts", h.CreatePost)
		auth.DELETE("/posts/:id", h.DeletePost)
		auth.POST("/posts/:id/replies", h.SubmitReply)
		auth.POST("/vote/:type/:id/:action", h.Vote)
	}
}

package user

import (
	assistantRepo "carforum/internal/domain/assistant/repository"
	forumRepo "carforum/internal/domain/forum/repository"
	"carforum/internal/domain/user/handler"
	"carforum/internal/domain/user/repository"
	"carforum/internal/domain/user/service"
	"carforum/internal/pkg/middleware"
	"carforum/internal/pkg/registry"
	"carforum/internal/pkg/uploader"

	"github.com/gin-gonic/gin"
)

// UserModule 用户模块
type UserModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&UserModule{})
}

func (m *UserModule) Name() string {
	return "user"
}

func (m *UserModule) Priority() int {
	// 用户模块优先级最高，因为其他模块可能依赖它
	return 1
}

func (m *UserModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	up, err := uploader.FromConfig(ctx.Config.OSS)
	if err != nil {
		return err
	}
	userRepo := repository.NewUserRepository(ctx.DB)
	content := forumRepo.NewForumRepository(ctx.DB)
	chats := assistantRepo.NewConversationRepository(ctx.Cache, assistantRepo.DefaultTTL)
	userService := service.NewUserService(userRepo, content, chats, up, ctx.Config.Forum.ProfilePageSize)
	userHandler := handler.NewUserHandler(userService)

	// 2. 路由注册
	setupRoutes(ctx.Router, userHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.UserHandler) {
	// 公开路由
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", middleware.AuthMiddleware(), h.Logout)
	}

	// 受保护的路由
	userGroup := r.Group("/users")
	userGroup.Use(middleware.AuthMiddleware())
	{
		userGroup.GET("/:id/profile", h.GetProfile)
		userGroup.PUT("/me/password", h.ChangePassword)
		userGroup.POST("/me/avatar", h.UpdateAvatar)
	}
}

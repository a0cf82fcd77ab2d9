package assistant

import (
	"carforum/internal/domain/assistant/client"
	"carforum/internal/domain/assistant/handler"
	"carforum/internal/domain/assistant/repository"
	"carforum/internal/domain/assistant/service"
	"carforum/internal/pkg/middleware"
	"carforum/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// AssistantModule 聊天助手模块
type AssistantModule struct{}

func init() {
	registry.Register(&AssistantModule{})
}

func (m *AssistantModule) Name() string {
	return "assistant"
}

func (m *AssistantModule) Priority() int {
	return 20
}

func (m *AssistantModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewConversationRepository(ctx.Cache, repository.DefaultTTL)
	completer := client.NewOpenAICompleter(ctx.Config.OpenAI)
	h := handler.NewAssistantHandler(service.NewAssistantService(repo, completer, ctx.Metrics))

	setupRoutes(ctx.Router, h)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.AssistantHandler) {
	g := r.Group("/chat")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("", h.History)
		g.POST("", h.Ask)
		g.DELETE("", h.Clear)
	}
}

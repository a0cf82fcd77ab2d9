package news

import (
	"time"

	"carforum/internal/domain/news/client"
	"carforum/internal/domain/news/handler"
	"carforum/internal/domain/news/service"
	"carforum/internal/pkg/registry"
)

// NewsModule 新闻模块
type NewsModule struct{}

func init() {
	registry.Register(&NewsModule{})
}

func (m *NewsModule) Name() string {
	return "news"
}

func (m *NewsModule) Priority() int {
	return 20
}

func (m *NewsModule) Init(ctx *registry.ModuleContext) error {
	cfg := ctx.Config.News
	fetcher := client.NewNewsAPIClient(cfg.BaseURL, cfg.APIKey, 10*time.Second)
	svc := service.NewNewsService(fetcher, ctx.Cache, ctx.Metrics, time.Duration(cfg.CacheMinutes)*time.Minute, cfg.DefaultTopic)
	h := handler.NewNewsHandler(svc)

	ctx.Router.GET("/news", h.List)
	return nil
}

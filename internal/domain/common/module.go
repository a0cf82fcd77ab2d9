package common

import (
	_ "carforum/docs"
	commonHandler "carforum/internal/pkg/common"
	"carforum/internal/pkg/middleware"
	"carforum/internal/pkg/registry"
	"carforum/internal/pkg/uploader"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// CommonModule 通用功能模块
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	up, err := uploader.FromConfig(ctx.Config.OSS)
	if err != nil {
		return err
	}
	h := commonHandler.NewCommonHandler(ctx.DB, up)

	// 注册通用路由
	setupRoutes(ctx.Router, h)
	return nil
}

func setupRoutes(r *gin.Engine, h *commonHandler.CommonHandler) {
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 文件上传接口
	r.POST("/upload", middleware.AuthMiddleware(), h.UploadFile)
}

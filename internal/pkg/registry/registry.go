package registry

import (
	"sort"

	"carforum/internal/pkg/config"
	"carforum/pkg/cache"
	"carforum/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ModuleContext 模块初始化所需的上下文
type ModuleContext struct {
	DB      *gorm.DB
	Redis   *redis.Client // 可能为 nil (本地开发未配置 Redis)
	Cache   cache.CacheService
	Metrics *metrics.MetricsCollector
	Config  *config.Config
	Router  *gin.Engine

	closers []func()
}

// OnShutdown 注册模块的后台资源释放函数 (worker 池等)
func (c *ModuleContext) OnShutdown(fn func()) {
	c.closers = append(c.closers, fn)
}

// Shutdown 按注册的逆序执行释放函数
func (c *ModuleContext) Shutdown() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Module 模块接口
type Module interface {
	// Name 返回模块名称
	Name() string

	// Init 初始化模块（依赖注入、路由注册等）
	Init(ctx *ModuleContext) error

	// Priority 返回初始化优先级（数字越小越先初始化）
	Priority() int
}

var moduleRegistry = make(map[string]Module)

// Register 注册模块，同名模块后注册的覆盖先注册的
func Register(module Module) {
	moduleRegistry[module.Name()] = module
}

// GetModules 获取所有已注册的模块
func GetModules() map[string]Module {
	return moduleRegistry
}

// Sorted 按优先级排序，优先级相同按名称排序保证初始化顺序稳定
func Sorted() []Module {
	modules := make([]Module, 0, len(moduleRegistry))
	for _, m := range moduleRegistry {
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool {
		if modules[i].Priority() != modules[j].Priority() {
			return modules[i].Priority() < modules[j].Priority()
		}
		return modules[i].Name() < modules[j].Name()
	})
	return modules
}

// InitModules 按优先级初始化所有模块
func InitModules(ctx *ModuleContext) error {
	for _, module := range Sorted() {
		if err := module.Init(ctx); err != nil {
			return err
		}
	}
	return nil
}

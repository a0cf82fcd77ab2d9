package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"carforum/internal/domain/news/client"
	"carforum/internal/domain/news/model"
	"carforum/pkg/cache"
	"carforum/pkg/logger"
	"carforum/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	cachePrefix  = "news:"
	fetchTimeout = 15 * time.Second
)

// NewsService 新闻源。任何失败都记录日志并返回空列表，不向调用方报错
type NewsService interface {
	Fetch(ctx context.Context, topic string) []model.Article
}

type newsService struct {
	fetcher      client.Fetcher
	cache        cache.CacheService
	metrics      *metrics.MetricsCollector
	ttl          time.Duration
	defaultTopic string
	group        singleflight.Group
}

func NewNewsService(fetcher client.Fetcher, c cache.CacheService, collector *metrics.MetricsCollector, ttl time.Duration, defaultTopic string) NewsService {
	if defaultTopic == "" {
		defaultTopic = "car"
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &newsService{
		fetcher:      fetcher,
		cache:        c,
		metrics:      collector,
		ttl:          ttl,
		defaultTopic: defaultTopic,
	}
}

func (s *newsService) Fetch(ctx context.Context, topic string) []model.Article {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		topic = s.defaultTopic
	}
	key := cachePrefix + topic

	var articles []model.Article
	err := s.cache.Get(ctx, key, &articles)
	if err == nil {
		s.metrics.RecordCacheOperation(cachePrefix, true)
		return articles
	}
	s.metrics.RecordCacheOperation(cachePrefix, false)
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Log.Warn("news cache read failed", zap.String("topic", topic), zap.Error(err))
	}

	// 同一主题的并发请求只发起一次上游调用
	// 上游调用不随发起方取消，所有等待者共享结果
	v, err, _ := s.group.Do(topic, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		list, err := s.fetcher.Everything(fetchCtx, topic)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(fetchCtx, key, list, s.ttl); err != nil {
			logger.Log.Warn("news cache write failed", zap.String("topic", topic), zap.Error(err))
		}
		return list, nil
	})
	if err != nil {
		s.metrics.RecordDependencyError("news")
		logger.Log.Warn("fetch news failed", zap.String("topic", topic), zap.Error(err))
		return []model.Article{}
	}

	articles = v.([]model.Article)
	if articles == nil {
		articles = []model.Article{}
	}
	return articles
}

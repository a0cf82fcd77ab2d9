package database

import (
	"database/sql"
	"sync"
	"time"

	"carforum/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PoolSnapshot 连接池快照
type PoolSnapshot struct {
	Timestamp       time.Time     `json:"timestamp"`
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration"`
}

// PoolMonitor 连接池监控器：定期采样 sql.DBStats，
// 连接等待次数增长或使用率超过阈值时告警
type PoolMonitor struct {
	sqlDB     *sql.DB
	interval  time.Duration
	threshold float64 // InUse / MaxOpenConnections

	mu   sync.RWMutex
	last PoolSnapshot
	stop chan struct{}
	once sync.Once
}

// NewPoolMonitor 同时向 reg 注册标准的 go_sql_* 指标，reg 为 nil 时跳过
func NewPoolMonitor(db *gorm.DB, reg prometheus.Registerer, interval time.Duration) (*PoolMonitor, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if reg != nil {
		if err := reg.Register(collectors.NewDBStatsCollector(sqlDB, "carforum")); err != nil {
			return nil, err
		}
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PoolMonitor{
		sqlDB:     sqlDB,
		interval:  interval,
		threshold: 0.8,
		stop:      make(chan struct{}),
	}, nil
}

func (m *PoolMonitor) Start() {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sample()
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *PoolMonitor) Stop() {
	m.once.Do(func() { close(m.stop) })
}

// Sample 采样一次并返回快照
func (m *PoolMonitor) Sample() PoolSnapshot {
	s := m.sqlDB.Stats()
	snap := PoolSnapshot{
		Timestamp:       time.Now(),
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		WaitCount:       s.WaitCount,
		WaitDuration:    s.WaitDuration,
	}

	m.mu.Lock()
	prev := m.last
	m.last = snap
	m.mu.Unlock()

	if waited := snap.WaitCount - prev.WaitCount; !prev.Timestamp.IsZero() && waited > 0 {
		logger.Log.Warn("db pool: callers waited for a connection",
			zap.Int64("waits", waited),
			zap.Duration("wait_total", snap.WaitDuration-prev.WaitDuration))
	}
	if s.MaxOpenConnections > 0 && float64(s.InUse)/float64(s.MaxOpenConnections) >= m.threshold {
		logger.Log.Warn("db pool: usage above threshold",
			zap.Int("in_use", s.InUse),
			zap.Int("max_open", s.MaxOpenConnections))
	}
	return snap
}

// Last 最近一次快照
func (m *PoolMonitor) Last() PoolSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

package worker

import (
	"errors"
	"sync"
	"time"

	"carforum/internal/pkg/push"
	"carforum/pkg/logger"
	"carforum/pkg/metrics"

	"go.uber.org/zap"
)

// ErrQueueFull 推送队列已满，任务被丢弃
var ErrQueueFull = errors.New("push queue full")

// PushTask 一次待投递的推送
type PushTask struct {
	AccountID string
	Title     string
	Body      string
	Ext       map[string]string
	Retry     int // 重试次数
}

// PushPool 异步推送池，实现 push.PushService。
// PushToAccount 只负责入队，真正的远程调用在 worker 协程里完成，失败按次数退避重试。
type PushPool struct {
	TaskQueue  chan PushTask
	RetryQueue chan PushTask // 重试队列
	Sink       push.PushService
	WorkerNum  int
	MaxRetry   int // 最大重试次数
	Backoff    time.Duration

	metrics *metrics.MetricsCollector
	wg      sync.WaitGroup
	once    sync.Once
	done    chan struct{}
}

var _ push.PushService = (*PushPool)(nil)

func NewPushPool(sink push.PushService, collector *metrics.MetricsCollector, workerNum int, bufferSize int) *PushPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if bufferSize < 2 {
		bufferSize = 2
	}
	return &PushPool{
		TaskQueue:  make(chan PushTask, bufferSize),
		RetryQueue: make(chan PushTask, bufferSize/2),
		Sink:       sink,
		WorkerNum:  workerNum,
		MaxRetry:   3, // 最多重试3次
		Backoff:    time.Second,
		metrics:    collector,
		done:       make(chan struct{}),
	}
}

func (p *PushPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	// 启动重试处理协程
	go p.retryWorker()
	logger.Log.Info("Push worker pool started", zap.Int("workers", p.WorkerNum))
}

// Stop 停止接收新任务并等待队列中已有任务处理完，等待重试的任务直接丢弃
func (p *PushPool) Stop() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
}

// PushToAccount 入队，不阻塞调用方
func (p *PushPool) PushToAccount(accountID string, title, body string, extParameters map[string]string) error {
	task := PushTask{AccountID: accountID, Title: title, Body: body, Ext: extParameters}
	select {
	case <-p.done:
		return ErrQueueFull
	default:
	}
	select {
	case p.TaskQueue <- task:
		return nil
	default:
		p.logFailedTask(task, ErrQueueFull)
		return ErrQueueFull
	}
}

func (p *PushPool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.TaskQueue:
			p.deliver(id, task)
		case <-p.done:
			// 排空已入队的任务
			for {
				select {
				case task := <-p.TaskQueue:
					p.deliver(id, task)
				default:
					return
				}
			}
		}
	}
}

func (p *PushPool) deliver(id int, task PushTask) {
	err := p.Sink.PushToAccount(task.AccountID, task.Title, task.Body, task.Ext)
	if err == nil {
		return
	}
	p.metrics.RecordDependencyError("push")
	logger.Log.Warn("push delivery failed",
		zap.Int("worker", id),
		zap.String("account", task.AccountID),
		zap.Int("attempt", task.Retry+1),
		zap.Error(err))

	// 如果未达到最大重试次数，加入重试队列
	if task.Retry >= p.MaxRetry {
		p.logFailedTask(task, err)
		return
	}
	task.Retry++
	select {
	case p.RetryQueue <- task:
	default:
		p.logFailedTask(task, err)
	}
}

func (p *PushPool) retryWorker() {
	for {
		select {
		case <-p.done:
			return
		case task := <-p.RetryQueue:
			// 延迟重试，避免立即重试
			select {
			case <-p.done:
				return
			case <-time.After(time.Duration(task.Retry) * p.Backoff):
			}
			p.requeue(task)
		}
	}
}

func (p *PushPool) requeue(task PushTask) {
	select {
	case <-p.done:
		p.logFailedTask(task, ErrQueueFull)
	case p.TaskQueue <- task:
	default:
		p.logFailedTask(task, ErrQueueFull)
	}
}

func (p *PushPool) logFailedTask(task PushTask, err error) {
	logger.Log.Error("push dropped",
		zap.String("account", task.AccountID),
		zap.Int("retries", task.Retry),
		zap.Error(err))
}

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"homerent/pkg/logger"
)

// Handler 任务处理函数，返回错误时按配置重试
type Handler func(ctx context.Context, job *Job) error

// WorkerConfig 工作器配置
type WorkerConfig struct {
	WorkerCount     int           // 并发工作器数量
	MaxRetries      int           // 最大重试次数
	RetryInterval   time.Duration // 重试间隔
	PollTimeout     time.Duration // BRPOP 阻塞时长
	JobTimeout      time.Duration // 单个任务超时
	ShutdownTimeout time.Duration // 关闭超时时间
}

// Worker 队列工作器组
type Worker struct {
	queue    *QueueService
	handlers map[JobKind]Handler
	config   WorkerConfig
	metrics  *QueueMetrics
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorker 创建工作器组
func NewWorker(q *QueueService, config WorkerConfig) *Worker {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 4
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = time.Second
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return &Worker{
		queue:    q,
		handlers: make(map[JobKind]Handler),
		config:   config,
		metrics:  q.metrics,
	}
}

// Handle 注册任务处理函数，需在 Start 之前调用
func (w *Worker) Handle(kind JobKind, h Handler) {
	w.handlers[kind] = h
}

// Start 启动工作器组，ctx 取消或调用 Stop 时退出
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	for i := 0; i < w.config.WorkerCount; i++ {
		w.wg.Add(1)
		go w.startWorker(ctx, i)
	}
}

func (w *Worker) startWorker(ctx context.Context, id int) {
	defer w.wg.Done()

	logger.DebugString("Worker", "Start", fmt.Sprintf("worker %d started", id))
	for {
		if ctx.Err() != nil {
			logger.DebugString("Worker", "Stop", fmt.Sprintf("worker %d stopping", id))
			return
		}
		if _, err := w.ProcessNext(ctx); err != nil && ctx.Err() == nil {
			logger.ErrorString("Worker", "Error", fmt.Sprintf("worker %d: %v", id, err))
			sleep(ctx, time.Second)
		}
	}
}

// ProcessNext 取出并处理一个任务，队列为空时返回 false
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.queue.Pop(ctx, w.config.PollTimeout)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	return true, w.handleJob(ctx, job)
}

func (w *Worker) handleJob(ctx context.Context, job *Job) error {
	start := time.Now()
	defer func() {
		w.metrics.RecordProcessLatency(time.Since(start))
	}()

	handler, ok := w.handlers[job.Kind]
	if !ok {
		w.metrics.RecordError(OpProcess)
		logger.LogIf(w.queue.UpdateStatus(ctx, job.ID, JobFailed))
		return fmt.Errorf("no handler for job kind %q", job.Kind)
	}

	if err := w.queue.UpdateStatus(ctx, job.ID, JobRunning); err != nil {
		return err
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	err := handler(jobCtx, job)
	cancel()

	if err == nil {
		w.metrics.RecordSuccess(OpProcess)
		return w.queue.UpdateStatus(ctx, job.ID, JobCompleted)
	}

	if job.Attempts < w.config.MaxRetries {
		job.Attempts++
		w.metrics.RecordRetry()
		logger.WarnString("Worker", "Retry", fmt.Sprintf("%s %s attempt %d: %v", job.Kind, job.ID, job.Attempts, err))
		sleep(ctx, w.config.RetryInterval)
		return w.queue.Push(ctx, job)
	}

	w.metrics.RecordError(OpProcess)
	logger.LogIf(w.queue.UpdateStatus(ctx, job.ID, JobFailed))
	return fmt.Errorf("job %s %s failed after %d attempts: %w", job.Kind, job.ID, job.Attempts+1, err)
}

// Stop 优雅关闭工作器组
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.InfoString("Worker", "Stop", "all workers stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		logger.WarnString("Worker", "Stop", "worker shutdown timed out")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

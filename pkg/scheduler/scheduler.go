// Package scheduler 服务端定时任务：批量对账、逾期标记
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"homerent/pkg/logger"
)

// Task 定时任务
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler 每个任务一个 goroutine，按固定间隔执行，同一任务不会并发
type Scheduler struct {
	tasks  []Task
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New 创建调度器
func New() *Scheduler {
	return &Scheduler{}
}

// Add 注册任务，间隔不大于 0 的任务会被忽略
func (s *Scheduler) Add(task Task) {
	if task.Interval <= 0 || task.Run == nil {
		logger.WarnString("Scheduler", "Add", "skip task "+task.Name)
		return
	}
	s.tasks = append(s.tasks, task)
}

// Tasks 已注册任务名
func (s *Scheduler) Tasks() []string {
	names := make([]string, 0, len(s.tasks))
	for _, t := range s.tasks {
		names = append(names, t.Name)
	}
	return names
}

// Start 启动所有任务
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	logger.InfoString("Scheduler", "Start", fmt.Sprintf("%s every %s", task.Name, task.Interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, task)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorString("Scheduler", task.Name, fmt.Sprintf("panic: %v", r))
		}
	}()

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		logger.ErrorString("Scheduler", task.Name, err.Error())
		return
	}
	logger.DebugString("Scheduler", task.Name, "done in "+time.Since(start).String())
}

// Stop 停止所有任务并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}

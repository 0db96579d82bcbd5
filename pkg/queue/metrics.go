package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricOperation 定义指标操作类型
type MetricOperation string

const (
	OpPush    MetricOperation = "push"
	OpPop     MetricOperation = "pop"
	OpProcess MetricOperation = "process"
)

// LatencyStats 延迟统计
type LatencyStats struct {
	mu    sync.Mutex
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

// QueueMetrics 队列指标收集器
type QueueMetrics struct {
	totalTasks      atomic.Int64
	successfulTasks atomic.Int64
	failedTasks     atomic.Int64
	retriedTasks    atomic.Int64

	pushLatency    *LatencyStats
	processLatency *LatencyStats
}

// MetricsSnapshot 指标快照，用于健康检查接口输出
type MetricsSnapshot struct {
	Total          int64         `json:"total"`
	Succeeded      int64         `json:"succeeded"`
	Failed         int64         `json:"failed"`
	Retried        int64         `json:"retried"`
	AvgPushLatency time.Duration `json:"avg_push_latency"`
	AvgProcessTime time.Duration `json:"avg_process_time"`
	MaxProcessTime time.Duration `json:"max_process_time"`
}

// NewQueueMetrics 创建新的指标收集器
func NewQueueMetrics() *QueueMetrics {
	return &QueueMetrics{
		pushLatency:    &LatencyStats{},
		processLatency: &LatencyStats{},
	}
}

// RecordSuccess 记录成功操作
func (m *QueueMetrics) RecordSuccess(op MetricOperation) {
	if op == OpProcess {
		m.successfulTasks.Add(1)
		m.totalTasks.Add(1)
	}
}

// RecordError 记录失败操作
func (m *QueueMetrics) RecordError(op MetricOperation) {
	if op == OpProcess {
		m.failedTasks.Add(1)
		m.totalTasks.Add(1)
	}
}

// RecordRetry 记录重试
func (m *QueueMetrics) RecordRetry() {
	m.retriedTasks.Add(1)
}

// RecordPushLatency 记录推送延迟
func (m *QueueMetrics) RecordPushLatency(d time.Duration) {
	m.pushLatency.record(d)
}

// RecordProcessLatency 记录处理耗时
func (m *QueueMetrics) RecordProcessLatency(d time.Duration) {
	m.processLatency.record(d)
}

// Snapshot 读取当前指标
func (m *QueueMetrics) Snapshot() MetricsSnapshot {
	_, pushAvg, _ := m.pushLatency.stats()
	_, processAvg, processMax := m.processLatency.stats()
	return MetricsSnapshot{
		Total:          m.totalTasks.Load(),
		Succeeded:      m.successfulTasks.Load(),
		Failed:         m.failedTasks.Load(),
		Retried:        m.retriedTasks.Load(),
		AvgPushLatency: pushAvg,
		AvgProcessTime: processAvg,
		MaxProcessTime: processMax,
	}
}

func (s *LatencyStats) record(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.total += d
	if s.min == 0 || d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
}

func (s *LatencyStats) stats() (count int64, avg, max time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		return 0, 0, 0
	}
	return s.count, s.total / time.Duration(s.count), s.max
}

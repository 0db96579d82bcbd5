package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"homerent/pkg/config"
	"homerent/pkg/redis"
)

// JobKind 任务类型
type JobKind string

const (
	KindSyncPayment   JobKind = "sync_payment"   // 单笔账单对账
	KindSendReminders JobKind = "send_reminders" // 给某个房东名下的租客发送催缴提醒
)

// JobStatus 任务状态
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job 队列任务
type Job struct {
	ID        string    `json:"id"`
	Kind      JobKind   `json:"kind"`
	PaymentID string    `json:"payment_id,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// Options 队列参数
type Options struct {
	Prefix    string
	Timeout   time.Duration // 任务状态保留时长
	RateLimit int
	RateBurst int
}

// QueueService Redis 列表队列，LPUSH 入队，BRPOP 出队
type QueueService struct {
	client      *redis.RedisClient
	prefix      string
	timeout     time.Duration
	rateLimiter *rate.Limiter
	metrics     *QueueMetrics
}

// NewQueueService 创建队列服务
func NewQueueService(client *redis.RedisClient, opts Options) *QueueService {
	if opts.Prefix == "" {
		opts.Prefix = "homerent:queue"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Hour
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 50
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = opts.RateLimit
	}

	return &QueueService{
		client:      client,
		prefix:      opts.Prefix,
		timeout:     opts.Timeout,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		metrics:     NewQueueMetrics(),
	}
}

// NewQueueServiceFromConfig 使用队列专用 Redis 库和配置创建队列服务
func NewQueueServiceFromConfig() *QueueService {
	return NewQueueService(redis.GetRedis(redis.QueueDB), Options{
		Prefix:    config.GetString("redis.queue_prefix", "homerent:queue"),
		Timeout:   time.Duration(config.GetInt("redis.queue_timeout", 3600)) * time.Second,
		RateLimit: config.GetInt("queue.rate_limit", 50),
		RateBurst: config.GetInt("queue.rate_burst", 100),
	})
}

func (q *QueueService) jobsKey() string {
	return q.prefix + ":jobs"
}

func (q *QueueService) statusKey(id string) string {
	return fmt.Sprintf("%s:status:%s", q.prefix, id)
}

// Push 任务入队并记录状态
func (q *QueueService) Push(ctx context.Context, job *Job) error {
	if err := q.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	start := time.Now()
	defer func() {
		q.metrics.RecordPushLatency(time.Since(start))
	}()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.Client.TxPipeline()
	pipe.LPush(ctx, q.jobsKey(), payload)
	pipe.Set(ctx, q.statusKey(job.ID), string(JobPending), q.timeout)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

// EnqueueSync 投递账单对账任务
func (q *QueueService) EnqueueSync(ctx context.Context, paymentID, reason string) error {
	return q.Push(ctx, &Job{Kind: KindSyncPayment, PaymentID: paymentID, Reason: reason})
}

// EnqueueReminders 投递催缴提醒任务，返回任务 ID
func (q *QueueService) EnqueueReminders(ctx context.Context, ownerID string) (string, error) {
	job := &Job{Kind: KindSendReminders, OwnerID: ownerID}
	if err := q.Push(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Pop 阻塞获取任务，超时无任务时返回 nil
func (q *QueueService) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.Client.BRPop(ctx, timeout, q.jobsKey()).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop job from queue: %w", err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("invalid result from queue")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// UpdateStatus 更新任务状态
func (q *QueueService) UpdateStatus(ctx context.Context, jobID string, status JobStatus) error {
	if err := q.client.Client.Set(ctx, q.statusKey(jobID), string(status), q.timeout).Err(); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

// GetStatus 获取任务状态，不存在时返回空字符串
func (q *QueueService) GetStatus(ctx context.Context, jobID string) (JobStatus, error) {
	status, err := q.client.Client.Get(ctx, q.statusKey(jobID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get job status: %w", err)
	}
	return JobStatus(status), nil
}

// Len 队列积压长度
func (q *QueueService) Len(ctx context.Context) (int64, error) {
	return q.client.Client.LLen(ctx, q.jobsKey()).Result()
}

// Metrics 指标
func (q *QueueService) Metrics() *QueueMetrics {
	return q.metrics
}

// Ping 检查队列服务健康状态
func (q *QueueService) Ping(ctx context.Context) error {
	return q.client.Client.Ping(ctx).Err()
}

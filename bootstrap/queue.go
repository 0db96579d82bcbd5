package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homerent/pkg/config"
	"homerent/pkg/logger"
	"homerent/pkg/notify"
	"homerent/pkg/payment"
	"homerent/pkg/queue"
	"homerent/pkg/redis"
)

// SetupQueue 创建任务队列，Redis 未就绪时返回 nil
func SetupQueue() *queue.QueueService {
	if redis.GetRedis(redis.QueueDB) == nil {
		logger.ErrorString("Queue", "Setup", "Redis manager not initialized")
		return nil
	}
	return queue.NewQueueServiceFromConfig()
}

// SetupWorker 注册对账与催缴任务的处理函数
func SetupWorker(q *queue.QueueService, payments *payment.Service, notifier *notify.Service) *queue.Worker {
	worker := queue.NewWorker(q, queue.WorkerConfig{
		WorkerCount:     config.GetInt("queue.worker_count", 4),
		MaxRetries:      config.GetInt("queue.retry_times", 3),
		RetryInterval:   time.Duration(config.GetInt("queue.retry_delay", 5)) * time.Second,
		ShutdownTimeout: 30 * time.Second,
	})

	worker.Handle(queue.KindSyncPayment, func(ctx context.Context, job *queue.Job) error {
		outcome, err := payments.SyncStatus(ctx, job.PaymentID)
		switch {
		case errors.Is(err, payment.ErrNotSyncable), errors.Is(err, payment.ErrNotFound):
			// 账单已删除或还没有网关订单，重试也无意义
			logger.WarnString("Queue", "SyncPayment", err.Error())
			return nil
		case errors.Is(err, payment.ErrOrderMismatch):
			// 已标记待对账，需要人工核对
			logger.ErrorString("Queue", "SyncPayment", err.Error())
			return nil
		case err != nil:
			return err
		}
		logger.InfoString("Queue", "SyncPayment", fmt.Sprintf("%s %s (%s)", job.PaymentID, outcome, job.Reason))
		return nil
	})

	worker.Handle(queue.KindSendReminders, func(ctx context.Context, job *queue.Job) error {
		sent, err := notifier.SendDueReminders(ctx, job.OwnerID)
		logger.InfoString("Queue", "SendReminders", fmt.Sprintf("owner=%s sent=%d", job.OwnerID, sent))
		return err
	})

	return worker
}

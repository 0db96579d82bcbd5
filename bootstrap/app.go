// Package bootstrap 启动各项基础服务
package bootstrap

import (
	"context"

	"homerent/pkg/config"
	"homerent/pkg/events"
	"homerent/pkg/logger"
	"homerent/pkg/notify"
	"homerent/pkg/payment"
	"homerent/pkg/queue"
	"homerent/pkg/redis"
	"homerent/pkg/scheduler"
)

// Application 进程内共享的服务，Queue / Worker / Scheduler 可能为空
type Application struct {
	Hub       *events.Hub
	Queue     *queue.QueueService
	Payments  *payment.Service
	Notify    *notify.Service
	Publisher notify.Publisher
	Worker    *queue.Worker
	Scheduler *scheduler.Scheduler

	stopListening func()
}

// LoadConfig 只加载配置和日志
func LoadConfig(env string) {
	config.InitConfig(env)
	SetupLogger()
}

// Boot 加载配置并初始化日志、数据库、Redis 以及业务服务
func Boot(env string) (*Application, error) {
	LoadConfig(env)

	if err := SetupDB(); err != nil {
		return nil, err
	}
	// Redis 不可用时降级运行
	_ = SetupRedis()

	a := &Application{Hub: events.NewHub()}
	a.Queue = SetupQueue()

	var err error
	a.Payments, err = SetupPayment(a.Queue, a.Hub)
	if err != nil {
		return nil, err
	}

	a.Notify, a.Publisher = SetupNotify()
	a.stopListening = a.Notify.ListenPayments(a.Hub)
	return a, nil
}

// StartBackground 启动队列工作器和定时任务
func (a *Application) StartBackground(ctx context.Context) {
	if a.Queue != nil {
		a.Worker = SetupWorker(a.Queue, a.Payments, a.Notify)
		a.Worker.Start(ctx)
	} else {
		logger.WarnString("Bootstrap", "Queue", "队列不可用，对账任务只能通过定时任务或命令行执行")
	}

	a.Scheduler = SetupScheduler(a.Payments)
	if a.Scheduler != nil {
		a.Scheduler.Start(ctx)
	}
}

// Shutdown 按依赖顺序关闭后台任务和外部连接
func (a *Application) Shutdown() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Worker != nil {
		a.Worker.Stop()
	}
	if a.stopListening != nil {
		a.stopListening()
	}
	if a.Publisher != nil {
		logger.LogIf(a.Publisher.Close())
	}
	redis.Close()
	_ = logger.Logger.Sync()
}

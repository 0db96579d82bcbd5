package bootstrap

import (
	"context"
	"fmt"
	"time"

	"homerent/pkg/app"
	"homerent/pkg/config"
	"homerent/pkg/logger"
	"homerent/pkg/payment"
	"homerent/pkg/scheduler"
)

// SetupScheduler 注册定时对账与逾期标记任务，reconcile.enabled 为 false 时返回 nil
func SetupScheduler(payments *payment.Service) *scheduler.Scheduler {
	if !config.GetBool("reconcile.enabled") {
		logger.InfoString("Scheduler", "Setup", "定时对账已关闭")
		return nil
	}

	s := scheduler.New()
	s.Add(scheduler.Task{
		Name:     "sync-all",
		Interval: time.Duration(config.GetInt("reconcile.sync_interval", 300)) * time.Second,
		Run: func(ctx context.Context) error {
			report, err := payments.SyncAll(ctx)
			if err != nil {
				return err
			}
			logger.InfoString("Scheduler", "sync-all", fmt.Sprintf("synced=%d updated=%d errors=%d",
				report.Synced, report.Updated, len(report.Errors)))
			return nil
		},
	})
	s.Add(scheduler.Task{
		Name:     "mark-overdue",
		Interval: time.Duration(config.GetInt("reconcile.overdue_interval", 3600)) * time.Second,
		Run: func(ctx context.Context) error {
			n, err := payments.MarkOverdue(ctx, app.TimenowInTimezone())
			if n > 0 {
				logger.InfoString("Scheduler", "mark-overdue", fmt.Sprintf("marked=%d", n))
			}
			return err
		},
	})
	return s
}

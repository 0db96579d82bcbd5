package config

import "homerent/pkg/config"

func init() {
	config.Add("reconcile", func() map[string]interface{} {
		return map[string]interface{}{
			// 是否在服务进程内运行定时对账任务
			"enabled": config.Env("RECONCILE_ENABLED", true),

			// 与网关同步待支付账单的间隔（秒）
			"sync_interval": config.Env("RECONCILE_SYNC_INTERVAL", 300),

			// 扫描逾期账单的间隔（秒）
			"overdue_interval": config.Env("RECONCILE_OVERDUE_INTERVAL", 3600),
		}
	})
}

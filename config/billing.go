package config

import "homerent/pkg/config"

func init() {
	config.Add("billing", func() map[string]interface{} {
		return map[string]interface{}{
			// 到期日之后多少天仍未支付则标记为逾期
			"overdue_after_days": config.Env("BILLING_OVERDUE_AFTER_DAYS", 3),

			// 逾期滞纳金（最小货币单位），0 表示不收取
			"late_fee": config.Env("BILLING_LATE_FEE", 0),
		}
	})
}

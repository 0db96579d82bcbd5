// Package config 站点配置信息
package config

import "homerent/pkg/config"

// Initialize 触发本包各文件的 init 方法，完成配置项注册
func Initialize() {}

func init() {
	config.Add("app", func() map[string]interface{} {
		return map[string]interface{}{

			// 应用名称
			"name": config.Env("APP_NAME", "Homerent"),

			// 当前环境，用以区分多环境，一般为 local, stage, production, testing
			"env": config.Env("APP_ENV", "production"),

			// 是否进入调试模式
			"debug": config.Env("APP_DEBUG", false),

			// 应用服务端口
			"port": config.Env("APP_PORT", "3000"),

			// 设置时区，账期和逾期计算会使用到
			"timezone": config.Env("TIMEZONE", "Asia/Kolkata"),

			// 限流格式为每小时请求数
			"api_rate_limit": config.Env("API_RATE_LIMIT", "3000-H"),

			// 结账、验签接口按 IP + 路由限流
			"checkout_rate_limit": config.Env("CHECKOUT_RATE_LIMIT", "30-M"),

			// 允许跨域的来源，逗号分隔
			"cors_origins": config.Env("CORS_ORIGINS", "*"),
		}
	})
}

package config

import "homerent/pkg/config"

func init() {
	config.Add("jwt", func() map[string]interface{} {
		return map[string]interface{}{
			// 签名密钥，必须与签发令牌的账号服务一致
			"secret": config.Env("JWT_SECRET", ""),

			// 签发方
			"issuer": config.Env("JWT_ISSUER", "homerent"),

			// 过期时间，单位是分钟
			"expire_time": config.Env("JWT_EXPIRE_TIME", 120),
		}
	})
}

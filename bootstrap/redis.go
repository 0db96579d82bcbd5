package bootstrap

import (
	"fmt"

	"homerent/pkg/config"
	"homerent/pkg/logger"
	"homerent/pkg/redis"
)

// SetupRedis 初始化 Redis，连接失败时服务仍可启动，但结账锁、队列和分布式限流不可用
func SetupRedis() error {
	err := redis.InitRedis(
		fmt.Sprintf("%v:%v", config.GetString("redis.host"), config.GetString("redis.port")),
		config.GetString("redis.username"),
		config.GetString("redis.password"),
		config.GetInt("redis.database"),
		config.GetInt("redis.queue_database"),
	)
	if err != nil {
		logger.ErrorString("Redis", "Setup", err.Error())
		return err
	}
	logger.InfoString("Redis", "Setup", "Redis 连接成功")
	return nil
}

// Package redis 提供 Redis 连接管理以及账单对账用到的分布式锁
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"homerent/pkg/logger"
)

const (
	// DefaultPoolSize Redis 连接池大小
	DefaultPoolSize = 50
	// DefaultTimeout 默认操作超时时间
	DefaultTimeout = 5 * time.Second
	// DefaultMinIdleConns 最小空闲连接数
	DefaultMinIdleConns = 5
	// DefaultMaxRetries 最大重试次数
	DefaultMaxRetries = 3
	// DefaultIdleTimeout 空闲超时
	DefaultIdleTimeout = 5 * time.Minute

	lockPrefix = "homerent:lock:"
)

// RedisInstance Redis 实例类型
type RedisInstance string

const (
	MainDB  RedisInstance = "main"  // 限流、结账锁
	QueueDB RedisInstance = "queue" // 对账任务队列
)

// RedisClient Redis 客户端封装
type RedisClient struct {
	Client  *redis.Client
	Context context.Context
}

// RedisConfig Redis 配置结构
type RedisConfig struct {
	Address      string
	Username     string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	Timeout      time.Duration
}

type RedisManager struct {
	instances map[RedisInstance]*RedisClient
	mutex     sync.RWMutex
}

var (
	once    sync.Once
	Manager *RedisManager
	Redis   *RedisClient
)

// NewClient 创建新的 Redis 客户端，连接失败时返回错误
func NewClient(config RedisConfig) (*RedisClient, error) {
	rds := &RedisClient{
		Context: context.Background(),
	}

	rds.Client = redis.NewClient(&redis.Options{
		Addr:            config.Address,
		Username:        config.Username,
		Password:        config.Password,
		DB:              config.DB,
		PoolSize:        config.PoolSize,
		MinIdleConns:    config.MinIdleConns,
		PoolTimeout:     config.Timeout,
		ConnMaxIdleTime: DefaultIdleTimeout,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		MaxRetries:      DefaultMaxRetries,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	if err := rds.Ping(); err != nil {
		return nil, fmt.Errorf("redis 连接失败 %s: %w", config.Address, err)
	}
	return rds, nil
}

// NewFromClient 包装已有的 go-redis 客户端，测试中配合 miniredis 使用
func NewFromClient(client *redis.Client) *RedisClient {
	return &RedisClient{
		Client:  client,
		Context: context.Background(),
	}
}

// InitRedis 初始化 Redis 管理器，主库与队列库分开
func InitRedis(address, username, password string, mainDB, queueDB int) error {
	var initErr error
	once.Do(func() {
		Manager = &RedisManager{
			instances: make(map[RedisInstance]*RedisClient),
		}

		for instance, db := range map[RedisInstance]int{MainDB: mainDB, QueueDB: queueDB} {
			client, err := NewClient(RedisConfig{
				Address:      address,
				Username:     username,
				Password:     password,
				DB:           db,
				PoolSize:     DefaultPoolSize,
				MinIdleConns: DefaultMinIdleConns,
				Timeout:      DefaultTimeout,
			})
			if err != nil {
				initErr = err
				return
			}
			Manager.instances[instance] = client
		}

		Redis = Manager.instances[MainDB]
	})
	return initErr
}

// GetRedis 获取指定的 Redis 实例，未初始化时返回 nil
func GetRedis(instance RedisInstance) *RedisClient {
	if Manager == nil {
		return nil
	}
	Manager.mutex.RLock()
	defer Manager.mutex.RUnlock()

	if client, ok := Manager.instances[instance]; ok {
		return client
	}
	return Redis
}

// Close 关闭所有实例
func Close() {
	if Manager == nil {
		return
	}
	Manager.mutex.Lock()
	defer Manager.mutex.Unlock()
	for name, client := range Manager.instances {
		if err := client.Client.Close(); err != nil {
			logger.ErrorString("Redis", "Close:"+string(name), err.Error())
		}
	}
}

// Ping 测试 Redis 连接
func (rds *RedisClient) Ping() error {
	ctx, cancel := context.WithTimeout(rds.Context, DefaultTimeout)
	defer cancel()

	return rds.Client.Ping(ctx).Err()
}

// Get 获取键值，不存在时返回空字符串
func (rds *RedisClient) Get(key string) string {
	ctx, cancel := context.WithTimeout(rds.Context, DefaultTimeout)
	defer cancel()

	result, err := rds.Client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.ErrorString("Redis", "Get", err.Error())
		}
		return ""
	}
	return result
}

// Set 存储键值对
func (rds *RedisClient) Set(key string, value interface{}, expiration time.Duration) bool {
	ctx, cancel := context.WithTimeout(rds.Context, DefaultTimeout)
	defer cancel()

	if err := rds.Client.Set(ctx, key, value, expiration).Err(); err != nil {
		logger.ErrorString("Redis", "Set", err.Error())
		return false
	}
	return true
}

// Lock 以 SETNX 获取锁，返回 false 表示锁已被其他请求持有
func (rds *RedisClient) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := rds.Client.SetNX(ctx, lockPrefix+key, time.Now().UnixNano(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("获取锁 %s 失败: %w", key, err)
	}
	return ok, nil
}

// Unlock 释放锁
func (rds *RedisClient) Unlock(ctx context.Context, key string) error {
	if err := rds.Client.Del(ctx, lockPrefix+key).Err(); err != nil {
		return fmt.Errorf("释放锁 %s 失败: %w", key, err)
	}
	return nil
}

// UseClient 用同一个客户端替换主库与队列库，返回恢复原状态的函数，
// 单机部署与测试使用
func UseClient(client *RedisClient) (restore func()) {
	prevManager, prevRedis := Manager, Redis
	Manager = &RedisManager{
		instances: map[RedisInstance]*RedisClient{MainDB: client, QueueDB: client},
	}
	Redis = client
	return func() {
		Manager, Redis = prevManager, prevRedis
	}
}

// Package limiter 处理限流逻辑
package limiter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	limiterlib "github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"homerent/pkg/config"
	"homerent/pkg/logger"
	"homerent/pkg/redis"
)

// ErrStoreUnavailable Redis 未初始化，调用方应降级为进程内限流
var ErrStoreUnavailable = errors.New("limiter: redis store unavailable")

// Rate 定义限流速率，Count 为单个周期内允许的请求数
type Rate struct {
	Rate  float64
	Count int64
}

// ParseLimit 解析限流配置字符串
// 支持的格式: "5-S"、"10-M"、"1000-H"、"2000-D"
func ParseLimit(limit string) (*Rate, error) {
	rate, err := limiterlib.NewRateFromFormatted(strings.ReplaceAll(limit, "-", "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid limit format: %w", err)
	}

	parts := strings.Split(limit, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid limit format: %s", limit)
	}
	if _, err := strconv.ParseInt(parts[0], 10, 64); err != nil {
		return nil, fmt.Errorf("invalid rate value: %s", parts[0])
	}

	return &Rate{
		Rate:  float64(rate.Limit) / rate.Period.Seconds(),
		Count: rate.Limit,
	}, nil
}

// GetKeyIP 获取 Limitor 的 Key，IP
func GetKeyIP(c *gin.Context) string {
	return c.ClientIP()
}

// GetKeyRouteWithIP Limitor 的 Key，路由+IP，针对单个路由做限流
func GetKeyRouteWithIP(c *gin.Context) string {
	return routeToKeyString(c.FullPath()) + c.ClientIP()
}

// CheckRate 使用 Redis 计数检测请求是否超额，多实例部署时共享计数
func CheckRate(c *gin.Context, key string, limit string) (limiterlib.Context, error) {
	var context limiterlib.Context

	client := redis.GetRedis(redis.MainDB)
	if client == nil {
		return context, ErrStoreUnavailable
	}

	rate, err := limiterlib.NewRateFromFormatted(strings.ReplaceAll(limit, "-", "/"))
	if err != nil {
		logger.LogIf(err)
		return context, err
	}

	store, err := sredis.NewStoreWithOptions(client.Client, limiterlib.StoreOptions{
		// 为 limiter 设置前缀，保持 redis 里数据的整洁
		Prefix: config.GetString("app.name", "homerent") + ":limiter",
	})
	if err != nil {
		logger.LogIf(err)
		return context, err
	}

	limiterObj := limiterlib.New(store, rate)

	// 同一请求多次经过限流中间件时只计数一次
	if c.GetBool("limiter-once:" + key) {
		return limiterObj.Peek(c, key)
	}
	c.Set("limiter-once:"+key, true)
	return limiterObj.Get(c, key)
}

// routeToKeyString 辅助方法，将 URL 中的 / 格式为 -
func routeToKeyString(routeName string) string {
	routeName = strings.ReplaceAll(routeName, "/", "-")
	routeName = strings.ReplaceAll(routeName, ":", "_")
	return routeName
}

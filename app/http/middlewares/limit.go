package middlewares

import (
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"golang.org/x/time/rate"

	"homerent/pkg/app"
	"homerent/pkg/limiter"
	"homerent/pkg/logger"
	"homerent/pkg/response"
)

const (
	// DefaultBurst 默认突发请求数量
	DefaultBurst = 100
	// idleTTL 超过该时长未访问的限流器会被清理
	idleTTL = 24 * time.Hour
)

// entry 进程内限流器及其最近访问时间
type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

var (
	// 用于存储限流器的并发安全缓存
	limiters    sync.Map
	cleanupOnce sync.Once
)

// LimitIP 全局限流中间件，针对 IP 进行限流，计数保存在进程内
//
// 支持的限流格式:
// - 5 reqs/second:   "5-S"
// - 10 reqs/minute:  "10-M"
// - 1000 reqs/hour:  "1000-H"
// - 2000 reqs/day:   "2000-D"
func LimitIP(limit string) gin.HandlerFunc {
	if app.IsTesting() {
		limit = "1000000-H"
	}
	return localLimiter(limiter.GetKeyIP, limit, DefaultBurst)
}

// LimitPerRoute 针对单个路由的限流中间件，基于 IP + 路由路径
//
// 结账、验签这类接口需要跨实例共享计数，优先使用 Redis，
// Redis 不可用时降级为进程内限流
func LimitPerRoute(limit string) gin.HandlerFunc {
	if app.IsTesting() {
		limit = "1000000-H"
	}
	// 降级时桶容量等于单个周期的请求数
	local := localLimiter(limiter.GetKeyRouteWithIP, limit, 0)

	return func(c *gin.Context) {
		key := limiter.GetKeyRouteWithIP(c)
		rateCtx, err := limiter.CheckRate(c, key, limit)
		if err != nil {
			if !errors.Is(err, limiter.ErrStoreUnavailable) {
				logger.WarnString("限流器", "Redis", err.Error())
			}
			local(c)
			return
		}

		c.Header("X-RateLimit-Limit", cast.ToString(rateCtx.Limit))
		c.Header("X-RateLimit-Remaining", cast.ToString(rateCtx.Remaining))
		c.Header("X-RateLimit-Reset", cast.ToString(rateCtx.Reset))

		if rateCtx.Reached {
			response.Abort429(c)
			return
		}
		c.Next()
	}
}

// localLimiter 进程内令牌桶限流
func localLimiter(keyFunc func(*gin.Context) string, limit string, burst int) gin.HandlerFunc {
	cleanupOnce.Do(func() { go cleanupLimiters() })

	return func(c *gin.Context) {
		key := limit + ":" + keyFunc(c)

		e, err := getLimiter(key, limit, burst)
		if err != nil {
			logger.ErrorString("限流器", "创建失败", err.Error())
			// 降级处理：允许请求通过
			c.Next()
			return
		}

		if !e.lim.Allow() {
			response.Abort429(c)
			return
		}

		c.Header("X-RateLimit-Limit", cast.ToString(float64(e.lim.Limit())))
		c.Header("X-RateLimit-Remaining", cast.ToString(int(e.lim.Tokens())))
		c.Next()
	}
}

// getLimiter 获取或创建限流器
func getLimiter(key, limit string, burst int) (*entry, error) {
	now := time.Now()
	if v, ok := limiters.Load(key); ok {
		e := v.(*entry)
		e.mu.Lock()
		e.lastSeen = now
		e.mu.Unlock()
		return e, nil
	}

	r, err := limiter.ParseLimit(limit)
	if err != nil {
		return nil, err
	}

	if burst <= 0 {
		burst = int(r.Count)
	}
	actual, _ := limiters.LoadOrStore(key, &entry{
		lim:      rate.NewLimiter(rate.Limit(r.Rate), burst),
		lastSeen: now,
	})
	return actual.(*entry), nil
}

// cleanupLimiters 定期清理过期的限流器
func cleanupLimiters() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for now := range ticker.C {
		limiters.Range(func(key, value interface{}) bool {
			e := value.(*entry)
			e.mu.Lock()
			idle := now.Sub(e.lastSeen) > idleTTL
			e.mu.Unlock()
			if idle {
				limiters.Delete(key)
			}
			return true
		})
	}
}

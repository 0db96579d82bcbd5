// Package health 健康检查
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homerent/pkg/database"
	"homerent/pkg/queue"
	"homerent/pkg/redis"
)

// HealthController 健康检查控制器
type HealthController struct {
	queue *queue.QueueService
}

// NewHealthController 创建控制器
func NewHealthController(q *queue.QueueService) *HealthController {
	return &HealthController{queue: q}
}

// Show 数据库、Redis、队列状态，任一依赖不可用时返回 503
func (hc *HealthController) Show(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	healthy := true
	db := database.Health(ctx)
	if db["status"] != "up" {
		healthy = false
	}

	redisStatus := gin.H{"status": "up"}
	if client := redis.GetRedis(redis.MainDB); client == nil {
		redisStatus = gin.H{"status": "down", "error": "redis not initialized"}
		healthy = false
	} else if err := client.Client.Ping(ctx).Err(); err != nil {
		redisStatus = gin.H{"status": "down", "error": err.Error()}
		healthy = false
	}

	body := gin.H{
		"database": db,
		"redis":    redisStatus,
	}
	if hc.queue != nil {
		pending, err := hc.queue.Len(ctx)
		queueStatus := gin.H{"status": "up", "pending": pending, "metrics": hc.queue.Metrics().Snapshot()}
		if err != nil {
			queueStatus["status"] = "down"
			queueStatus["error"] = err.Error()
			healthy = false
		}
		body["queue"] = queueStatus
	}

	code := http.StatusOK
	body["status"] = "up"
	if !healthy {
		code = http.StatusServiceUnavailable
		body["status"] = "down"
	}
	c.JSON(code, body)
}

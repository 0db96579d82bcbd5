// Package app 提供应用程序相关的辅助函数
package app

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"homerent/pkg/config"
)

// IsLocal 判断当前是否运行在本地环境
func IsLocal() bool {
	return config.Get("app.env") == "local"
}

// IsProduction 判断当前是否运行在生产环境
func IsProduction() bool {
	return config.Get("app.env") == "production"
}

// IsTesting 判断当前是否运行在测试环境
func IsTesting() bool {
	return config.Get("app.env") == "testing"
}

// TimenowInTimezone 获取配置时区的当前时间，时区无效时使用 UTC
func TimenowInTimezone() time.Time {
	loc, err := time.LoadLocation(config.GetString("app.timezone", "UTC"))
	if err != nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// Pagination 从 query 读取 page / page_size
func Pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

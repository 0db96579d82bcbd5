// Package response 提供统一的 HTTP 响应处理
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homerent/pkg/logger"
)

// 预定义响应状态
const (
	Success = "success" // 成功状态
	Error   = "error"   // 错误状态
)

/* 标准响应结构
{
    "status": "success",
    "data": {},     // 成功时返回的数据
    "error": "",    // 错误时返回的信息
    "message": "",  // 提示信息
}
*/

// Response 统一响应结构体
type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Page 分页数据
type Page struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// ------------------ 成功响应系列 ------------------

// Data 响应 200 和数据
func Data(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Status: Success,
		Data:   data,
	})
}

// Created 成功创建的响应
func Created(c *gin.Context, data interface{}, msg ...string) {
	c.JSON(http.StatusCreated, Response{
		Status:  Success,
		Message: getMsg("创建成功", msg...),
		Data:    data,
	})
}

// Accepted 请求已受理但结果未确定，例如验签失败后等待对账
func Accepted(c *gin.Context, data interface{}, msg ...string) {
	c.JSON(http.StatusAccepted, Response{
		Status:  "reconciling",
		Message: getMsg("已受理，等待处理", msg...),
		Data:    data,
	})
}

// Paginated 响应分页列表
func Paginated(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	Data(c, Page{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// ------------------ 错误响应系列 ------------------

// Abort400 响应 400 错误
func Abort400(c *gin.Context, msg ...string) {
	abort(c, http.StatusBadRequest, getMsg("请求参数错误", msg...))
}

// Abort401 响应 401 错误
func Abort401(c *gin.Context, msg ...string) {
	abort(c, http.StatusUnauthorized, getMsg("请先登录", msg...))
}

// Abort403 响应 403 错误
func Abort403(c *gin.Context, msg ...string) {
	abort(c, http.StatusForbidden, getMsg("权限不足", msg...))
}

// Abort404 响应 404 错误
func Abort404(c *gin.Context, msg ...string) {
	abort(c, http.StatusNotFound, getMsg("资源不存在", msg...))
}

// Abort409 响应 409 状态冲突
func Abort409(c *gin.Context, msg ...string) {
	abort(c, http.StatusConflict, getMsg("当前状态不允许该操作", msg...))
}

// Abort429 响应 429 错误
func Abort429(c *gin.Context, msg ...string) {
	abort(c, http.StatusTooManyRequests, getMsg("请求过于频繁，请稍后再试", msg...))
}

// Abort500 响应 500 错误
func Abort500(c *gin.Context, msg ...string) {
	abort(c, http.StatusInternalServerError, getMsg("服务器内部错误", msg...))
}

// BadRequest 响应 400 错误（带错误信息）
func BadRequest(c *gin.Context, err error, msg ...string) {
	logger.LogWarnIf(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Status:  Error,
		Message: getMsg("请求格式错误", msg...),
		Error:   err.Error(),
	})
}

// BadGateway 支付网关调用失败
func BadGateway(c *gin.Context, err error, msg ...string) {
	logger.LogWarnIf(err)
	c.AbortWithStatusJSON(http.StatusBadGateway, Response{
		Status:  Error,
		Message: getMsg("支付网关暂不可用，请稍后同步", msg...),
		Error:   err.Error(),
	})
}

// ServerError 响应 500 错误（带错误信息）
func ServerError(c *gin.Context, err error, msg ...string) {
	logger.LogIf(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
		Status:  Error,
		Message: getMsg("服务器内部错误", msg...),
		Error:   err.Error(),
	})
}

// ValidationError 响应 422 表单验证错误
func ValidationError(c *gin.Context, errors map[string][]string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Response{
		Status:  Error,
		Message: "表单验证失败",
		Data:    errors,
	})
}

func abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Response{
		Status:  Error,
		Message: message,
	})
}

// getMsg 获取消息内容
func getMsg(defaultMsg string, msg ...string) string {
	if len(msg) > 0 {
		return msg[0]
	}
	return defaultMsg
}

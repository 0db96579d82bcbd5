// Package notification 通知与催缴提醒接口
package notification

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"homerent/app/http/middlewares"
	model "homerent/app/models/notification"
	"homerent/pkg/notify"
	"homerent/pkg/queue"
	"homerent/pkg/response"
)

// NotificationsController 通知控制器
type NotificationsController struct {
	service *notify.Service
	queue   *queue.QueueService
}

// NewNotificationsController 创建控制器，queue 为空时催缴提醒同步发送
func NewNotificationsController(service *notify.Service, q *queue.QueueService) *NotificationsController {
	return &NotificationsController{
		service: service,
		queue:   q,
	}
}

// Index 当前用户的通知，游客返回空列表
func (nc *NotificationsController) Index(c *gin.Context) {
	userID := middlewares.CurrentUserID(c)
	if userID == "" {
		response.Data(c, []model.Notification{})
		return
	}

	items, err := nc.service.List(c.Request.Context(), userID,
		cast.ToBool(c.Query("unread")), cast.ToInt(c.Query("limit")))
	if err != nil {
		response.ServerError(c, err)
		return
	}
	response.Data(c, items)
}

// MarkRead 标记单条已读
func (nc *NotificationsController) MarkRead(c *gin.Context) {
	err := nc.service.MarkRead(c.Request.Context(), middlewares.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			response.Abort404(c)
			return
		}
		response.ServerError(c, err)
		return
	}
	response.Data(c, gin.H{"id": c.Param("id"), "read": true})
}

// MarkAllRead 全部标记已读
func (nc *NotificationsController) MarkAllRead(c *gin.Context) {
	n, err := nc.service.MarkAllRead(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		response.ServerError(c, err)
		return
	}
	response.Data(c, gin.H{"updated": n})
}

// Remind 房东给名下待支付、逾期账单的租客发送催缴提醒
func (nc *NotificationsController) Remind(c *gin.Context) {
	ownerID := c.Param("id")
	if ownerID != middlewares.CurrentUserID(c) {
		response.Abort403(c, "只能为自己名下的房产发送提醒")
		return
	}

	ctx := c.Request.Context()
	if nc.queue != nil {
		jobID, err := nc.queue.EnqueueReminders(ctx, ownerID)
		if err == nil {
			response.Accepted(c, gin.H{"job_id": jobID}, "提醒任务已加入队列")
			return
		}
		response.ServerError(c, err, "提醒任务入队失败")
		return
	}

	sent, err := nc.service.SendDueReminders(ctx, ownerID)
	if err != nil {
		response.ServerError(c, err)
		return
	}
	response.Data(c, gin.H{"sent": sent})
}

package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"homerent/app/models/notification"
)

// NotificationRepository 站内通知仓库
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建仓库实例
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{
		db: db,
	}
}

// Create 写入通知
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListByUser 获取用户通知，最新的在前
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	var items []notification.Notification
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	err := query.Order("created_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

// MarkRead 标记单条通知为已读，只允许操作自己的通知
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&notification.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"read": true, "read_at": &now})
	return result.RowsAffected, result.Error
}

// MarkAllRead 标记用户全部通知为已读
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&notification.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": &now})
	return result.RowsAffected, result.Error
}

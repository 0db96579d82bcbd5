// Package notify 站内通知与推送
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"homerent/app/models/notification"
	"homerent/app/models/payment"
	"homerent/app/repositories"
	"homerent/pkg/logger"
	"homerent/pkg/payment/types"
)

// ErrNotFound 通知不存在或不属于当前用户
var ErrNotFound = errors.New("notification not found")

// Subscriber 账单事件来源
type Subscriber interface {
	Subscribe(filter func(types.Event) bool, callback func(types.Event)) (unsubscribe func())
}

// Service 通知服务
type Service struct {
	notifications *repositories.NotificationRepository
	users         *repositories.UserRepository
	tenants       *repositories.TenantRepository
	payments      *repositories.PaymentRepository
	publisher     Publisher
}

// NewService 创建通知服务，publisher 为空时不推送
func NewService(db *gorm.DB, publisher Publisher) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Service{
		notifications: repositories.NewNotificationRepository(db),
		users:         repositories.NewUserRepository(db),
		tenants:       repositories.NewTenantRepository(db),
		payments:      repositories.NewPaymentRepository(db),
		publisher:     publisher,
	}
}

// Send 写入站内通知并推送，推送失败只记录日志
func (s *Service) Send(ctx context.Context, userID, title, body string, kind notification.Kind, referenceID string) (*notification.Notification, error) {
	n := &notification.Notification{
		UserID:      userID,
		Title:       title,
		Body:        body,
		Kind:        kind,
		ReferenceID: referenceID,
	}
	n.ID = uuid.NewString()
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	msg := PushMessage{
		NotificationID: n.ID,
		UserID:         userID,
		Title:          title,
		Body:           body,
		Kind:           string(kind),
		ReferenceID:    referenceID,
		CreatedAt:      n.CreatedAt,
	}
	if u, err := s.users.GetByID(ctx, userID); err == nil {
		msg.PushToken = u.PushToken
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		logger.WarnString("Notify", "Publish", err.Error())
	}
	return n, nil
}

// SendDueReminders 给房东名下所有待支付、逾期账单的租客发送提醒，返回发送条数
func (s *Service) SendDueReminders(ctx context.Context, ownerID string) (int, error) {
	open, err := s.payments.ListOpenByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("list open payments for owner %s: %w", ownerID, err)
	}
	if len(open) == 0 {
		return 0, nil
	}

	tenantIDs := make([]string, 0, len(open))
	seen := make(map[string]bool, len(open))
	for _, p := range open {
		if !seen[p.TenantID] {
			seen[p.TenantID] = true
			tenantIDs = append(tenantIDs, p.TenantID)
		}
	}
	tenants, err := s.tenants.ListByIDs(ctx, tenantIDs)
	if err != nil {
		return 0, fmt.Errorf("load tenants: %w", err)
	}
	userOf := make(map[string]string, len(tenants))
	for _, t := range tenants {
		userOf[t.ID] = t.UserID
	}

	var errs []error
	sent := 0
	for i := range open {
		p := &open[i]
		userID := userOf[p.TenantID]
		if userID == "" {
			continue
		}
		title, body := reminderText(p)
		if _, err := s.Send(ctx, userID, title, body, notification.KindReminder, p.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}

	logger.InfoString("Notify", "Reminders", fmt.Sprintf("owner=%s sent=%d", ownerID, sent))
	return sent, errors.Join(errs...)
}

// ListenPayments 账单变为已支付、失败或逾期时通知租客，返回取消订阅函数
func (s *Service) ListenPayments(src Subscriber) (unsubscribe func()) {
	filter := func(e types.Event) bool {
		return e.Type == types.EventPaymentUpdated &&
			(e.Status == payment.StatusPaid || e.Status == payment.StatusFailed || e.Status == payment.StatusOverdue)
	}
	return src.Subscribe(filter, func(e types.Event) {
		ctx := context.Background()
		t, err := s.tenants.GetByID(ctx, e.TenantID)
		if err != nil || t.UserID == "" {
			return
		}
		title, body, kind := statusText(e)
		_, err = s.Send(ctx, t.UserID, title, body, kind, e.PaymentID)
		logger.LogIf(err)
	})
}

// List 用户通知列表
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifications.ListByUser(ctx, userID, unreadOnly, limit)
}

// MarkRead 标记已读
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	affected, err := s.notifications.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead 全部标记已读
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

func reminderText(p *payment.Payment) (string, string) {
	amount := fmt.Sprintf("%d.%02d %s", p.TotalDue()/100, p.TotalDue()%100, p.Currency)
	if p.Status == payment.StatusOverdue {
		return "Payment overdue", fmt.Sprintf("Your %s for %s (%s) is overdue.", label(p.Type), p.Period, amount)
	}
	return "Payment due", fmt.Sprintf("Your %s for %s (%s) is due on %s.", label(p.Type), p.Period, amount, p.DueDate.Format("2006-01-02"))
}

func statusText(e types.Event) (string, string, notification.Kind) {
	switch e.Status {
	case payment.StatusPaid:
		return "Payment received", "Your payment has been confirmed.", notification.KindPaymentPaid
	case payment.StatusFailed:
		return "Payment failed", "Your payment could not be completed. Please retry.", notification.KindPaymentFailed
	default:
		return "Payment overdue", "Your payment is overdue.", notification.KindPaymentOverdue
	}
}

func label(t payment.Type) string {
	if t == payment.TypeSecurityDeposit {
		return "security deposit"
	}
	return "rent"
}

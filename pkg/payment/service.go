// Package payment 租金 / 押金账单的支付与对账流程
//
// 账单生命周期：pending → {paid, overdue, failed}，pending / overdue 可通过验签或对账
// 回到 paid；paid 为终态；failed 只能通过 RetryPayment 生成新账单。
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"homerent/app/models/payment"
	"homerent/pkg/logger"
	"homerent/pkg/payment/types"
	"homerent/pkg/payment/utils"
)

var (
	ErrNotFound          = errors.New("payment not found")
	ErrNotSyncable       = errors.New("payment has no open gateway order to sync")
	ErrInvalidState      = errors.New("payment is not in a valid state for this operation")
	ErrSignatureMismatch = errors.New("payment signature verification failed")
	ErrGateway           = errors.New("payment gateway error")
	ErrCheckoutBusy      = errors.New("checkout already in progress for this payment")
	ErrOrderMismatch     = errors.New("gateway order does not belong to this payment")
)

// openStatuses 可被验签、对账推进到终态的状态
var openStatuses = []payment.Status{payment.StatusPending, payment.StatusOverdue}

// ValidationError 字段校验失败
type ValidationError struct {
	Errors url.Values
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field, msgs := range e.Errors {
		fields = append(fields, field+": "+strings.Join(msgs, ", "))
	}
	return "validation failed: " + strings.Join(fields, "; ")
}

// Options 服务依赖与账务参数，Locker / Queue / Publisher 可为空
type Options struct {
	Repository types.Repository
	Gateway    types.Gateway
	Locker     types.Locker
	Queue      types.Enqueuer
	Publisher  types.Publisher

	Currency         string
	KeyID            string
	CheckoutLockTTL  time.Duration
	OverdueAfterDays int
	LateFee          int64

	Now func() time.Time
}

// Service 账单支付与对账服务
type Service struct {
	repo      types.Repository
	gateway   types.Gateway
	locker    types.Locker
	queue     types.Enqueuer
	publisher types.Publisher

	currency         string
	keyID            string
	lockTTL          time.Duration
	overdueAfterDays int
	lateFee          int64
	now              func() time.Time
}

// NewService 创建服务
func NewService(opts Options) *Service {
	s := &Service{
		repo:             opts.Repository,
		gateway:          opts.Gateway,
		locker:           opts.Locker,
		queue:            opts.Queue,
		publisher:        opts.Publisher,
		currency:         opts.Currency,
		keyID:            opts.KeyID,
		lockTTL:          opts.CheckoutLockTTL,
		overdueAfterDays: opts.OverdueAfterDays,
		lateFee:          opts.LateFee,
		now:              opts.Now,
	}
	if s.currency == "" {
		s.currency = "INR"
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 30 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateRequest 新建账单参数
type CreateRequest struct {
	TenantID    string
	PropertyID  string
	RoomID      string
	Type        payment.Type
	Period      string
	Amount      int64
	Currency    string
	DueDate     time.Time
	Description string
}

// CreatePayment 新建待支付账单
func (s *Service) CreatePayment(ctx context.Context, req CreateRequest) (*payment.Payment, error) {
	p := &payment.Payment{
		TenantID:    strings.TrimSpace(req.TenantID),
		PropertyID:  strings.TrimSpace(req.PropertyID),
		RoomID:      req.RoomID,
		Type:        req.Type,
		Period:      req.Period,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      payment.StatusPending,
		DueDate:     req.DueDate,
		Description: req.Description,
	}
	if errs := p.Validate(); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	p.ID = utils.NewPaymentID()
	if p.Currency == "" {
		p.Currency = s.currency
	}
	if p.DueDate.IsZero() {
		p.DueDate = s.now()
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	logger.InfoString("Payment", "Create", fmt.Sprintf("%s tenant=%s %s %s", p.ID, p.TenantID, p.Type, p.Period))
	return p, nil
}

// Get 获取账单
func (s *Service) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get payment %s: %w", id, err)
	}
	return p, nil
}

// ListByTenant 分页获取租客账单
func (s *Service) ListByTenant(ctx context.Context, tenantID string, page, pageSize int) ([]payment.Payment, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.ListByTenant(ctx, tenantID, page, pageSize)
}

// Summary 租客账单汇总
type Summary struct {
	TenantID    string                `json:"tenant_id"`
	ByStatus    []payment.StatusTotal `json:"by_status"`
	Outstanding int64                 `json:"outstanding"`
	Paid        int64                 `json:"paid"`
}

// Summary 按状态汇总租客账单，待支付与逾期计入欠款
func (s *Service) Summary(ctx context.Context, tenantID string) (*Summary, error) {
	totals, err := s.repo.SummaryByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("summary for tenant %s: %w", tenantID, err)
	}
	sum := &Summary{TenantID: tenantID, ByStatus: totals}
	for _, t := range totals {
		switch t.Status {
		case payment.StatusPending, payment.StatusOverdue:
			sum.Outstanding += t.Amount
		case payment.StatusPaid:
			sum.Paid += t.Amount
		}
	}
	return sum, nil
}

// RetryPayment 失败账单重新生成一条待支付账单
func (s *Service) RetryPayment(ctx context.Context, id string) (*payment.Payment, error) {
	old, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !old.IsFailed() {
		return nil, fmt.Errorf("%w: retry requires failed, got %s", ErrInvalidState, old.Status)
	}

	return s.CreatePayment(ctx, CreateRequest{
		TenantID:    old.TenantID,
		PropertyID:  old.PropertyID,
		RoomID:      old.RoomID,
		Type:        old.Type,
		Period:      old.Period,
		Amount:      old.Amount,
		Currency:    old.Currency,
		DueDate:     old.DueDate,
		Description: old.Description,
	})
}

// save 条件写回账单：库中状态须仍属于 expected，否则说明已被并发修改，
// 此时丢弃 p 上的改动并重新加载，返回 false。命中且状态变化时发布事件
func (s *Service) save(ctx context.Context, p *payment.Payment, previous payment.Status, expected []payment.Status, fields map[string]interface{}) (bool, error) {
	ok, err := s.repo.UpdateFields(ctx, p.ID, expected, fields)
	if err != nil {
		return false, fmt.Errorf("update payment %s: %w", p.ID, err)
	}
	if !ok {
		fresh, err := s.Get(ctx, p.ID)
		if err != nil {
			return false, err
		}
		logger.WarnString("Payment", "Save", fmt.Sprintf("%s changed concurrently, now %s", p.ID, fresh.Status))
		*p = *fresh
		return false, nil
	}

	if s.publisher != nil && previous != p.Status {
		s.publisher.Publish(types.Event{
			Type:       types.EventPaymentUpdated,
			PaymentID:  p.ID,
			TenantID:   p.TenantID,
			PropertyID: p.PropertyID,
			Status:     p.Status,
			Previous:   previous,
			At:         s.now(),
		})
	}
	return true, nil
}

// checkOrder 网关订单须属于该账单：receipt 与账单 ID 一致，网关不回传 receipt 时
// 订单号须是该账单的商户订单号；网关回传金额时须与应付总额一致
func checkOrder(p *payment.Payment, order *types.Order) error {
	switch {
	case order.Receipt != "" && order.Receipt != p.ID:
		return fmt.Errorf("%w: order %s has receipt %s, payment %s", ErrOrderMismatch, order.ID, order.Receipt, p.ID)
	case order.Receipt == "" && order.ID != p.GatewayOrderID && order.ID != utils.OutTradeNo(p.ID):
		return fmt.Errorf("%w: order %s is not issued for payment %s", ErrOrderMismatch, order.ID, p.ID)
	case order.Amount != 0 && order.Amount != p.TotalDue():
		return fmt.Errorf("%w: order %s amount %d, payment %s due %d", ErrOrderMismatch, order.ID, order.Amount, p.ID, p.TotalDue())
	}
	return nil
}

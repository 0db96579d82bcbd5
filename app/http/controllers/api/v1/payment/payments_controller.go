// Package payment 账单相关接口
package payment

import (
	"errors"

	"github.com/gin-gonic/gin"

	"homerent/app/http/middlewares"
	pm "homerent/app/models/payment"
	"homerent/app/policies"
	"homerent/app/requests"
	"homerent/pkg/app"
	"homerent/pkg/events"
	"homerent/pkg/logger"
	svc "homerent/pkg/payment"
	"homerent/pkg/response"
)

// PaymentsController 账单控制器
type PaymentsController struct {
	service *svc.Service
	policy  *policies.PaymentPolicy
	hub     *events.Hub
}

// NewPaymentsController 创建控制器，hub 为空时实时推送不可用
func NewPaymentsController(service *svc.Service, policy *policies.PaymentPolicy, hub *events.Hub) *PaymentsController {
	return &PaymentsController{
		service: service,
		policy:  policy,
		hub:     hub,
	}
}

// Store 房东为名下租客新建账单
func (pc *PaymentsController) Store(c *gin.Context) {
	req, err := requests.ValidateCreatePayment(c)
	if err != nil {
		abortRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	userID, role := middlewares.CurrentUserID(c), middlewares.CurrentRole(c)
	ok, err := pc.policy.CanManageProperty(ctx, userID, role, req.PropertyID)
	if err == nil && ok {
		ok, err = pc.policy.CanViewTenant(ctx, userID, role, req.TenantID)
	}
	if err != nil {
		response.ServerError(c, err)
		return
	}
	if !ok {
		response.Abort403(c, "只能为名下房产的租客创建账单")
		return
	}

	p, err := pc.service.CreatePayment(ctx, svc.CreateRequest{
		TenantID:    req.TenantID,
		PropertyID:  req.PropertyID,
		RoomID:      req.RoomID,
		Type:        pm.Type(req.Type),
		Period:      req.Period,
		Amount:      req.Amount,
		Currency:    req.Currency,
		DueDate:     req.DueDateTime(),
		Description: req.Description,
	})
	if err != nil {
		abortService(c, err)
		return
	}
	response.Created(c, p)
}

// Show 账单详情
func (pc *PaymentsController) Show(c *gin.Context) {
	p, ok := pc.load(c)
	if !ok {
		return
	}
	response.Data(c, p)
}

// Checkout 发起或复用网关订单
func (pc *PaymentsController) Checkout(c *gin.Context) {
	p, ok := pc.load(c)
	if !ok {
		return
	}

	req := requests.BindCheckout(c)
	var opts []svc.CheckoutOption
	if req.PayerOpenID != "" {
		opts = append(opts, svc.WithPayer(req.PayerOpenID))
	}

	checkout, err := pc.service.InitiateCheckout(c.Request.Context(), p.ID, opts...)
	if err != nil {
		abortService(c, err)
		return
	}
	response.Data(c, checkout)
}

// Verify 收银台回调验签，验签失败返回 202 并进入对账
func (pc *PaymentsController) Verify(c *gin.Context) {
	p, ok := pc.load(c)
	if !ok {
		return
	}

	req, err := requests.ValidateVerifyPayment(c)
	if err != nil {
		abortRequest(c, err)
		return
	}

	result, err := pc.service.Verify(c.Request.Context(), svc.VerifyRequest{
		PaymentID:        p.ID,
		GatewayPaymentID: req.GatewayPaymentID,
		GatewayOrderID:   req.GatewayOrderID,
		Signature:        req.Signature,
	})
	if err != nil {
		if result != nil && result.Reconciling {
			response.Accepted(c, result, "支付结果待确认，系统将自动对账")
			return
		}
		abortService(c, err)
		return
	}
	response.Data(c, result)
}

// Sync 单笔对账
func (pc *PaymentsController) Sync(c *gin.Context) {
	p, ok := pc.load(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	outcome, err := pc.service.SyncStatus(ctx, p.ID)
	if err != nil {
		abortService(c, err)
		return
	}
	p, err = pc.service.Get(ctx, p.ID)
	if err != nil {
		abortService(c, err)
		return
	}
	response.Data(c, gin.H{"outcome": outcome, "payment": p})
}

// Retry 失败账单重新生成
func (pc *PaymentsController) Retry(c *gin.Context) {
	p, ok := pc.load(c)
	if !ok {
		return
	}

	retried, err := pc.service.RetryPayment(c.Request.Context(), p.ID)
	if err != nil {
		abortService(c, err)
		return
	}
	response.Created(c, retried)
}

// SyncAll 对当前房东名下的账单批量对账，全量对账只在 rentctl 与定时任务中执行
func (pc *PaymentsController) SyncAll(c *gin.Context) {
	report, err := pc.service.SyncAllForOwner(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		abortService(c, err)
		return
	}
	response.Data(c, report)
}

// Cleanup 清理当前房东名下的重复账单
func (pc *PaymentsController) Cleanup(c *gin.Context) {
	report, err := pc.service.CleanupDuplicatesForOwner(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		abortService(c, err)
		return
	}
	response.Data(c, report)
}

// TenantPayments 租客账单列表与汇总，游客或无权限时返回空列表
func (pc *PaymentsController) TenantPayments(c *gin.Context) {
	page, pageSize := app.Pagination(c)
	tenantID := c.Param("id")
	ctx := c.Request.Context()

	ok, err := pc.policy.CanViewTenant(ctx, middlewares.CurrentUserID(c), middlewares.CurrentRole(c), tenantID)
	if err != nil {
		response.ServerError(c, err)
		return
	}
	if !ok {
		response.Data(c, gin.H{
			"payments": response.Page{Items: []pm.Payment{}, Page: page, PageSize: pageSize},
			"summary":  nil,
		})
		return
	}

	items, total, err := pc.service.ListByTenant(ctx, tenantID, page, pageSize)
	if err != nil {
		abortService(c, err)
		return
	}
	summary, err := pc.service.Summary(ctx, tenantID)
	if err != nil {
		abortService(c, err)
		return
	}
	response.Data(c, gin.H{
		"payments": response.Page{Items: items, Total: total, Page: page, PageSize: pageSize},
		"summary":  summary,
	})
}

// load 读取路由中的账单并校验访问权限，无权限时按不存在处理
func (pc *PaymentsController) load(c *gin.Context) (*pm.Payment, bool) {
	ctx := c.Request.Context()
	p, err := pc.service.Get(ctx, c.Param("id"))
	if err != nil {
		abortService(c, err)
		return nil, false
	}

	ok, err := pc.policy.CanAccessPayment(ctx, middlewares.CurrentUserID(c), middlewares.CurrentRole(c), p)
	if err != nil {
		response.ServerError(c, err)
		return nil, false
	}
	if !ok {
		response.Abort404(c)
		return nil, false
	}
	return p, true
}

// abortRequest 请求参数错误
func abortRequest(c *gin.Context, err error) {
	var ve requests.ValidationError
	if errors.As(err, &ve) {
		response.ValidationError(c, ve.Errors)
		return
	}
	response.BadRequest(c, err)
}

// abortService 服务层错误到 HTTP 状态的映射
func abortService(c *gin.Context, err error) {
	var ve *svc.ValidationError
	switch {
	case errors.As(err, &ve):
		response.ValidationError(c, ve.Errors)
	case errors.Is(err, svc.ErrNotFound):
		response.Abort404(c)
	case errors.Is(err, svc.ErrCheckoutBusy):
		response.Abort409(c, "该账单正在结账，请稍后再试")
	case errors.Is(err, svc.ErrInvalidState), errors.Is(err, svc.ErrNotSyncable), errors.Is(err, svc.ErrOrderMismatch):
		response.Abort409(c, err.Error())
	case errors.Is(err, svc.ErrGateway):
		response.BadGateway(c, err)
	default:
		logger.LogIf(err)
		response.ServerError(c, err)
	}
}

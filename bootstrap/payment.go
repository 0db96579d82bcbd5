package bootstrap

import (
	"fmt"

	"homerent/app/repositories"
	appconfig "homerent/config"
	"homerent/pkg/config"
	"homerent/pkg/database"
	"homerent/pkg/events"
	"homerent/pkg/logger"
	"homerent/pkg/payment"
	"homerent/pkg/payment/factory"
	"homerent/pkg/payment/types"
	"homerent/pkg/queue"
	"homerent/pkg/redis"
)

// SetupPayment 按配置创建支付网关和账单服务，q / hub 为空时不投递对账任务、不发布事件
func SetupPayment(q *queue.QueueService, hub *events.Hub) (*payment.Service, error) {
	cfg := appconfig.LoadPaymentConfig()
	provider := types.Provider(cfg.Provider)

	gateway, err := factory.NewGateway(provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化支付网关 %s 失败: %w", provider, err)
	}

	opts := payment.Options{
		Repository:       repositories.NewPaymentRepository(database.DB),
		Gateway:          gateway,
		Currency:         cfg.Currency,
		KeyID:            factory.PublicKeyID(provider, cfg),
		CheckoutLockTTL:  cfg.CheckoutLockTTL,
		OverdueAfterDays: config.GetInt("billing.overdue_after_days", 3),
		LateFee:          config.GetInt64("billing.late_fee"),
	}
	if locker := redis.GetRedis(redis.MainDB); locker != nil {
		opts.Locker = locker
	} else {
		logger.WarnString("Payment", "Setup", "Redis 不可用，结账互斥锁关闭")
	}
	if q != nil {
		opts.Queue = q
	}
	if hub != nil {
		opts.Publisher = hub
	}

	logger.InfoString("Payment", "Setup", "支付网关: "+string(provider))
	return payment.NewService(opts), nil
}

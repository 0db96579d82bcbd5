package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homerent/app/models/payment"
	"homerent/pkg/logger"
)

// MarkOverdue 到期超过宽限天数仍未支付的账单置为逾期，滞纳金只加收一次
func (s *Service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, -s.overdueAfterDays)
	candidates, err := s.repo.ListPendingDueBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list overdue candidates: %w", err)
	}

	var errs []error
	marked := 0
	for i := range candidates {
		p := &candidates[i]
		p.Status = payment.StatusOverdue
		if s.lateFee > 0 && p.LateFee == 0 {
			p.LateFee = s.lateFee
		}
		// 列表之后可能已被验签或对账置为已支付，只从 pending 推进
		ok, err := s.save(ctx, p, payment.StatusPending, []payment.Status{payment.StatusPending}, map[string]interface{}{
			"status":   p.Status,
			"late_fee": p.LateFee,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			marked++
		}
	}

	if marked > 0 {
		logger.InfoString("Payment", "MarkOverdue", fmt.Sprintf("marked %d payments overdue", marked))
	}
	return marked, errors.Join(errs...)
}

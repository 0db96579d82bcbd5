package payment

import (
	"context"
	"fmt"
	"sort"

	"homerent/app/models/payment"
	"homerent/pkg/logger"
)

// CleanupReport 清理重复账单汇总
type CleanupReport struct {
	Groups            int           `json:"groups"`
	DuplicatesRemoved int           `json:"duplicates_removed"`
	Kept              []string      `json:"kept"`
	Errors            []RecordError `json:"errors"`
}

// CleanupDuplicates 同一租客、类型、账期只保留状态最优的一条非失败账单，其余软删除
func (s *Service) CleanupDuplicates(ctx context.Context) (*CleanupReport, error) {
	return s.cleanupDuplicates(ctx, "")
}

// CleanupDuplicatesForOwner 只清理房东名下房源的重复账单
func (s *Service) CleanupDuplicatesForOwner(ctx context.Context, ownerID string) (*CleanupReport, error) {
	if ownerID == "" {
		return nil, &ValidationError{Errors: map[string][]string{"owner_id": {"owner_id is required"}}}
	}
	return s.cleanupDuplicates(ctx, ownerID)
}

func (s *Service) cleanupDuplicates(ctx context.Context, ownerID string) (*CleanupReport, error) {
	groups, err := s.repo.FindDuplicateGroups(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("find duplicate payments: %w", err)
	}

	report := &CleanupReport{Kept: []string{}, Errors: []RecordError{}}
	for _, g := range groups {
		records, err := s.repo.ListGroup(ctx, ownerID, g)
		if err != nil {
			report.Errors = append(report.Errors, newGroupError(g.Key(), err))
			continue
		}
		if len(records) < 2 {
			continue
		}
		report.Groups++

		keep, remove := pickSurvivor(records)
		ids := make([]string, 0, len(remove))
		paidRemoved := 0
		for _, r := range remove {
			ids = append(ids, r.ID)
			if r.IsPaid() {
				paidRemoved++
			}
		}
		if paidRemoved > 0 {
			logger.WarnString("Payment", "Cleanup", fmt.Sprintf("%s %s %s has %d extra paid records, possible double charge", g.TenantID, g.Type, g.Period, paidRemoved))
		}

		removed, err := s.repo.Delete(ctx, ids...)
		if err != nil {
			report.Errors = append(report.Errors, newGroupError(g.Key(), err))
			continue
		}
		report.DuplicatesRemoved += int(removed)
		report.Kept = append(report.Kept, keep.ID)
	}

	logger.InfoString("Payment", "Cleanup", fmt.Sprintf("owner=%q groups=%d removed=%d", ownerID, report.Groups, report.DuplicatesRemoved))
	return report, nil
}

// pickSurvivor 按 paid > pending > overdue 选出保留记录，同级优先已下单、再优先最新
func pickSurvivor(records []payment.Payment) (payment.Payment, []payment.Payment) {
	sorted := make([]payment.Payment, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Status.Priority() != b.Status.Priority() {
			return a.Status.Priority() > b.Status.Priority()
		}
		if a.HasGatewayOrder() != b.HasGatewayOrder() {
			return a.HasGatewayOrder()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return sorted[0], sorted[1:]
}

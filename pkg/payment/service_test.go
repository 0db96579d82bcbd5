package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"homerent/app/models"
	"homerent/app/models/payment"
	"homerent/app/repositories"
	"homerent/pkg/payment/types"
	"homerent/pkg/payment/utils"
)

const testSecret = "secret_test"

type fakeGateway struct {
	mu        sync.Mutex
	orders    map[string]*types.Order
	fetchErr  map[string]error
	createErr error
	created   int
	fetched   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		orders:   map[string]*types.Order{},
		fetchErr: map[string]error{},
	}
}

func (g *fakeGateway) Provider() types.Provider { return types.ProviderHosted }

func (g *fakeGateway) CreateOrder(ctx context.Context, req types.OrderRequest) (*types.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created++
	o := &types.Order{
		ID:       fmt.Sprintf("order_%d", g.created),
		Receipt:  req.Receipt,
		Amount:   req.Amount,
		Currency: req.Currency,
		Status:   types.OrderCreated,
	}
	g.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (g *fakeGateway) FetchOrder(ctx context.Context, orderID string) (*types.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetched++
	if err := g.fetchErr[orderID]; err != nil {
		return nil, err
	}
	o, ok := g.orders[orderID]
	if !ok {
		return nil, types.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) error {
	if !utils.VerifyOrderPayment(testSecret, orderID, paymentID, signature) {
		return types.ErrSignatureInvalid
	}
	return nil
}

func (g *fakeGateway) setOrder(o *types.Order) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders[o.ID] = o
}

func (g *fakeGateway) settle(orderID, paymentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders[orderID].Status = types.OrderPaid
	g.orders[orderID].PaymentID = paymentID
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []string
}

func (q *fakeQueue) EnqueueSync(ctx context.Context, paymentID, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, paymentID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.Event
}

func (r *recordingPublisher) Publish(e types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type fixture struct {
	svc     *Service
	repo    *repositories.PaymentRepository
	gateway *fakeGateway
	queue   *fakeQueue
	events  *recordingPublisher
	db      *gorm.DB
	now     time.Time
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&payment.Payment{}))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		repo:    repositories.NewPaymentRepository(db),
		gateway: newFakeGateway(),
		queue:   &fakeQueue{},
		events:  &recordingPublisher{},
		db:      db,
		now:     time.Date(2024, 11, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Options{
		Repository:       f.repo,
		Gateway:          f.gateway,
		Queue:            f.queue,
		Publisher:        f.events,
		Currency:         "INR",
		KeyID:            "key_test",
		OverdueAfterDays: 3,
		LateFee:          500,
		Now:              func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) create(t *testing.T, tenantID, period string) *payment.Payment {
	t.Helper()
	p, err := f.svc.CreatePayment(context.Background(), CreateRequest{
		TenantID:   tenantID,
		PropertyID: "property-1",
		Type:       payment.TypeRent,
		Period:     period,
		Amount:     8000,
		DueDate:    time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) insert(t *testing.T, p payment.Payment) *payment.Payment {
	t.Helper()
	if p.ID == "" {
		p.ID = utils.NewPaymentID()
	}
	if p.PropertyID == "" {
		p.PropertyID = "property-1"
	}
	if p.Type == "" {
		p.Type = payment.TypeRent
	}
	if p.Amount == 0 {
		p.Amount = 8000
	}
	require.NoError(t, f.db.Create(&p).Error)
	return &p
}

func timestamps(at time.Time) models.CommonTimestampsField {
	return models.CommonTimestampsField{CreatedAt: at, UpdatedAt: at}
}

func (f *fixture) reload(t *testing.T, id string) *payment.Payment {
	t.Helper()
	p, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func TestCreatePaymentStartsPending(t *testing.T) {
	f := newFixture(t)

	p := f.create(t, "tenant-1", "2024-11")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, payment.StatusPending, p.Status)
	assert.Equal(t, "INR", p.Currency)
	assert.Empty(t, p.GatewayOrderID)
}

func TestCreatePaymentValidation(t *testing.T) {
	f := newFixture(t)
	valid := CreateRequest{TenantID: "t", PropertyID: "p", Type: payment.TypeRent, Period: "2024-11", Amount: 100}

	cases := map[string]struct {
		mutate func(r *CreateRequest)
		field  string
	}{
		"zero amount":      {func(r *CreateRequest) { r.Amount = 0 }, "amount"},
		"negative amount":  {func(r *CreateRequest) { r.Amount = -5 }, "amount"},
		"missing tenant":   {func(r *CreateRequest) { r.TenantID = "  " }, "tenant_id"},
		"missing property": {func(r *CreateRequest) { r.PropertyID = "" }, "property_id"},
		"unknown type":     {func(r *CreateRequest) { r.Type = "parking" }, "type"},
		"bad period":       {func(r *CreateRequest) { r.Period = "2024-13" }, "period"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)

			_, err := f.svc.CreatePayment(context.Background(), req)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.NotEmpty(t, verr.Errors.Get(tc.field))
		})
	}
}

func TestVerifySuccessMarksPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	checkout, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)

	res, err := f.svc.Verify(ctx, VerifyRequest{
		PaymentID:        p.ID,
		GatewayOrderID:   checkout.GatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        utils.SignOrderPayment(testSecret, checkout.GatewayOrderID, "pay_1"),
	})
	require.NoError(t, err)
	assert.True(t, res.Verified)

	stored := f.reload(t, p.ID)
	assert.Equal(t, payment.StatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.Equal(t, "pay_1", stored.GatewayPaymentID)
	assert.False(t, stored.NeedsReconcile)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, payment.StatusPaid, f.events.events[0].Status)
	assert.Equal(t, payment.StatusPending, f.events.events[0].Previous)
}

func TestVerifyIsIdempotentForSamePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	checkout, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)
	req := VerifyRequest{
		PaymentID:        p.ID,
		GatewayOrderID:   checkout.GatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        utils.SignOrderPayment(testSecret, checkout.GatewayOrderID, "pay_1"),
	}

	_, err = f.svc.Verify(ctx, req)
	require.NoError(t, err)
	res, err := f.svc.Verify(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.Verified)

	req.GatewayPaymentID = "pay_2"
	_, err = f.svc.Verify(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestVerifyTamperedSignatureStaysPendingAndSyncAllResolves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	checkout, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)

	res, err := f.svc.Verify(ctx, VerifyRequest{
		PaymentID:        p.ID,
		GatewayOrderID:   checkout.GatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        "tampered",
	})
	require.ErrorIs(t, err, ErrSignatureMismatch)
	assert.True(t, res.Reconciling)

	stored := f.reload(t, p.ID)
	assert.Equal(t, payment.StatusPending, stored.Status)
	assert.True(t, stored.NeedsReconcile)
	assert.NotEmpty(t, stored.ReconcileReason)
	assert.Equal(t, []string{p.ID}, f.queue.jobs)

	// 网关实际已扣款
	f.gateway.settle(checkout.GatewayOrderID, "pay_1")

	report, err := f.svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 1, report.Updated)
	assert.Empty(t, report.Errors)

	stored = f.reload(t, p.ID)
	assert.Equal(t, payment.StatusPaid, stored.Status)
	assert.Equal(t, "pay_1", stored.GatewayPaymentID)
	assert.False(t, stored.NeedsReconcile)
}

func TestVerifyOrderMismatchIsFlagged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	checkout, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, VerifyRequest{
		PaymentID:        p.ID,
		GatewayOrderID:   "order_other",
		GatewayPaymentID: "pay_1",
		Signature:        utils.SignOrderPayment(testSecret, "order_other", "pay_1"),
	})
	require.ErrorIs(t, err, ErrSignatureMismatch)

	stored := f.reload(t, p.ID)
	assert.Equal(t, checkout.GatewayOrderID, stored.GatewayOrderID)
	assert.Equal(t, payment.StatusPending, stored.Status)
	assert.True(t, stored.NeedsReconcile)
}

func TestSyncStatusIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	checkout, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)
	f.gateway.settle(checkout.GatewayOrderID, "pay_9")

	first, err := f.svc.SyncStatus(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncUpdated, first)
	fetched := f.gateway.fetched

	second, err := f.svc.SyncStatus(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncUnchanged, second)
	assert.Equal(t, fetched, f.gateway.fetched)
	assert.Equal(t, payment.StatusPaid, f.reload(t, p.ID).Status)
}

func TestSyncStatusUnchangedWhileOrderOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	_, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)

	first, err := f.svc.SyncStatus(ctx, p.ID)
	require.NoError(t, err)
	second, err := f.svc.SyncStatus(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, SyncUnchanged, first)
	assert.Equal(t, SyncUnchanged, second)
	stored := f.reload(t, p.ID)
	assert.Equal(t, payment.StatusPending, stored.Status)
	assert.NotNil(t, stored.LastSyncedAt)
}

func TestSyncStatusExpiredOrderFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-10", Status: payment.StatusOverdue, GatewayOrderID: "order_old"})
	f.gateway.setOrder(&types.Order{ID: "order_old", Status: types.OrderExpired})

	outcome, err := f.svc.SyncStatus(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncUpdated, outcome)
	assert.Equal(t, payment.StatusFailed, f.reload(t, p.ID).Status)
}

func TestSyncStatusWithoutGatewayOrder(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, "tenant-1", "2024-11")

	_, err := f.svc.SyncStatus(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrNotSyncable)

	_, err = f.svc.SyncStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncAllCollectsErrorsWithoutAborting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		orderID := fmt.Sprintf("order_%d", i)
		p := f.insert(t, payment.Payment{
			TenantID:       fmt.Sprintf("tenant-%d", i),
			Period:         "2024-11",
			Status:         payment.StatusPending,
			GatewayOrderID: orderID,
		})
		f.gateway.setOrder(&types.Order{ID: orderID, Status: types.OrderPaid, PaymentID: "pay_" + orderID})
		ids = append(ids, p.ID)
	}
	f.gateway.fetchErr["order_2"] = errors.New("connection reset")

	report, err := f.svc.SyncAll(ctx)
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, ids[2], report.Errors[0].PaymentID)
	assert.ErrorIs(t, report.Errors[0].Err, ErrGateway)
	assert.True(t, IsRetryable(report.Errors[0].Err))
	assert.Equal(t, 4, report.Synced)
	assert.Equal(t, 4, report.Updated)
	assert.Equal(t, 5, f.gateway.fetched)
	assert.Equal(t, payment.StatusPending, f.reload(t, ids[2]).Status)
}

func TestCleanupDuplicatesKeepsOnePendingRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusPending, CommonTimestampsField: timestamps(f.now.Add(-48 * time.Hour))})
	fresh := f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusPending, CommonTimestampsField: timestamps(f.now)})

	report, err := f.svc.CleanupDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Groups)
	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, []string{fresh.ID}, report.Kept)

	remaining, total, err := f.repo.ListByTenant(ctx, "tenant-1", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, fresh.ID, remaining[0].ID)

	_, err = f.repo.GetByID(ctx, stale.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCleanupDuplicatesPrefersPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusOverdue, CommonTimestampsField: timestamps(f.now)})
	paid := f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusPaid, CommonTimestampsField: timestamps(f.now.Add(-time.Hour))})
	f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusPending, CommonTimestampsField: timestamps(f.now)})
	f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusFailed})
	other := f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-12", Status: payment.StatusPending})

	report, err := f.svc.CleanupDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.DuplicatesRemoved)
	assert.Equal(t, []string{paid.ID}, report.Kept)

	_, total, err := f.repo.ListByTenant(ctx, "tenant-1", 1, 10)
	require.NoError(t, err)
	// paid + failed (2024-11) + pending (2024-12)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, payment.StatusPending, f.reload(t, other.ID).Status)
}

func TestPickSurvivorTieBreak(t *testing.T) {
	now := time.Now()
	withOrder := payment.Payment{BaseModel: models.BaseModel{ID: "a"}, Status: payment.StatusPending, GatewayOrderID: "order_1", CommonTimestampsField: timestamps(now.Add(-time.Hour))}
	newer := payment.Payment{BaseModel: models.BaseModel{ID: "b"}, Status: payment.StatusPending, CommonTimestampsField: timestamps(now)}

	keep, remove := pickSurvivor([]payment.Payment{newer, withOrder})
	assert.Equal(t, "order_1", keep.GatewayOrderID)
	assert.Len(t, remove, 1)
}

func TestInitiateCheckoutReusesOpenOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")

	first, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)
	second, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, first.GatewayOrderID, second.GatewayOrderID)
	assert.False(t, first.Reused)
	assert.True(t, second.Reused)
	assert.Equal(t, 1, f.gateway.created)
	assert.Equal(t, int64(8000), second.Amount)
	assert.Equal(t, "key_test", second.KeyID)
}

func TestInitiateCheckoutRecreatesExpiredOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	first, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)
	f.gateway.setOrder(&types.Order{ID: first.GatewayOrderID, Status: types.OrderExpired})

	second, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.GatewayOrderID, second.GatewayOrderID)
	assert.Equal(t, 2, f.gateway.created)
	assert.Equal(t, p.ID, f.gateway.orders[second.GatewayOrderID].Receipt)
	assert.Equal(t, second.GatewayOrderID, f.reload(t, p.ID).GatewayOrderID)
}

func TestInitiateCheckoutSyncsWhenGatewayAlreadyPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	first, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)
	f.gateway.settle(first.GatewayOrderID, "pay_1")

	_, err = f.svc.InitiateCheckout(ctx, p.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	assert.Equal(t, 1, f.gateway.created)
	assert.Equal(t, payment.StatusPaid, f.reload(t, p.ID).Status)
}

func TestInitiateCheckoutGatewayFailureLeavesNoIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	f.gateway.createErr = errors.New("gateway unavailable")

	_, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.ErrorIs(t, err, ErrGateway)

	stored := f.reload(t, p.ID)
	assert.Equal(t, payment.StatusPending, stored.Status)
	assert.Empty(t, stored.GatewayOrderID)
	assert.Empty(t, stored.GatewayPaymentID)
}

type stubLocker struct {
	held map[string]bool
}

func (l *stubLocker) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *stubLocker) Unlock(ctx context.Context, key string) error {
	delete(l.held, key)
	return nil
}

func TestInitiateCheckoutRespectsLock(t *testing.T) {
	f := newFixture(t)
	locker := &stubLocker{held: map[string]bool{}}
	f.svc.locker = locker
	p := f.create(t, "tenant-1", "2024-11")

	locker.held["checkout:"+p.ID] = true
	_, err := f.svc.InitiateCheckout(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrCheckoutBusy)

	delete(locker.held, "checkout:"+p.ID)
	_, err = f.svc.InitiateCheckout(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, locker.held)
}

func TestInitiateCheckoutRejectsPaid(t *testing.T) {
	f := newFixture(t)
	p := f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusPaid})

	_, err := f.svc.InitiateCheckout(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMarkOverdueAppliesLateFeeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-10", Status: payment.StatusPending, DueDate: f.now.AddDate(0, 0, -5)})
	grace := f.insert(t, payment.Payment{TenantID: "tenant-2", Period: "2024-11", Status: payment.StatusPending, DueDate: f.now.AddDate(0, 0, -1)})

	marked, err := f.svc.MarkOverdue(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	stored := f.reload(t, due.ID)
	assert.Equal(t, payment.StatusOverdue, stored.Status)
	assert.Equal(t, int64(500), stored.LateFee)
	assert.Equal(t, int64(8500), stored.TotalDue())
	assert.Equal(t, payment.StatusPending, f.reload(t, grace.ID).Status)

	marked, err = f.svc.MarkOverdue(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 0, marked)
	assert.Equal(t, int64(500), f.reload(t, due.ID).LateFee)
}

func TestRetryPaymentOnlyFromFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	failed := f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusFailed, GatewayOrderID: "order_dead"})
	pending := f.create(t, "tenant-2", "2024-11")

	fresh, err := f.svc.RetryPayment(ctx, failed.ID)
	require.NoError(t, err)
	assert.NotEqual(t, failed.ID, fresh.ID)
	assert.Equal(t, payment.StatusPending, fresh.Status)
	assert.Empty(t, fresh.GatewayOrderID)
	assert.Equal(t, "2024-11", fresh.Period)

	_, err = f.svc.RetryPayment(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-09", Status: payment.StatusPaid})
	f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-10", Status: payment.StatusOverdue, LateFee: 500})
	f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusPending})

	sum, err := f.svc.Summary(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(8000), sum.Paid)
	assert.Equal(t, int64(16500), sum.Outstanding)
	assert.Len(t, sum.ByStatus, 3)
}

type unsignedGateway struct {
	*fakeGateway
}

func (g unsignedGateway) VerifySignature(orderID, paymentID, signature string) error {
	return types.ErrSignatureUnsupported
}

func TestVerifyFallsBackToSyncWhenSignatureUnsupported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.gateway = unsignedGateway{f.gateway}
	p := f.create(t, "tenant-1", "2024-11")
	checkout, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)

	res, err := f.svc.Verify(ctx, VerifyRequest{PaymentID: p.ID, GatewayOrderID: checkout.GatewayOrderID, GatewayPaymentID: "pay_1"})
	require.ErrorIs(t, err, ErrSignatureMismatch)
	assert.True(t, res.Reconciling)
	assert.Equal(t, payment.StatusPending, f.reload(t, p.ID).Status)

	f.gateway.settle(checkout.GatewayOrderID, "pay_1")
	res, err = f.svc.Verify(ctx, VerifyRequest{PaymentID: p.ID, GatewayOrderID: checkout.GatewayOrderID, GatewayPaymentID: "pay_1"})
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, payment.StatusPaid, f.reload(t, p.ID).Status)
}

type hookedRepository struct {
	*repositories.PaymentRepository
	afterListPending func()
	listGroupErr     error
}

func (r *hookedRepository) ListPendingDueBefore(ctx context.Context, before time.Time) ([]payment.Payment, error) {
	rows, err := r.PaymentRepository.ListPendingDueBefore(ctx, before)
	if err == nil && r.afterListPending != nil {
		r.afterListPending()
	}
	return rows, err
}

func (r *hookedRepository) ListGroup(ctx context.Context, ownerID string, g payment.DuplicateGroup) ([]payment.Payment, error) {
	if r.listGroupErr != nil {
		return nil, r.listGroupErr
	}
	return r.PaymentRepository.ListGroup(ctx, ownerID, g)
}

type hookedGateway struct {
	*fakeGateway
	beforeFetch func()
}

func (g *hookedGateway) FetchOrder(ctx context.Context, orderID string) (*types.Order, error) {
	if hook := g.beforeFetch; hook != nil {
		g.beforeFetch = nil
		hook()
	}
	return g.fakeGateway.FetchOrder(ctx, orderID)
}

func TestVerifyRejectsOrderOfAnotherPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cheap, err := f.svc.CreatePayment(ctx, CreateRequest{
		TenantID:   "tenant-2",
		PropertyID: "property-1",
		Type:       payment.TypeRent,
		Period:     "2024-11",
		Amount:     100,
	})
	require.NoError(t, err)
	rent := f.create(t, "tenant-1", "2024-11")

	checkout, err := f.svc.InitiateCheckout(ctx, cheap.ID)
	require.NoError(t, err)
	f.gateway.settle(checkout.GatewayOrderID, "pay_1")

	res, err := f.svc.Verify(ctx, VerifyRequest{
		PaymentID:        rent.ID,
		GatewayOrderID:   checkout.GatewayOrderID,
		GatewayPaymentID: "pay_1",
		Signature:        utils.SignOrderPayment(testSecret, checkout.GatewayOrderID, "pay_1"),
	})
	require.ErrorIs(t, err, ErrSignatureMismatch)
	assert.ErrorIs(t, err, ErrOrderMismatch)
	assert.True(t, res.Reconciling)

	stored := f.reload(t, rent.ID)
	assert.Equal(t, payment.StatusPending, stored.Status)
	assert.Nil(t, stored.PaidAt)
	assert.Empty(t, stored.GatewayOrderID)
	assert.Empty(t, stored.GatewayPaymentID)
	assert.True(t, stored.NeedsReconcile)
	// 没有网关订单可查，不投递对账任务
	assert.Empty(t, f.queue.jobs)

	// 回调里的订单号在网关不存在
	_, err = f.svc.Verify(ctx, VerifyRequest{
		PaymentID:        rent.ID,
		GatewayOrderID:   "order_unknown",
		GatewayPaymentID: "pay_2",
		Signature:        utils.SignOrderPayment(testSecret, "order_unknown", "pay_2"),
	})
	require.ErrorIs(t, err, ErrSignatureMismatch)
	assert.Empty(t, f.reload(t, rent.ID).GatewayOrderID)
}

func TestVerifyAdoptsCallbackOrderIssuedForPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	// 下单成功但订单号未能写回账单
	f.gateway.setOrder(&types.Order{ID: "order_lost", Receipt: p.ID, Amount: 8000, Status: types.OrderPaid, PaymentID: "pay_1"})

	res, err := f.svc.Verify(ctx, VerifyRequest{
		PaymentID:        p.ID,
		GatewayOrderID:   "order_lost",
		GatewayPaymentID: "pay_1",
		Signature:        utils.SignOrderPayment(testSecret, "order_lost", "pay_1"),
	})
	require.NoError(t, err)
	assert.True(t, res.Verified)

	stored := f.reload(t, p.ID)
	assert.Equal(t, payment.StatusPaid, stored.Status)
	assert.Equal(t, "order_lost", stored.GatewayOrderID)
	assert.Equal(t, string(types.ProviderHosted), stored.Provider)
}

func TestSyncStatusRefusesMismatchedPaidOrder(t *testing.T) {
	cases := map[string]struct {
		receipt string
		amount  int64
	}{
		"foreign receipt": {receipt: "another-payment", amount: 8000},
		"short amount":    {amount: 100},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			p := f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusPending, GatewayOrderID: "order_planted"})
			receipt := tc.receipt
			if receipt == "" {
				receipt = p.ID
			}
			f.gateway.setOrder(&types.Order{ID: "order_planted", Receipt: receipt, Amount: tc.amount, Status: types.OrderPaid, PaymentID: "pay_x"})

			outcome, err := f.svc.SyncStatus(ctx, p.ID)
			require.ErrorIs(t, err, ErrOrderMismatch)
			assert.False(t, IsRetryable(err))
			assert.Equal(t, SyncUnchanged, outcome)

			stored := f.reload(t, p.ID)
			assert.Equal(t, payment.StatusPending, stored.Status)
			assert.Nil(t, stored.PaidAt)
			assert.Empty(t, stored.GatewayPaymentID)
			assert.True(t, stored.NeedsReconcile)
			assert.Contains(t, stored.ReconcileReason, "order_planted")
			assert.Empty(t, f.events.events)
		})
	}
}

func TestMarkOverdueDoesNotOverwriteConcurrentPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	checkout, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)

	// 列出待逾期账单之后、写回之前，租客完成了付款
	f.svc.repo = &hookedRepository{
		PaymentRepository: f.repo,
		afterListPending: func() {
			res, err := f.svc.Verify(ctx, VerifyRequest{
				PaymentID:        p.ID,
				GatewayOrderID:   checkout.GatewayOrderID,
				GatewayPaymentID: "pay_1",
				Signature:        utils.SignOrderPayment(testSecret, checkout.GatewayOrderID, "pay_1"),
			})
			require.NoError(t, err)
			require.True(t, res.Verified)
		},
	}

	marked, err := f.svc.MarkOverdue(ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, marked)

	stored := f.reload(t, p.ID)
	assert.Equal(t, payment.StatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.Equal(t, "pay_1", stored.GatewayPaymentID)
	assert.Zero(t, stored.LateFee)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, payment.StatusPaid, f.events.events[0].Status)
}

func TestSyncStatusDoesNotRevertConcurrentPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	checkout, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)
	f.gateway.setOrder(&types.Order{ID: checkout.GatewayOrderID, Receipt: p.ID, Amount: 8000, Status: types.OrderExpired})

	gw := &hookedGateway{fakeGateway: f.gateway}
	gw.beforeFetch = func() {
		_, err := f.svc.Verify(ctx, VerifyRequest{
			PaymentID:        p.ID,
			GatewayOrderID:   checkout.GatewayOrderID,
			GatewayPaymentID: "pay_1",
			Signature:        utils.SignOrderPayment(testSecret, checkout.GatewayOrderID, "pay_1"),
		})
		require.NoError(t, err)
	}
	f.svc.gateway = gw

	outcome, err := f.svc.SyncStatus(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncUnchanged, outcome)

	stored := f.reload(t, p.ID)
	assert.Equal(t, payment.StatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
}

func TestInitiateCheckoutRecreatesOrderAfterLateFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "tenant-1", "2024-11")
	first, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), first.Amount)

	marked, err := f.svc.MarkOverdue(ctx, f.now)
	require.NoError(t, err)
	require.Equal(t, 1, marked)

	second, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)

	assert.False(t, second.Reused)
	assert.NotEqual(t, first.GatewayOrderID, second.GatewayOrderID)
	assert.Equal(t, 2, f.gateway.created)
	assert.Equal(t, int64(8500), second.Amount)
	assert.Equal(t, int64(8500), f.gateway.orders[second.GatewayOrderID].Amount)
	assert.Equal(t, second.GatewayOrderID, f.reload(t, p.ID).GatewayOrderID)

	third, err := f.svc.InitiateCheckout(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, third.Reused)
	assert.Equal(t, second.GatewayOrderID, third.GatewayOrderID)
	assert.Equal(t, int64(8500), third.Amount)
}

func TestCleanupDuplicatesReportsGroupKeyWhenGroupUnreadable(t *testing.T) {
	f := newFixture(t)
	f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusPending})
	f.insert(t, payment.Payment{TenantID: "tenant-1", Period: "2024-11", Status: payment.StatusPending})
	f.svc.repo = &hookedRepository{PaymentRepository: f.repo, listGroupErr: errors.New("connection lost")}

	report, err := f.svc.CleanupDuplicates(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Empty(t, report.Errors[0].PaymentID)
	assert.Equal(t, "tenant-1|rent|2024-11", report.Errors[0].GroupKey)
	assert.Zero(t, report.DuplicatesRemoved)
}

func TestOwnerScopedMaintenanceRequiresOwner(t *testing.T) {
	f := newFixture(t)
	var verr *ValidationError

	_, err := f.svc.SyncAllForOwner(context.Background(), "")
	require.True(t, errors.As(err, &verr))
	_, err = f.svc.CleanupDuplicatesForOwner(context.Background(), "")
	require.True(t, errors.As(err, &verr))
}

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"homerent/app/models"
	"homerent/app/models/notification"
	"homerent/app/models/payment"
	"homerent/app/models/property"
	"homerent/app/models/tenant"
	"homerent/app/models/user"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&user.User{},
		&property.Property{},
		&property.Room{},
		&tenant.Tenant{},
		&payment.Payment{},
		&notification.Notification{},
	))
	return db
}

func id() models.BaseModel {
	return models.BaseModel{ID: uuid.NewString()}
}

func newPayment(tenantID, propertyID, period string, status payment.Status) *payment.Payment {
	return &payment.Payment{
		BaseModel:  id(),
		TenantID:   tenantID,
		PropertyID: propertyID,
		Type:       payment.TypeRent,
		Period:     period,
		Amount:     8000,
		Status:     status,
		DueDate:    time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestPaymentRepositoryQueries(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	prop := &property.Property{BaseModel: id(), OwnerID: "owner-1", Name: "Lake View"}
	require.NoError(t, NewPropertyRepository(db).Create(ctx, prop))

	withOrder := newPayment("tenant-1", prop.ID, "2024-11", payment.StatusPending)
	withOrder.GatewayOrderID = "order_1"
	duplicate := newPayment("tenant-1", prop.ID, "2024-11", payment.StatusOverdue)
	failed := newPayment("tenant-1", prop.ID, "2024-11", payment.StatusFailed)
	failed.GatewayOrderID = "order_dead"
	paid := newPayment("tenant-2", "other-property", "2024-11", payment.StatusPaid)
	paid.GatewayOrderID = "order_2"

	for _, p := range []*payment.Payment{withOrder, duplicate, failed, paid} {
		require.NoError(t, repo.Create(ctx, p))
	}

	syncable, err := repo.ListSyncable(ctx, "")
	require.NoError(t, err)
	require.Len(t, syncable, 1)
	assert.Equal(t, withOrder.ID, syncable[0].ID)

	groups, err := repo.FindDuplicateGroups(ctx, "")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "tenant-1", groups[0].TenantID)
	assert.EqualValues(t, 2, groups[0].Total)

	members, err := repo.ListGroup(ctx, "", groups[0])
	require.NoError(t, err)
	assert.Len(t, members, 2)

	open, err := repo.ListOpenByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, open, 2)

	due, err := repo.ListPendingDueBefore(ctx, time.Date(2024, 11, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, withOrder.ID, due[0].ID)

	removed, err := repo.Delete(ctx, duplicate.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	_, err = repo.GetByID(ctx, duplicate.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	list, total, err := repo.ListByTenant(ctx, "tenant-1", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	totals, err := repo.SummaryByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, totals, 2)
}

func TestPaymentRepositoryOwnerScope(t *testing.T) {
	db := newTestDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	mine := &property.Property{BaseModel: id(), OwnerID: "owner-1", Name: "Lake View"}
	theirs := &property.Property{BaseModel: id(), OwnerID: "owner-2", Name: "Hill Top"}
	require.NoError(t, NewPropertyRepository(db).Create(ctx, mine))
	require.NoError(t, NewPropertyRepository(db).Create(ctx, theirs))

	tenants := map[string]string{mine.ID: "tenant-a", theirs.ID: "tenant-b"}
	for propertyID, tenantID := range tenants {
		for i := 0; i < 2; i++ {
			p := newPayment(tenantID, propertyID, "2024-11", payment.StatusPending)
			p.GatewayOrderID = uuid.NewString()
			require.NoError(t, repo.Create(ctx, p))
		}
	}

	all, err := repo.ListSyncable(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	owned, err := repo.ListSyncable(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	for _, p := range owned {
		assert.Equal(t, mine.ID, p.PropertyID)
	}

	groups, err := repo.FindDuplicateGroups(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "tenant-a", groups[0].TenantID)

	// 他人的分组即使按 key 查询也取不到
	foreign := payment.DuplicateGroup{TenantID: "tenant-b", Type: payment.TypeRent, Period: "2024-11"}
	members, err := repo.ListGroup(ctx, "owner-1", foreign)
	require.NoError(t, err)
	assert.Empty(t, members)

	none, err := repo.ListSyncable(ctx, "owner-3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPaymentRepositoryUpdateFieldsIsConditional(t *testing.T) {
	repo := NewPaymentRepository(newTestDB(t))
	ctx := context.Background()

	p := newPayment("tenant-1", "prop-1", "2024-11", payment.StatusPaid)
	paidAt := time.Date(2024, 11, 6, 0, 0, 0, 0, time.UTC)
	p.PaidAt = &paidAt
	require.NoError(t, repo.Create(ctx, p))

	ok, err := repo.UpdateFields(ctx, p.ID, []payment.Status{payment.StatusPending}, map[string]interface{}{
		"status":   payment.StatusOverdue,
		"late_fee": 500,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, stored.Status)
	assert.Zero(t, stored.LateFee)
	require.NotNil(t, stored.PaidAt)

	ok, err = repo.UpdateFields(ctx, p.ID, []payment.Status{payment.StatusPaid}, map[string]interface{}{
		"needs_reconcile": true,
	})
	require.NoError(t, err)
	assert.True(t, ok)
	stored, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.NeedsReconcile)
}

func TestPaymentRepositoryDeleteNothing(t *testing.T) {
	repo := NewPaymentRepository(newTestDB(t))
	removed, err := repo.Delete(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()

	mine := &notification.Notification{BaseModel: id(), UserID: "user-1", Title: "Rent due", Kind: notification.KindReminder}
	second := &notification.Notification{BaseModel: id(), UserID: "user-1", Title: "Paid", Kind: notification.KindPaymentPaid}
	theirs := &notification.Notification{BaseModel: id(), UserID: "user-2", Title: "Rent due", Kind: notification.KindReminder}
	for _, n := range []*notification.Notification{mine, second, theirs} {
		require.NoError(t, repo.Create(ctx, n))
	}

	affected, err := repo.MarkRead(ctx, "user-2", mine.ID)
	require.NoError(t, err)
	assert.Zero(t, affected)

	affected, err = repo.MarkRead(ctx, "user-1", mine.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	unread, err := repo.ListByUser(ctx, "user-1", true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, second.ID, unread[0].ID)

	affected, err = repo.MarkAllRead(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	all, err := repo.ListByUser(ctx, "user-1", false, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTenantAndPropertyLookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tenants := NewTenantRepository(db)
	properties := NewPropertyRepository(db)
	users := NewUserRepository(db)

	owner := &user.User{BaseModel: id(), Email: "owner@example.com", Role: user.RoleOwner}
	require.NoError(t, users.Create(ctx, owner))
	prop := &property.Property{BaseModel: id(), OwnerID: owner.ID, Name: "Lake View"}
	require.NoError(t, properties.Create(ctx, prop))
	tn := &tenant.Tenant{BaseModel: id(), UserID: "user-9", PropertyID: prop.ID, Name: "Asha", Active: true}
	require.NoError(t, tenants.Create(ctx, tn))

	found, err := tenants.GetByUserID(ctx, "user-9")
	require.NoError(t, err)
	assert.Equal(t, tn.ID, found.ID)

	list, err := tenants.ListByIDs(ctx, []string{tn.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	ids, err := properties.IDsByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{prop.ID}, ids)

	owned, err := properties.OwnedBy(ctx, prop.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, owned)

	got, err := users.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOwner())
}

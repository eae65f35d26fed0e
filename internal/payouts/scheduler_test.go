package payouts

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/enums"
	"github.com/karimadly/soukly-backend/pkg/logger"
	"github.com/karimadly/soukly-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Vendor{},
		&models.VendorPayout{},
		&models.OutboxEvent{},
		&models.WebhookLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

// gormTx satisfies the dispatcher's transaction runner in tests.
type gormTx struct{ db *gorm.DB }

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func seedVendor(t *testing.T, db *gorm.DB, rate *decimal.Decimal, bank *types.BankDetails) models.Vendor {
	t.Helper()
	vendor := models.Vendor{
		ID:             uuid.New(),
		Name:           "vendor-" + uuid.NewString()[:8],
		Approved:       true,
		CommissionRate: rate,
	}
	if bank != nil {
		vendor.Settings = &types.VendorSettings{Bank: bank}
	}
	if err := db.Create(&vendor).Error; err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	return vendor
}

func decPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func testBank() *types.BankDetails {
	return &types.BankDetails{
		AccountNumber: "EG380019000500000000263180002",
		RoutingNumber: "NBEGEGCX",
		HolderName:    "Vendor Owner",
		BankName:      "NBE",
	}
}

func newTestScheduler(t *testing.T, db *gorm.DB, defaultRate string) Scheduler {
	t.Helper()
	sched, err := NewScheduler(SchedulerParams{
		Repo:        NewRepository(db),
		Vendors:     NewVendorLookup(db),
		Logger:      testLogger(),
		HoldPeriod:  168 * time.Hour,
		DefaultRate: decimal.RequireFromString(defaultRate),
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return sched
}

func TestScheduleSplitsOrderAcrossVendors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	vendorA := seedVendor(t, db, decPtr("20"), testBank())
	vendorB := seedVendor(t, db, nil, testBank())

	order := models.Order{ID: uuid.New()}
	items := []models.OrderItem{
		{VendorID: vendorA.ID, LineTotal: decimal.RequireFromString("600.00")},
		{VendorID: vendorA.ID, LineTotal: decimal.RequireFromString("400.00")},
		{VendorID: vendorB.ID, LineTotal: decimal.RequireFromString("200.00")},
	}

	sched := newTestScheduler(t, db, "10")
	err := db.Transaction(func(tx *gorm.DB) error {
		return sched.Schedule(ctx, tx, &order, items)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	repo := NewRepository(db)
	rows, err := repo.FindByOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("find by order: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 payouts, got %d", len(rows))
	}

	byVendor := map[uuid.UUID]models.VendorPayout{}
	for _, row := range rows {
		byVendor[row.VendorID] = row
	}

	// vendor A: 1000 gross at its own 20% rate
	a := byVendor[vendorA.ID]
	if !a.Gross.Equal(decimal.RequireFromString("1000.00")) {
		t.Fatalf("vendor A gross = %s", a.Gross)
	}
	if !a.Commission.Equal(decimal.RequireFromString("200.00")) {
		t.Fatalf("vendor A commission = %s", a.Commission)
	}
	if !a.Net.Equal(decimal.RequireFromString("800.00")) {
		t.Fatalf("vendor A net = %s", a.Net)
	}

	// vendor B: no per-vendor rate, falls back to the default 10%
	b := byVendor[vendorB.ID]
	if !b.Commission.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("vendor B commission = %s", b.Commission)
	}
	if !b.Net.Equal(decimal.RequireFromString("180.00")) {
		t.Fatalf("vendor B net = %s", b.Net)
	}

	for _, row := range rows {
		if row.Status != enums.PayoutStatusPending {
			t.Fatalf("expected pending payout, got %s", row.Status)
		}
		if !row.Net.Equal(row.Gross.Sub(row.Commission)) {
			t.Fatalf("net %s != gross %s - commission %s", row.Net, row.Gross, row.Commission)
		}
		if !row.ScheduledRelease.After(time.Now().Add(167 * time.Hour)) {
			t.Fatalf("release %s not held for the full window", row.ScheduledRelease)
		}
	}
}

func TestScheduleFreezesRateAndBankSnapshot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	vendor := seedVendor(t, db, decPtr("15"), testBank())
	order := models.Order{ID: uuid.New()}
	items := []models.OrderItem{{VendorID: vendor.ID, LineTotal: decimal.RequireFromString("100.00")}}

	sched := newTestScheduler(t, db, "10")
	err := db.Transaction(func(tx *gorm.DB) error {
		return sched.Schedule(ctx, tx, &order, items)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// vendor changes rate and bank after the order; the payout keeps the snapshot
	newRate := decimal.RequireFromString("50")
	vendor.CommissionRate = &newRate
	vendor.Settings = &types.VendorSettings{Bank: &types.BankDetails{
		AccountNumber: "changed",
		RoutingNumber: "changed",
		HolderName:    "changed",
	}}
	if err := db.Save(&vendor).Error; err != nil {
		t.Fatalf("update vendor: %v", err)
	}

	rows, err := NewRepository(db).FindByOrder(ctx, order.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("find by order: rows=%d err=%v", len(rows), err)
	}
	payout := rows[0]
	if !payout.CommissionRate.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("rate snapshot = %s", payout.CommissionRate)
	}
	if payout.BankAccount != testBank().AccountNumber {
		t.Fatalf("bank snapshot = %q", payout.BankAccount)
	}
	if payout.BankHolder != testBank().HolderName {
		t.Fatalf("holder snapshot = %q", payout.BankHolder)
	}
}

func TestScheduleToleratesUnknownVendor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	vendor := seedVendor(t, db, nil, testBank())
	order := models.Order{ID: uuid.New()}
	items := []models.OrderItem{
		{VendorID: vendor.ID, LineTotal: decimal.RequireFromString("50.00")},
		{VendorID: uuid.New(), LineTotal: decimal.RequireFromString("75.00")},
	}

	sched := newTestScheduler(t, db, "10")
	err := db.Transaction(func(tx *gorm.DB) error {
		return sched.Schedule(ctx, tx, &order, items)
	})
	if err != nil {
		t.Fatalf("schedule should tolerate unknown vendor: %v", err)
	}

	rows, err := NewRepository(db).FindByOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("find by order: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 payout for the known vendor, got %d", len(rows))
	}
	if rows[0].VendorID != vendor.ID {
		t.Fatalf("payout created for wrong vendor")
	}
}

func TestCancelPendingByOrderSparesCompleted(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	orderID := uuid.New()
	pending := models.VendorPayout{
		ID: uuid.New(), VendorID: uuid.New(), OrderID: orderID,
		Gross: decimal.RequireFromString("100.00"), Commission: decimal.RequireFromString("10.00"),
		Net: decimal.RequireFromString("90.00"), CommissionRate: decimal.RequireFromString("10"),
		ScheduledRelease: time.Now(), Status: enums.PayoutStatusPending,
	}
	completed := models.VendorPayout{
		ID: uuid.New(), VendorID: uuid.New(), OrderID: orderID,
		Gross: decimal.RequireFromString("200.00"), Commission: decimal.RequireFromString("20.00"),
		Net: decimal.RequireFromString("180.00"), CommissionRate: decimal.RequireFromString("10"),
		ScheduledRelease: time.Now(), Status: enums.PayoutStatusCompleted,
	}
	if err := db.Create(&pending).Error; err != nil {
		t.Fatalf("seed pending: %v", err)
	}
	if err := db.Create(&completed).Error; err != nil {
		t.Fatalf("seed completed: %v", err)
	}

	cancelled, err := repo.CancelPendingByOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("expected 1 cancelled payout, got %d", cancelled)
	}

	got, err := repo.FindByID(ctx, completed.ID)
	if err != nil {
		t.Fatalf("find completed: %v", err)
	}
	if got.Status != enums.PayoutStatusCompleted {
		t.Fatalf("completed payout must not be clawed back, got %s", got.Status)
	}
}

package gormstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Govind-619/checkout-core/config"
	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/services"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStore connects to TEST_DATABASE_URL (a postgres DSN) and resets the
// checkout tables. Tests skip when it is unset or unreachable.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping gorm store tests")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("skipping gorm store tests: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := sqlDB.Ping(); err != nil {
		t.Skipf("skipping gorm store tests: %v", err)
	}

	require.NoError(t, config.Migrate(db))
	require.NoError(t, db.Exec("TRUNCATE inventory_items, reservations, coupons, coupon_redemptions RESTART IDENTITY").Error)
	return New(db)
}

var base = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func TestHoldAndReleaseRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutInventory(ctx, models.InventoryItem{UnitID: "sku", Available: 5}))

	res, err := s.Hold(ctx, "user:1", "sku", 3, base, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Available)

	res, err = s.Hold(ctx, "user:1", "sku", 5, base, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Previous)
	assert.Equal(t, 0, res.Available)

	_, err = s.Hold(ctx, "user:2", "sku", 1, base, base.Add(time.Minute))
	assert.ErrorIs(t, err, services.ErrInsufficientStock)

	n, err := s.Release(ctx, "user:1", "sku")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = s.Release(ctx, "user:1", "sku")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	avail, err := s.GetAvailable(ctx, "sku")
	require.NoError(t, err)
	assert.Equal(t, 5, avail)

	_, err = s.Hold(ctx, "user:1", "missing", 1, base, base.Add(time.Minute))
	assert.ErrorIs(t, err, services.ErrUnitNotFound)
}

func TestReleaseExpiredSkipsRenewedRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutInventory(ctx, models.InventoryItem{UnitID: "sku", Available: 5}))

	_, err := s.Hold(ctx, "user:1", "sku", 2, base, base.Add(time.Minute))
	require.NoError(t, err)

	sweepAt := base.Add(2 * time.Minute)
	rows, err := s.ListExpired(ctx, sweepAt, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = s.Hold(ctx, "user:1", "sku", 2, sweepAt, sweepAt.Add(time.Minute))
	require.NoError(t, err)

	n, err := s.ReleaseExpired(ctx, "user:1", "sku", sweepAt)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.ReleaseExpired(ctx, "user:1", "sku", sweepAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	avail, err := s.GetAvailable(ctx, "sku")
	require.NoError(t, err)
	assert.Equal(t, 5, avail)
}

func TestConsumeDoesNotRestore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutInventory(ctx, models.InventoryItem{UnitID: "sku", Available: 5}))

	_, err := s.Hold(ctx, "user:1", "sku", 2, base, base.Add(time.Minute))
	require.NoError(t, err)
	n, err := s.Consume(ctx, "user:1", "sku")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	avail, err := s.GetAvailable(ctx, "sku")
	require.NoError(t, err)
	assert.Equal(t, 3, avail)
}

func TestConcurrentHoldsDoNotOversell(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutInventory(ctx, models.InventoryItem{UnitID: "sku", Available: 10}))
	m := services.NewReservationManager(s, s)

	var (
		wg      sync.WaitGroup
		granted atomic.Int64
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Reserve(ctx, fmt.Sprintf("guest:%d", i%15), "sku", 1)
			if err == nil {
				granted.Add(1)
			} else if !errors.Is(err, services.ErrInsufficientStock) && !errors.Is(err, services.ErrConcurrentUpdate) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	var held int64
	require.NoError(t, s.db.Model(&models.Reservation{}).Select("COALESCE(SUM(quantity), 0)").Scan(&held).Error)
	avail, err := s.GetAvailable(ctx, "sku")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, avail, 0)
	assert.Equal(t, int64(10), held+int64(avail))
}

func TestRedemptionsAndAbuseQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &models.Coupon{
		Code:           "save10",
		DiscountType:   models.DiscountPercentage,
		Value:          decimal.NewFromInt(10),
		MaxUsesPerUser: 1,
		ExpirationDate: base.Add(24 * time.Hour),
		IsActive:       true,
	}
	require.NoError(t, s.PutCoupon(ctx, c))
	require.NotZero(t, c.ID)

	got, err := s.GetCoupon(ctx, "SAVE10")
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(decimal.NewFromInt(10)))

	require.NoError(t, s.InsertRedemption(ctx, &models.CouponRedemption{CouponID: c.ID, HolderID: "h", OrderID: "o-1", DiscountAmount: 5, RedeemedAt: base}))
	err = s.InsertRedemption(ctx, &models.CouponRedemption{CouponID: c.ID, HolderID: "h", OrderID: "o-1", DiscountAmount: 5, RedeemedAt: base})
	assert.ErrorIs(t, err, services.ErrAlreadyExists)

	require.NoError(t, s.InsertRedemption(ctx, &models.CouponRedemption{CouponID: c.ID, HolderID: "h", OrderID: "o-2", DiscountAmount: 5, RedeemedAt: base}))

	n, err := s.CountRedemptions(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	findings, err := s.ListOverLimit(ctx)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "SAVE10", findings[0].Code)
	assert.Equal(t, 2, findings[0].Redemptions)
}

func TestInactiveCouponIsStoredInactive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	engine := services.NewCouponEngine(s, services.WithCouponClock(utils.NewFakeClock(base)))

	c := &models.Coupon{
		Code:           "OFF",
		DiscountType:   models.DiscountFixed,
		Value:          decimal.NewFromInt(500),
		ExpirationDate: base.Add(24 * time.Hour),
		IsActive:       false,
	}
	require.NoError(t, s.PutCoupon(ctx, c))

	got, err := s.GetCoupon(ctx, "off")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	v, err := engine.Validate(ctx, "OFF", "user:1", 5000)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, services.ReasonCouponNotFound, v.Reason)

	// Re-seeding active then inactive goes through the upsert path both ways.
	c.IsActive = true
	require.NoError(t, s.PutCoupon(ctx, c))
	v, err = engine.Validate(ctx, "OFF", "user:1", 5000)
	require.NoError(t, err)
	assert.True(t, v.Valid)

	c.IsActive = false
	require.NoError(t, s.PutCoupon(ctx, c))
	got, err = s.GetCoupon(ctx, "OFF")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

package services_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Govind-619/checkout-core/events"
	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/services"
	"github.com/Govind-619/checkout-core/storage/memory"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type reservationFixture struct {
	store   *memory.Store
	clock   *utils.FakeClock
	events  *events.Recorder
	manager *services.ReservationManager
}

func newReservationFixture(t *testing.T, stock map[string]int) *reservationFixture {
	t.Helper()
	f := &reservationFixture{
		store:  memory.NewStore(),
		clock:  utils.NewFakeClock(epoch),
		events: &events.Recorder{},
	}
	for unitID, n := range stock {
		require.NoError(t, f.store.PutInventory(context.Background(), models.InventoryItem{UnitID: unitID, Available: n}))
	}
	f.manager = services.NewReservationManager(f.store, f.store,
		services.WithClock(f.clock),
		services.WithTTL(60*time.Second),
		services.WithSweepBatchSize(2),
		services.WithReservationEvents(f.events),
	)
	return f
}

func (f *reservationFixture) available(t *testing.T, unitID string) int {
	t.Helper()
	n, err := f.store.GetAvailable(context.Background(), unitID)
	require.NoError(t, err)
	return n
}

func TestReserveDecrementsStockAndSetsExpiry(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 10})
	ctx := context.Background()

	r, err := f.manager.Reserve(ctx, "user:1", "sku", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, r.Quantity)
	assert.Equal(t, epoch, r.CreatedAt)
	assert.Equal(t, epoch.Add(60*time.Second), r.ExpiresAt)
	assert.Equal(t, 7, f.available(t, "sku"))
	assert.Len(t, f.events.OfType(events.ReservationCreated), 1)
}

func TestReserveValidatesInput(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 10})
	ctx := context.Background()

	_, err := f.manager.Reserve(ctx, "user:1", "sku", 0)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)
	_, err = f.manager.Reserve(ctx, "user:1", "sku", -2)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)
	_, err = f.manager.Reserve(ctx, "", "sku", 1)
	assert.ErrorIs(t, err, services.ErrInvalidHolder)
	_, err = f.manager.Reserve(ctx, "user:1", " ", 1)
	assert.ErrorIs(t, err, services.ErrInvalidUnit)
	_, err = f.manager.Reserve(ctx, "user:1", "missing", 1)
	assert.ErrorIs(t, err, services.ErrUnitNotFound)

	assert.Equal(t, 10, f.available(t, "sku"))
}

func TestReserveInsufficientStockLeavesStateUntouched(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 2})
	ctx := context.Background()

	_, err := f.manager.Reserve(ctx, "user:1", "sku", 3)
	require.ErrorIs(t, err, services.ErrInsufficientStock)

	assert.Equal(t, 2, f.available(t, "sku"))
	_, err = f.store.Get(ctx, "user:1", "sku")
	assert.ErrorIs(t, err, services.ErrReservationNotFound)
}

func TestRenewalReplacesQuantityInsteadOfStacking(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 10})
	ctx := context.Background()

	_, err := f.manager.Reserve(ctx, "user:1", "sku", 2)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Second)
	r, err := f.manager.Reserve(ctx, "user:1", "sku", 5)
	require.NoError(t, err)

	assert.Equal(t, 5, r.Quantity)
	assert.Equal(t, 5, f.available(t, "sku"))
	assert.Equal(t, epoch.Add(90*time.Second), r.ExpiresAt)
}

func TestHolderCanShrinkOrRepeatWithoutFalseShortage(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 4})
	ctx := context.Background()

	_, err := f.manager.Reserve(ctx, "user:1", "sku", 4)
	require.NoError(t, err)
	require.Equal(t, 0, f.available(t, "sku"))

	_, err = f.manager.Reserve(ctx, "user:1", "sku", 4)
	require.NoError(t, err, "repeating the same quantity must not fail")

	_, err = f.manager.Reserve(ctx, "user:1", "sku", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, f.available(t, "sku"))

	_, err = f.manager.Reserve(ctx, "user:2", "sku", 4)
	assert.ErrorIs(t, err, services.ErrInsufficientStock)
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 5})
	ctx := context.Background()

	_, err := f.manager.Reserve(ctx, "user:1", "sku", 3)
	require.NoError(t, err)

	require.NoError(t, f.manager.Release(ctx, "user:1", "sku"))
	assert.Equal(t, 5, f.available(t, "sku"))

	require.NoError(t, f.manager.Release(ctx, "user:1", "sku"))
	assert.Equal(t, 5, f.available(t, "sku"))

	require.NoError(t, f.manager.Release(ctx, "user:9", "never-held"))
	assert.Len(t, f.events.OfType(events.ReservationReleased), 1)
}

func TestTimeRemaining(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 5})
	ctx := context.Background()

	secs, err := f.manager.TimeRemaining(ctx, "user:1", "sku")
	require.NoError(t, err)
	assert.Equal(t, 0, secs)

	_, err = f.manager.Reserve(ctx, "user:1", "sku", 1)
	require.NoError(t, err)

	secs, err = f.manager.TimeRemaining(ctx, "user:1", "sku")
	require.NoError(t, err)
	assert.Equal(t, 60, secs)

	f.clock.Advance(10*time.Second + 500*time.Millisecond)
	secs, err = f.manager.TimeRemaining(ctx, "user:1", "sku")
	require.NoError(t, err)
	assert.Equal(t, 50, secs, "partial seconds round up")

	f.clock.Advance(time.Minute)
	secs, err = f.manager.TimeRemaining(ctx, "user:1", "sku")
	require.NoError(t, err)
	assert.Equal(t, 0, secs)

	cur, err := f.manager.Current(ctx, "user:1", "sku")
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestConfirmKeepsStockDecremented(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 5})
	ctx := context.Background()

	_, err := f.manager.Reserve(ctx, "user:1", "sku", 2)
	require.NoError(t, err)

	consumed, err := f.manager.Confirm(ctx, "user:1", "sku")
	require.NoError(t, err)
	assert.Equal(t, 2, consumed)
	assert.Equal(t, 3, f.available(t, "sku"))

	_, err = f.store.Get(ctx, "user:1", "sku")
	assert.ErrorIs(t, err, services.ErrReservationNotFound)

	// Confirmed holds are gone, so the sweep cannot hand the stock back.
	f.clock.Advance(2 * time.Minute)
	res, err := f.manager.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Released)
	assert.Equal(t, 3, f.available(t, "sku"))

	consumed, err = f.manager.Confirm(ctx, "user:1", "sku")
	require.NoError(t, err)
	assert.Zero(t, consumed)
	assert.Len(t, f.events.OfType(events.ReservationConfirmed), 1)
}

func TestAbandonedCartIsReclaimedBySweep(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 10})
	ctx := context.Background()

	_, err := f.manager.Reserve(ctx, "guest:abc", "sku", 3)
	require.NoError(t, err)
	require.Equal(t, 7, f.available(t, "sku"))

	f.clock.Advance(65 * time.Second)
	res, err := f.manager.SweepExpired(ctx)
	require.NoError(t, err)

	assert.Equal(t, services.SweepResult{Released: 1, StockRestored: 3}, res)
	assert.Equal(t, 10, f.available(t, "sku"))
	_, err = f.store.Get(ctx, "guest:abc", "sku")
	assert.ErrorIs(t, err, services.ErrReservationNotFound)

	again, err := f.manager.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, services.SweepResult{}, again)
	assert.Equal(t, 10, f.available(t, "sku"))
}

func TestSweepSkipsLiveHoldsAndPagesThroughBatches(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"a": 10, "b": 10})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.manager.Reserve(ctx, fmt.Sprintf("guest:%d", i), "a", 1)
		require.NoError(t, err)
	}
	f.clock.Advance(45 * time.Second)
	_, err := f.manager.Reserve(ctx, "user:live", "b", 4)
	require.NoError(t, err)

	f.clock.Advance(20 * time.Second)
	res, err := f.manager.SweepExpired(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Released)
	assert.Equal(t, 5, res.StockRestored)
	assert.Equal(t, 10, f.available(t, "a"))
	assert.Equal(t, 6, f.available(t, "b"))
}

func TestRenewalBeforeSweepWins(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 10})
	ctx := context.Background()

	_, err := f.manager.Reserve(ctx, "user:1", "sku", 2)
	require.NoError(t, err)
	f.clock.Advance(61 * time.Second)

	listed, err := f.store.ListExpired(ctx, f.clock.Now(), 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	// The renewal commits between the sweep listing and releasing the row.
	_, err = f.manager.Reserve(ctx, "user:1", "sku", 2)
	require.NoError(t, err)

	restored, err := f.store.ReleaseExpired(ctx, "user:1", "sku", f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, restored)
	assert.Equal(t, 8, f.available(t, "sku"))

	secs, err := f.manager.TimeRemaining(ctx, "user:1", "sku")
	require.NoError(t, err)
	assert.Equal(t, 60, secs)
}

func TestContentionForLastUnit(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 1})
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		shortages atomic.Int32
		start     = make(chan struct{})
	)
	for _, holder := range []string{"user:1", "guest:2"} {
		wg.Add(1)
		go func(h string) {
			defer wg.Done()
			<-start
			_, err := f.manager.Reserve(ctx, h, "sku", 1)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, services.ErrInsufficientStock):
				shortages.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(holder)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(1), shortages.Load())
	assert.Equal(t, 0, f.available(t, "sku"))
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	const stock = 25
	f := newReservationFixture(t, map[string]int{"sku": stock, "other": 1000})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		granted atomic.Int64
	)
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			qty := i%3 + 1
			if _, err := f.manager.Reserve(ctx, fmt.Sprintf("guest:%d", i), "sku", qty); err == nil {
				granted.Add(int64(qty))
			}
			// Traffic on another unit runs alongside.
			_, _ = f.manager.Reserve(ctx, fmt.Sprintf("guest:%d", i), "other", 1)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, granted.Load(), int64(stock))
	assert.Equal(t, stock-int(granted.Load()), f.available(t, "sku"))
	assert.GreaterOrEqual(t, f.available(t, "sku"), 0)
}

func TestSweepConcurrentWithRenewalsRestoresExactlyOnce(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 100})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := f.manager.Reserve(ctx, fmt.Sprintf("guest:%d", i), "sku", 2)
		require.NoError(t, err)
	}
	f.clock.Advance(61 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.SweepExpired(ctx)
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.manager.Reserve(ctx, fmt.Sprintf("guest:%d", i), "sku", 2)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	held := 0
	for i := 0; i < 20; i++ {
		if r, err := f.store.Get(ctx, fmt.Sprintf("guest:%d", i), "sku"); err == nil {
			held += r.Quantity
		}
	}
	assert.Equal(t, 100-held, f.available(t, "sku"))
}

type flakyStore struct {
	*memory.Store
	conflicts int
	holdCalls int
}

func (s *flakyStore) Hold(ctx context.Context, holderID, unitID string, quantity int, now, expiresAt time.Time) (services.HoldResult, error) {
	s.holdCalls++
	if s.conflicts > 0 {
		s.conflicts--
		return services.HoldResult{}, services.ErrConcurrentUpdate
	}
	return s.Store.Hold(ctx, holderID, unitID, quantity, now, expiresAt)
}

func TestReserveRetriesConcurrentUpdate(t *testing.T) {
	base := memory.NewStore()
	require.NoError(t, base.PutInventory(context.Background(), models.InventoryItem{UnitID: "sku", Available: 3}))

	store := &flakyStore{Store: base, conflicts: 2}
	m := services.NewReservationManager(store, base)
	_, err := m.Reserve(context.Background(), "user:1", "sku", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, store.holdCalls)

	store.conflicts = 5
	_, err = m.Reserve(context.Background(), "user:2", "sku", 1)
	assert.ErrorIs(t, err, services.ErrConcurrentUpdate)
}

func TestAvailableAndRestock(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": 2})
	ctx := context.Background()

	n, err := f.manager.Restock(ctx, "sku", 8)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = f.manager.Restock(ctx, "sku", -11)
	assert.ErrorIs(t, err, services.ErrWouldGoNegative)

	n, err = f.manager.Available(ctx, "sku")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = f.manager.Available(ctx, "nope")
	assert.ErrorIs(t, err, services.ErrUnitNotFound)
}

func TestAvailableReportsNegativeLedgerAsZero(t *testing.T) {
	f := newReservationFixture(t, map[string]int{"sku": -3})

	n, err := f.manager.Available(context.Background(), "sku")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

package services

import (
	"context"
	"strings"
	"time"

	"github.com/Govind-619/checkout-core/events"
	"github.com/Govind-619/checkout-core/metrics"
	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxHoldAttempts = 3

var tracer = otel.Tracer("checkout-core/services")

// SweepResult summarizes one SweepExpired call.
type SweepResult struct {
	Released      int `json:"released"`
	StockRestored int `json:"stock_restored"`
	Failed        int `json:"failed,omitempty"`
}

// ReservationManager creates, renews, releases and sweeps stock holds.
type ReservationManager struct {
	store     ReservationStore
	ledger    InventoryLedger
	clock     utils.Clock
	ttl       time.Duration
	batchSize int
	events    events.Publisher
}

type ReservationOption func(*ReservationManager)

func WithClock(c utils.Clock) ReservationOption {
	return func(m *ReservationManager) { m.clock = c }
}

func WithTTL(ttl time.Duration) ReservationOption {
	return func(m *ReservationManager) { m.ttl = ttl }
}

func WithSweepBatchSize(n int) ReservationOption {
	return func(m *ReservationManager) { m.batchSize = n }
}

func WithReservationEvents(p events.Publisher) ReservationOption {
	return func(m *ReservationManager) { m.events = p }
}

func NewReservationManager(store ReservationStore, ledger InventoryLedger, opts ...ReservationOption) *ReservationManager {
	m := &ReservationManager{
		store:     store,
		ledger:    ledger,
		clock:     utils.SystemClock{},
		ttl:       utils.DefaultReservationTTL,
		batchSize: utils.DefaultSweepBatchSize,
		events:    events.NopPublisher{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL is the lifetime given to every hold.
func (m *ReservationManager) TTL() time.Duration { return m.ttl }

// Reserve creates or replaces the holder's hold on unitID. The holder's
// previous quantity counts as available, so shrinking or repeating a hold
// never fails for lack of stock.
func (m *ReservationManager) Reserve(ctx context.Context, holderID, unitID string, quantity int) (models.Reservation, error) {
	ctx, span := tracer.Start(ctx, "ReservationManager.Reserve", trace.WithAttributes(
		attribute.String("unit_id", unitID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if err := validateKey(holderID, unitID); err != nil {
		return models.Reservation{}, err
	}
	if quantity <= 0 {
		return models.Reservation{}, ErrInvalidQuantity
	}

	var (
		res HoldResult
		err error
	)
	for attempt := 1; attempt <= maxHoldAttempts; attempt++ {
		now := m.clock.Now()
		res, err = m.store.Hold(ctx, holderID, unitID, quantity, now, now.Add(m.ttl))
		if !errors.Is(err, ErrConcurrentUpdate) {
			break
		}
		utils.LogDebug("reserve %s/%s lost a race (attempt %d)", holderID, unitID, attempt)
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientStock):
		metrics.Reservations.WithLabelValues("insufficient_stock").Inc()
		span.SetAttributes(attribute.Bool("insufficient_stock", true))
		utils.LogInfo("reserve rejected: %s wants %d of %s, not enough stock", holderID, quantity, unitID)
		return models.Reservation{}, err
	case errors.Is(err, ErrUnitNotFound):
		metrics.Reservations.WithLabelValues("unit_not_found").Inc()
		return models.Reservation{}, err
	default:
		metrics.Reservations.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "hold failed")
		utils.LogError("reserve %s/%s failed: %v", holderID, unitID, err)
		return models.Reservation{}, errors.Wrap(err, "reserve")
	}

	if res.Available < 0 {
		m.reportNegativeStock(unitID, res.Available)
	}

	result := "created"
	if res.Previous > 0 {
		result = "renewed"
	}
	metrics.Reservations.WithLabelValues(result).Inc()
	utils.LogDebug("reserved %d of %s for %s (previous %d, available now %d)", quantity, unitID, holderID, res.Previous, res.Available)

	e := events.New(events.ReservationCreated, res.Reservation.CreatedAt)
	e.HolderID, e.UnitID, e.Quantity = holderID, unitID, quantity
	expires := res.Reservation.ExpiresAt
	e.ExpiresAt = &expires
	m.events.Publish(ctx, e)

	return res.Reservation, nil
}

// Release drops the hold and returns its stock. Missing holds are a no-op.
func (m *ReservationManager) Release(ctx context.Context, holderID, unitID string) error {
	ctx, span := tracer.Start(ctx, "ReservationManager.Release", trace.WithAttributes(attribute.String("unit_id", unitID)))
	defer span.End()

	if err := validateKey(holderID, unitID); err != nil {
		return err
	}

	restored, err := m.store.Release(ctx, holderID, unitID)
	if err != nil {
		span.RecordError(err)
		utils.LogError("release %s/%s failed: %v", holderID, unitID, err)
		return errors.Wrap(err, "release")
	}
	if restored > 0 {
		metrics.Releases.WithLabelValues("explicit").Inc()
		m.publish(ctx, events.ReservationReleased, holderID, unitID, restored)
	}
	return nil
}

// Current returns the live hold, or nil when none exists or it has expired.
func (m *ReservationManager) Current(ctx context.Context, holderID, unitID string) (*models.Reservation, error) {
	if err := validateKey(holderID, unitID); err != nil {
		return nil, err
	}
	r, err := m.store.Get(ctx, holderID, unitID)
	if errors.Is(err, ErrReservationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get reservation")
	}
	if r.Expired(m.clock.Now()) {
		return nil, nil
	}
	return &r, nil
}

// TimeRemaining returns the whole seconds left on the hold, rounded up.
// Zero when the hold is absent or expired.
func (m *ReservationManager) TimeRemaining(ctx context.Context, holderID, unitID string) (int, error) {
	r, err := m.Current(ctx, holderID, unitID)
	if err != nil || r == nil {
		return 0, err
	}
	return r.RemainingSeconds(m.clock.Now()), nil
}

// Confirm turns the hold into a permanent decrement: the row goes away and
// stock is not restored. It returns the consumed quantity; a missing hold
// (released, swept or never taken) consumes nothing and returns 0.
func (m *ReservationManager) Confirm(ctx context.Context, holderID, unitID string) (int, error) {
	ctx, span := tracer.Start(ctx, "ReservationManager.Confirm", trace.WithAttributes(attribute.String("unit_id", unitID)))
	defer span.End()

	if err := validateKey(holderID, unitID); err != nil {
		return 0, err
	}

	consumed, err := m.store.Consume(ctx, holderID, unitID)
	if err != nil {
		span.RecordError(err)
		utils.LogError("confirm %s/%s failed: %v", holderID, unitID, err)
		return 0, errors.Wrap(err, "confirm")
	}
	if consumed > 0 {
		metrics.Releases.WithLabelValues("confirmed").Inc()
		m.publish(ctx, events.ReservationConfirmed, holderID, unitID, consumed)
	} else {
		utils.LogDebug("confirm %s/%s: no hold to consume", holderID, unitID)
	}
	return consumed, nil
}

// SweepExpired releases every hold whose expiry has passed. Each row is
// re-checked inside its own atomic release, so a hold renewed after it was
// listed is left alone. Rows that fail are logged and picked up next cycle.
func (m *ReservationManager) SweepExpired(ctx context.Context) (SweepResult, error) {
	ctx, span := tracer.Start(ctx, "ReservationManager.SweepExpired")
	defer span.End()

	now := m.clock.Now()
	var result SweepResult

	for {
		rows, err := m.store.ListExpired(ctx, now, m.batchSize)
		if err != nil {
			span.RecordError(err)
			return result, errors.Wrap(err, "list expired reservations")
		}

		failed := 0
		for _, r := range rows {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			restored, err := m.store.ReleaseExpired(ctx, r.HolderID, r.UnitID, now)
			if err != nil {
				failed++
				utils.LogError("sweep: release %s/%s failed, will retry: %v", r.HolderID, r.UnitID, err)
				continue
			}
			if restored == 0 {
				continue
			}
			result.Released++
			result.StockRestored += restored
			m.publish(ctx, events.ReservationExpired, r.HolderID, r.UnitID, restored)
		}
		result.Failed += failed

		// A batch with no progress would come back identical.
		if len(rows) < m.batchSize || failed == len(rows) {
			break
		}
	}

	metrics.SweepRuns.Inc()
	if result.Released > 0 {
		metrics.Releases.WithLabelValues("expired").Add(float64(result.Released))
		metrics.SweepStockRestored.Add(float64(result.StockRestored))
		utils.LogInfo("sweep released %d expired holds, restored %d units", result.Released, result.StockRestored)
	}
	span.SetAttributes(attribute.Int("released", result.Released), attribute.Int("stock_restored", result.StockRestored))
	return result, nil
}

// Available is what shoppers re-query after ErrInsufficientStock.
// A negative ledger value is reported as 0.
func (m *ReservationManager) Available(ctx context.Context, unitID string) (int, error) {
	if strings.TrimSpace(unitID) == "" {
		return 0, ErrInvalidUnit
	}
	n, err := m.ledger.GetAvailable(ctx, unitID)
	if err != nil {
		if errors.Is(err, ErrUnitNotFound) {
			return 0, err
		}
		return 0, errors.Wrap(err, "get available")
	}
	if n < 0 {
		m.reportNegativeStock(unitID, n)
		return 0, nil
	}
	return n, nil
}

// Restock applies an operator adjustment to the ledger.
func (m *ReservationManager) Restock(ctx context.Context, unitID string, delta int) (int, error) {
	if strings.TrimSpace(unitID) == "" {
		return 0, ErrInvalidUnit
	}
	n, err := m.ledger.AdjustAvailable(ctx, unitID, delta)
	if err != nil {
		if errors.Is(err, ErrWouldGoNegative) || errors.Is(err, ErrUnitNotFound) {
			return 0, err
		}
		return 0, errors.Wrap(err, "adjust available")
	}
	utils.LogInfo("restock %s by %d, available now %d", unitID, delta, n)
	return n, nil
}

func (m *ReservationManager) reportNegativeStock(unitID string, n int) {
	metrics.InvariantViolations.WithLabelValues(metrics.ViolationNegativeStock).Inc()
	utils.LogError("invariant violation: unit %s has negative available stock %d", unitID, n)
}

func (m *ReservationManager) publish(ctx context.Context, typ, holderID, unitID string, qty int) {
	e := events.New(typ, m.clock.Now())
	e.HolderID, e.UnitID, e.Quantity = holderID, unitID, qty
	m.events.Publish(ctx, e)
}

func validateKey(holderID, unitID string) error {
	if strings.TrimSpace(holderID) == "" {
		return ErrInvalidHolder
	}
	if strings.TrimSpace(unitID) == "" {
		return ErrInvalidUnit
	}
	return nil
}

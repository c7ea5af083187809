package services

import (
	"context"
	"time"

	"github.com/Govind-619/checkout-core/models"
)

// InventoryLedger is the authoritative available-stock counter.
type InventoryLedger interface {
	// GetAvailable returns ErrUnitNotFound for unknown units.
	GetAvailable(ctx context.Context, unitID string) (int, error)
	// AdjustAvailable adds delta and returns the new value. A negative delta
	// that would overdraw fails with ErrWouldGoNegative and changes nothing.
	AdjustAvailable(ctx context.Context, unitID string, delta int) (int, error)
}

// HoldResult describes a committed Hold.
type HoldResult struct {
	Reservation models.Reservation
	// Previous is the quantity the holder had before this call, 0 if none.
	Previous int
	// Available is the ledger value after the hold.
	Available int
}

// ReservationStore keeps one hold per (holder, unit). Each method is a single
// atomic unit together with the matching ledger adjustment.
type ReservationStore interface {
	// Hold restores the holder's previous quantity for the unit, takes
	// quantity from the ledger and upserts the row. Fails with
	// ErrInsufficientStock without side effects when stock is short.
	// ErrConcurrentUpdate means the call lost a race and may be retried.
	Hold(ctx context.Context, holderID, unitID string, quantity int, now, expiresAt time.Time) (HoldResult, error)
	// Get returns ErrReservationNotFound when no row exists.
	Get(ctx context.Context, holderID, unitID string) (models.Reservation, error)
	// Release deletes the row and restores its quantity. Returns 0 if absent.
	Release(ctx context.Context, holderID, unitID string) (int, error)
	// Consume deletes the row without restoring stock. Returns 0 if absent.
	Consume(ctx context.Context, holderID, unitID string) (int, error)
	// ListExpired returns up to limit rows with ExpiresAt <= now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
	// ReleaseExpired releases the row only if it is still expired at now.
	// Returns 0 when the row is gone or was renewed.
	ReleaseExpired(ctx context.Context, holderID, unitID string, now time.Time) (int, error)
}

// CouponLedger stores coupon definitions and the redemption log.
type CouponLedger interface {
	// GetCoupon looks a coupon up by normalized code; ErrCouponNotFound if absent.
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	GetCouponByID(ctx context.Context, id uint) (*models.Coupon, error)
	CountRedemptions(ctx context.Context, couponID uint) (int, error)
	CountHolderRedemptions(ctx context.Context, couponID uint, holderID string) (int, error)
	// InsertRedemption fails with ErrAlreadyExists for a duplicate (coupon, order).
	InsertRedemption(ctx context.Context, r *models.CouponRedemption) error
	// ListOverLimit returns (holder, coupon) pairs above the per-user cap.
	ListOverLimit(ctx context.Context) ([]models.AbuseFinding, error)
}

// AbuseAlerter notifies operators about over-limit redemptions.
type AbuseAlerter interface {
	AlertAbuse(ctx context.Context, findings []models.AbuseFinding) error
}

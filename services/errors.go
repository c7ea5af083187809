package services

import "github.com/pkg/errors"

var (
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrInvalidHolder       = errors.New("holder id is required")
	ErrInvalidUnit         = errors.New("unit id is required")
	ErrInvalidOrder        = errors.New("order id is required")
	ErrInvalidAmount       = errors.New("amount must not be negative")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrUnitNotFound        = errors.New("unit not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrWouldGoNegative     = errors.New("adjustment would make available stock negative")
	ErrConcurrentUpdate    = errors.New("concurrent update, retry")
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrAlreadyExists       = errors.New("redemption already exists")
)

// Reason explains why a coupon did not validate.
type Reason string

const (
	ReasonCouponNotFound      Reason = "CouponNotFound"
	ReasonCouponExpired       Reason = "CouponExpired"
	ReasonMinimumOrderNotMet  Reason = "MinimumOrderNotMet"
	ReasonGlobalLimitReached  Reason = "GlobalLimitReached"
	ReasonPerUserLimitReached Reason = "PerUserLimitReached"
	ReasonCouponNotApplicable Reason = "CouponNotApplicable"
	// ReasonCouponUnavailable is returned when the coupon ledger could not be read.
	ReasonCouponUnavailable Reason = "CouponUnavailable"
)

var reasonMessages = map[Reason]string{
	ReasonCouponNotFound:      "This coupon code is not valid",
	ReasonCouponExpired:       "This coupon has expired",
	ReasonMinimumOrderNotMet:  "Your order does not meet the minimum amount for this coupon",
	ReasonGlobalLimitReached:  "This coupon is no longer available",
	ReasonPerUserLimitReached: "You have already used this coupon",
	ReasonCouponNotApplicable: "This coupon cannot be applied to your order",
	ReasonCouponUnavailable:   "Coupons are temporarily unavailable. Please try again",
}

// Message is the shopper-facing text for r.
func (r Reason) Message() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

package services

import (
	"context"
	"strings"

	"github.com/Govind-619/checkout-core/utils"
	"github.com/pkg/errors"
)

// ConfirmOrderInput is sent by the order-placement collaborator once an
// order is durably stored.
type ConfirmOrderInput struct {
	HolderID       string
	OrderID        string
	UnitIDs        []string
	CouponID       uint
	DiscountAmount int64
}

// ConfirmOrderResult lists the units whose holds were consumed. MissingUnits
// had no live hold for the holder, usually because it expired and was swept;
// the caller must not treat their stock as secured.
type ConfirmOrderResult struct {
	ConfirmedUnits []string `json:"confirmed_units"`
	MissingUnits   []string `json:"missing_units"`
	CouponRecorded bool     `json:"coupon_recorded"`
}

// CheckoutService converts holds and records coupon use for a placed order.
type CheckoutService struct {
	reservations *ReservationManager
	coupons      *CouponEngine
}

func NewCheckoutService(reservations *ReservationManager, coupons *CouponEngine) *CheckoutService {
	return &CheckoutService{reservations: reservations, coupons: coupons}
}

// ConfirmOrder confirms every hold, then redeems the coupon if one was used.
// A store error fails the call so the caller can retry; Confirm is
// idempotent. Units without a live hold are reported in MissingUnits.
// A redemption failure is logged and reported but never undoes the order.
func (s *CheckoutService) ConfirmOrder(ctx context.Context, in ConfirmOrderInput) (ConfirmOrderResult, error) {
	if strings.TrimSpace(in.HolderID) == "" {
		return ConfirmOrderResult{}, ErrInvalidHolder
	}
	if strings.TrimSpace(in.OrderID) == "" {
		return ConfirmOrderResult{}, ErrInvalidOrder
	}

	result := ConfirmOrderResult{
		ConfirmedUnits: make([]string, 0, len(in.UnitIDs)),
		MissingUnits:   []string{},
	}
	for _, unitID := range in.UnitIDs {
		consumed, err := s.reservations.Confirm(ctx, in.HolderID, unitID)
		if err != nil {
			return result, errors.Wrapf(err, "order %s", in.OrderID)
		}
		if consumed == 0 {
			utils.LogWarn("order %s: no live hold on %s for %s", in.OrderID, unitID, in.HolderID)
			result.MissingUnits = append(result.MissingUnits, unitID)
			continue
		}
		result.ConfirmedUnits = append(result.ConfirmedUnits, unitID)
	}

	if in.CouponID == 0 {
		return result, nil
	}
	if _, err := s.coupons.Redeem(ctx, in.CouponID, in.HolderID, in.OrderID, in.DiscountAmount); err != nil {
		utils.LogWarn("order %s placed but coupon %d was not recorded: %v", in.OrderID, in.CouponID, err)
		return result, nil
	}
	result.CouponRecorded = true
	return result, nil
}

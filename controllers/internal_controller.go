package controllers

import (
	"github.com/Govind-619/checkout-core/services"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/gin-gonic/gin"
)

// ConfirmReservationRequest is the body of POST /v1/internal/reserve/confirm.
type ConfirmReservationRequest struct {
	HolderID string `json:"holder_id" binding:"required"`
	UnitID   string `json:"unit_id" binding:"required"`
}

// ConfirmCheckoutRequest is the body of POST /v1/internal/checkout/confirm.
type ConfirmCheckoutRequest struct {
	HolderID       string   `json:"holder_id" binding:"required"`
	OrderID        string   `json:"order_id" binding:"required"`
	UnitIDs        []string `json:"unit_ids"`
	CouponID       uint     `json:"coupon_id"`
	DiscountAmount int64    `json:"discount_amount" binding:"min=0"`
}

// ConfirmReservation consumes a hold for a placed order.
func (h *Handler) ConfirmReservation(c *gin.Context) {
	var req ConfirmReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, "confirm reservation", err)
		return
	}
	consumed, err := h.reservations.Confirm(c.Request.Context(), req.HolderID, req.UnitID)
	if err != nil {
		respondError(c, "confirm reservation", err)
		return
	}
	if consumed == 0 {
		utils.Success(c, "No live hold to confirm", gin.H{"ok": true, "confirmed": false, "consumed": 0})
		return
	}
	utils.Success(c, "Reservation confirmed", gin.H{"ok": true, "confirmed": true, "consumed": consumed})
}

// ConfirmCheckout confirms all holds of an order and records its coupon.
func (h *Handler) ConfirmCheckout(c *gin.Context) {
	var req ConfirmCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, "confirm checkout", err)
		return
	}

	res, err := h.checkout.ConfirmOrder(c.Request.Context(), services.ConfirmOrderInput{
		HolderID:       req.HolderID,
		OrderID:        req.OrderID,
		UnitIDs:        req.UnitIDs,
		CouponID:       req.CouponID,
		DiscountAmount: req.DiscountAmount,
	})
	if err != nil {
		respondError(c, "confirm checkout", err)
		return
	}
	if len(res.MissingUnits) > 0 {
		utils.LogWarn("Order %s confirmed with %d units missing holds: %v", req.OrderID, len(res.MissingUnits), res.MissingUnits)
		utils.Success(c, "Order confirmed with missing holds", res)
		return
	}
	utils.LogInfo("Order %s confirmed: %d units, coupon recorded %t", req.OrderID, len(res.ConfirmedUnits), res.CouponRecorded)
	utils.Success(c, "Order confirmed", res)
}

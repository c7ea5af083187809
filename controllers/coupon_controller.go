package controllers

import (
	"github.com/Govind-619/checkout-core/middleware"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/gin-gonic/gin"
)

// ValidateCouponRequest is the body of POST /v1/coupon/validate.
type ValidateCouponRequest struct {
	Code     string `json:"code"`
	HolderID string `json:"holder_id"`
	Subtotal int64  `json:"subtotal" binding:"min=0"`
}

// RedeemCouponRequest is the body of POST /v1/internal/coupon/redeem.
type RedeemCouponRequest struct {
	CouponID       uint   `json:"coupon_id" binding:"required"`
	HolderID       string `json:"holder_id" binding:"required"`
	OrderID        string `json:"order_id" binding:"required"`
	DiscountAmount int64  `json:"discount_amount" binding:"min=0"`
}

// ValidateCoupon checks a code for the caller. An ineligible coupon is still
// a 200 with valid=false and a reason.
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, "validate coupon", err)
		return
	}
	holderID, ok := middleware.ResolveHolder(c, req.HolderID)
	if !ok {
		utils.Forbidden(c, utils.MsgHolderMismatch)
		return
	}

	v, err := h.coupons.Validate(c.Request.Context(), req.Code, holderID, req.Subtotal)
	if err != nil {
		respondError(c, "validate coupon", err)
		return
	}
	msg := "Coupon applied"
	if !v.Valid {
		msg = v.Message
	}
	utils.Success(c, msg, v)
}

// RedeemCoupon records a redemption for a confirmed order. Repeating the same
// order is accepted with created=false.
func (h *Handler) RedeemCoupon(c *gin.Context) {
	var req RedeemCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, "redeem coupon", err)
		return
	}

	res, err := h.coupons.Redeem(c.Request.Context(), req.CouponID, req.HolderID, req.OrderID, req.DiscountAmount)
	if err != nil {
		respondError(c, "redeem coupon", err)
		return
	}
	utils.Success(c, "Redemption recorded", gin.H{"ok": true, "created": res.Created})
}

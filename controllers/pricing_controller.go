package controllers

import (
	"github.com/Govind-619/checkout-core/pricing"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ComputeRequest is the body of POST /v1/pricing/compute. tax_rate may be
// sent as a JSON number or a decimal string.
type ComputeRequest struct {
	LineItems      []pricing.LineItem `json:"line_items"`
	DiscountAmount int64              `json:"discount_amount"`
	TaxRate        decimal.Decimal    `json:"tax_rate"`
}

// ComputePricing returns subtotal, discount, tax and total in minor units.
func (h *Handler) ComputePricing(c *gin.Context) {
	var req ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, "compute pricing", err)
		return
	}

	totals, err := pricing.Compute(req.LineItems, req.DiscountAmount, req.TaxRate)
	if err != nil {
		respondError(c, "compute pricing", err)
		return
	}
	utils.Success(c, "Totals computed", totals)
}

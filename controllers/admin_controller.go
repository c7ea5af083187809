package controllers

import (
	"github.com/Govind-619/checkout-core/utils"
	"github.com/gin-gonic/gin"
)

// RestockRequest is the body of PUT /v1/admin/inventory/:unit_id.
type RestockRequest struct {
	Delta int `json:"delta"`
}

// RunSweep releases expired holds now instead of waiting for the next tick.
func (h *Handler) RunSweep(c *gin.Context) {
	res, err := h.reservations.SweepExpired(c.Request.Context())
	if err != nil {
		respondError(c, "sweep", err)
		return
	}
	utils.LogInfo("Manual sweep released %d holds", res.Released)
	utils.Success(c, "Sweep complete", gin.H{
		"released":       res.Released,
		"stock_restored": res.StockRestored,
		"failed":         res.Failed,
	})
}

// Restock adjusts a unit's available stock by delta.
func (h *Handler) Restock(c *gin.Context) {
	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, "restock", err)
		return
	}
	unitID := c.Param("unit_id")

	n, err := h.reservations.Restock(c.Request.Context(), unitID, req.Delta)
	if err != nil {
		respondError(c, "restock", err)
		return
	}
	utils.Success(c, "Inventory updated", gin.H{"unit_id": unitID, "available": n})
}

// CouponAbuse lists holders whose redemptions exceed the per-holder limit,
// one page at a time (?page=&limit=).
func (h *Handler) CouponAbuse(c *gin.Context) {
	findings, err := h.coupons.FindAbuse(c.Request.Context())
	if err != nil {
		respondError(c, "coupon abuse", err)
		return
	}
	page := utils.NewPagination(c)
	start, end := page.Window(len(findings))
	utils.Success(c, "Coupon abuse report", gin.H{
		"findings":   findings[start:end],
		"pagination": page,
	})
}

// Health reports that the process is up.
func Health(c *gin.Context) {
	utils.Success(c, "ok", gin.H{"service": utils.AppName, "version": utils.APIVersion})
}

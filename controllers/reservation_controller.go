package controllers

import (
	"time"

	"github.com/Govind-619/checkout-core/middleware"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/gin-gonic/gin"
)

// ReserveRequest is the body of POST /v1/reserve.
type ReserveRequest struct {
	HolderID string `json:"holder_id"`
	UnitID   string `json:"unit_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

// ReleaseRequest is the body or query of DELETE /v1/reserve.
type ReleaseRequest struct {
	HolderID string `json:"holder_id" form:"holder_id"`
	UnitID   string `json:"unit_id" form:"unit_id" binding:"required"`
}

type reservationResponse struct {
	HolderID  string    `json:"holder_id"`
	UnitID    string    `json:"unit_id"`
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expires_at"`
}

type remainingResponse struct {
	SecondsRemaining int        `json:"seconds_remaining"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

// Reserve creates or replaces the caller's hold on a unit.
func (h *Handler) Reserve(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, "reserve", err)
		return
	}
	holderID, ok := middleware.ResolveHolder(c, req.HolderID)
	if !ok {
		utils.LogWarn("reserve: holder %q does not match session holder %q", req.HolderID, middleware.HolderID(c))
		utils.Forbidden(c, utils.MsgHolderMismatch)
		return
	}

	r, err := h.reservations.Reserve(c.Request.Context(), holderID, req.UnitID, req.Quantity)
	if err != nil {
		respondError(c, "reserve", err)
		return
	}

	utils.Success(c, utils.MsgReserved, reservationResponse{
		HolderID:  r.HolderID,
		UnitID:    r.UnitID,
		Quantity:  r.Quantity,
		ExpiresAt: r.ExpiresAt,
	})
}

// ReleaseReservation drops the caller's hold. Releasing nothing still succeeds.
func (h *Handler) ReleaseReservation(c *gin.Context) {
	var req ReleaseRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidBody(c, "release", err)
		return
	}
	holderID, ok := middleware.ResolveHolder(c, req.HolderID)
	if !ok {
		utils.Forbidden(c, utils.MsgHolderMismatch)
		return
	}

	if err := h.reservations.Release(c.Request.Context(), holderID, req.UnitID); err != nil {
		respondError(c, "release", err)
		return
	}
	utils.Success(c, utils.MsgReleased, gin.H{"holder_id": holderID, "unit_id": req.UnitID})
}

// TimeRemaining reports how long the caller's hold on unit_id has left.
func (h *Handler) TimeRemaining(c *gin.Context) {
	unitID := c.Query("unit_id")
	if unitID == "" {
		utils.BadRequest(c, "unit_id is required")
		return
	}
	holderID, ok := middleware.ResolveHolder(c, c.Query("holder_id"))
	if !ok {
		utils.Forbidden(c, utils.MsgHolderMismatch)
		return
	}

	r, err := h.reservations.Current(c.Request.Context(), holderID, unitID)
	if err != nil {
		respondError(c, "time remaining", err)
		return
	}
	resp := remainingResponse{}
	if r != nil {
		secs, err := h.reservations.TimeRemaining(c.Request.Context(), holderID, unitID)
		if err != nil {
			respondError(c, "time remaining", err)
			return
		}
		resp.SecondsRemaining = secs
		if secs > 0 {
			resp.ExpiresAt = &r.ExpiresAt
		}
	}
	utils.Success(c, "Reservation time remaining", resp)
}

// Available returns the unit's current available stock.
func (h *Handler) Available(c *gin.Context) {
	unitID := c.Param("unit_id")
	n, err := h.reservations.Available(c.Request.Context(), unitID)
	if err != nil {
		respondError(c, "available", err)
		return
	}
	utils.Success(c, "Available stock", gin.H{"unit_id": unitID, "available": n})
}

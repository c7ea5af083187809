// Package controllers holds the gin handlers for the checkout API.
package controllers

import (
	"net/http"

	"github.com/Govind-619/checkout-core/pricing"
	"github.com/Govind-619/checkout-core/services"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Handler carries the services the routes call into.
type Handler struct {
	reservations *services.ReservationManager
	coupons      *services.CouponEngine
	checkout     *services.CheckoutService
}

func NewHandler(reservations *services.ReservationManager, coupons *services.CouponEngine, checkout *services.CheckoutService) *Handler {
	return &Handler{
		reservations: reservations,
		coupons:      coupons,
		checkout:     checkout,
	}
}

// toAppError maps service errors onto HTTP responses. Anything unknown is a 500
// with the generic retry message.
func toAppError(err error) *utils.AppError {
	switch {
	case errors.Is(err, services.ErrInsufficientStock):
		return utils.ConflictError(utils.CodeInsufficientStock, utils.MsgInsufficientStock, err)
	case errors.Is(err, services.ErrWouldGoNegative):
		return utils.ConflictError(utils.CodeWouldGoNegative, err.Error(), err)
	case errors.Is(err, services.ErrUnitNotFound):
		return utils.NotFoundError(utils.CodeUnitNotFound, utils.MsgUnitNotFound, err)
	case errors.Is(err, services.ErrCouponNotFound):
		return utils.NotFoundError(utils.CodeCouponNotFound, services.ReasonCouponNotFound.Message(), err)
	case errors.Is(err, services.ErrInvalidQuantity):
		return utils.BadRequestError(utils.CodeInvalidQuantity, utils.MsgInvalidQuantity, err)
	case errors.Is(err, services.ErrInvalidHolder),
		errors.Is(err, services.ErrInvalidUnit),
		errors.Is(err, services.ErrInvalidOrder),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, pricing.ErrInvalidLineItem),
		errors.Is(err, pricing.ErrInvalidTaxRate),
		errors.Is(err, pricing.ErrAmountOverflow):
		return utils.BadRequestError(utils.CodeInvalidRequest, errors.Cause(err).Error(), err)
	default:
		return utils.InternalError(err)
	}
}

func respondError(c *gin.Context, op string, err error) {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		utils.LogError("%s failed: %v", op, err)
	} else {
		utils.LogDebug("%s rejected: %v", op, err)
	}
	utils.RespondAppError(c, appErr)
}

func invalidBody(c *gin.Context, op string, err error) {
	utils.LogDebug("%s: invalid request: %v", op, err)
	utils.BadRequest(c, "Invalid request: "+err.Error())
}

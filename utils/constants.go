package utils

import "time"

// Application constants
const (
	AppName = "checkout-core"

	APIVersion = "v1"

	DefaultPort = "8080"

	// Reservation hold lifetime and sweep cadence.
	DefaultReservationTTL  = 60 * time.Second
	DefaultSweepInterval   = 10 * time.Second
	DefaultSweepBatchSize  = 500
	DefaultAbuseScanPeriod = 15 * time.Minute

	// Header carrying the shared secret for internal and admin routes.
	InternalTokenHeader = "X-Internal-Token"

	// Context keys set by middleware.
	ContextHolderID  = "holder_id"
	ContextRequestID = "RequestID"
)

// Error codes returned in the response envelope
const (
	CodeInvalidRequest    = "invalid_request"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeInternal          = "internal_error"
	CodeInsufficientStock = "InsufficientStock"
	CodeUnitNotFound      = "unit_not_found"
	CodeCouponNotFound    = "coupon_not_found"
	CodeInvalidQuantity   = "invalid_quantity"
	CodeWouldGoNegative   = "would_go_negative"
)

// User-facing messages
const (
	MsgTryAgain          = "Something went wrong. Please try again"
	MsgInsufficientStock = "Not enough stock available for the requested quantity"
	MsgUnitNotFound      = "Item not found"
	MsgInvalidQuantity   = "Quantity must be greater than zero"
	MsgHolderMismatch    = "holder_id does not match the current session"
	MsgReserved          = "Item reserved"
	MsgReleased          = "Reservation released"
)

package services

import (
	"context"
	"strings"

	"github.com/Govind-619/checkout-core/events"
	"github.com/Govind-619/checkout-core/metrics"
	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/pricing"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Validation is the outcome of CouponEngine.Validate.
type Validation struct {
	Valid          bool   `json:"valid"`
	CouponID       uint   `json:"coupon_id,omitempty"`
	Code           string `json:"code,omitempty"`
	DiscountAmount int64  `json:"discount_amount"`
	Reason         Reason `json:"reason,omitempty"`
	Message        string `json:"message,omitempty"`
}

// RedeemResult reports whether Redeem wrote a new row.
type RedeemResult struct {
	Created bool `json:"created"`
}

// CouponEngine validates codes against their rules and records redemptions.
type CouponEngine struct {
	ledger CouponLedger
	clock  utils.Clock
	events events.Publisher
	rules  ruleEvaluator
}

type CouponOption func(*CouponEngine)

func WithCouponClock(c utils.Clock) CouponOption {
	return func(e *CouponEngine) { e.clock = c }
}

func WithCouponEvents(p events.Publisher) CouponOption {
	return func(e *CouponEngine) { e.events = p }
}

func NewCouponEngine(ledger CouponLedger, opts ...CouponOption) *CouponEngine {
	e := &CouponEngine{
		ledger: ledger,
		clock:  utils.SystemClock{},
		events: events.NopPublisher{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckRule reports whether an eligibility rule compiles.
func (e *CouponEngine) CheckRule(expr string) error {
	return e.rules.Check(expr)
}

// Validate checks code for holderID at the given subtotal. Checks run in a
// fixed order and the first failure decides the reason. Ledger faults do not
// surface as errors: the result is "no coupon applied".
func (e *CouponEngine) Validate(ctx context.Context, code, holderID string, subtotal int64) (Validation, error) {
	ctx, span := tracer.Start(ctx, "CouponEngine.Validate", trace.WithAttributes(attribute.Int64("subtotal", subtotal)))
	defer span.End()

	if strings.TrimSpace(holderID) == "" {
		return Validation{}, ErrInvalidHolder
	}
	if subtotal < 0 {
		return Validation{}, ErrInvalidAmount
	}

	v := e.validate(ctx, models.NormalizeCouponCode(code), holderID, subtotal)
	if v.Valid {
		metrics.CouponValidations.WithLabelValues("valid").Inc()
	} else {
		v.Message = v.Reason.Message()
		metrics.CouponValidations.WithLabelValues(string(v.Reason)).Inc()
	}
	span.SetAttributes(attribute.Bool("valid", v.Valid), attribute.String("reason", string(v.Reason)))
	return v, nil
}

func (e *CouponEngine) validate(ctx context.Context, code, holderID string, subtotal int64) Validation {
	reject := func(r Reason) Validation { return Validation{Reason: r, Code: code} }

	if code == "" {
		return reject(ReasonCouponNotFound)
	}

	c, err := e.ledger.GetCoupon(ctx, code)
	if errors.Is(err, ErrCouponNotFound) {
		return reject(ReasonCouponNotFound)
	}
	if err != nil {
		utils.LogError("coupon lookup %s failed: %v", code, err)
		return reject(ReasonCouponUnavailable)
	}
	if !c.IsActive {
		return reject(ReasonCouponNotFound)
	}

	if !c.ExpirationDate.IsZero() && e.clock.Now().After(c.ExpirationDate) {
		return reject(ReasonCouponExpired)
	}

	if c.MinOrderValue != nil && subtotal < *c.MinOrderValue {
		return reject(ReasonMinimumOrderNotMet)
	}

	if c.MaxUsesGlobal != nil {
		used, err := e.ledger.CountRedemptions(ctx, c.ID)
		if err != nil {
			utils.LogError("count redemptions for coupon %d failed: %v", c.ID, err)
			return reject(ReasonCouponUnavailable)
		}
		if used >= *c.MaxUsesGlobal {
			return reject(ReasonGlobalLimitReached)
		}
	}

	mine, err := e.ledger.CountHolderRedemptions(ctx, c.ID, holderID)
	if err != nil {
		utils.LogError("count redemptions for coupon %d holder %s failed: %v", c.ID, holderID, err)
		return reject(ReasonCouponUnavailable)
	}
	if limit := c.PerUserLimit(); mine >= limit {
		if mine > limit {
			metrics.InvariantViolations.WithLabelValues(metrics.ViolationOverLimitUsage).Inc()
			utils.LogError("invariant violation: holder %s redeemed coupon %d %d times, limit %d", holderID, c.ID, mine, limit)
		}
		return reject(ReasonPerUserLimitReached)
	}

	if rule := strings.TrimSpace(c.EligibilityRule); rule != "" {
		ok, err := e.rules.Eval(rule, RuleInput{
			Subtotal:    subtotal,
			HolderID:    holderID,
			IsGuest:     strings.HasPrefix(holderID, "guest:"),
			Redemptions: mine,
		})
		if err != nil {
			utils.LogError("coupon %d eligibility rule failed: %v", c.ID, err)
			return reject(ReasonCouponNotApplicable)
		}
		if !ok {
			return reject(ReasonCouponNotApplicable)
		}
	}

	return Validation{
		Valid:          true,
		CouponID:       c.ID,
		Code:           c.Code,
		DiscountAmount: Discount(c, subtotal),
	}
}

// Discount is the amount c takes off subtotal. Fixed discounts never exceed
// the subtotal.
func Discount(c *models.Coupon, subtotal int64) int64 {
	var d int64
	switch c.DiscountType {
	case models.DiscountPercentage:
		d = pricing.PercentOf(subtotal, c.Value)
	case models.DiscountFixed:
		d = pricing.RoundHalfUp(c.Value)
	}
	return pricing.Clamp(d, 0, subtotal)
}

// Redeem records that couponID was applied to orderID. Only call it after the
// order is durably confirmed. A second call for the same order succeeds
// without writing anything.
func (e *CouponEngine) Redeem(ctx context.Context, couponID uint, holderID, orderID string, amount int64) (RedeemResult, error) {
	ctx, span := tracer.Start(ctx, "CouponEngine.Redeem", trace.WithAttributes(attribute.String("order_id", orderID)))
	defer span.End()

	switch {
	case couponID == 0:
		return RedeemResult{}, ErrCouponNotFound
	case strings.TrimSpace(holderID) == "":
		return RedeemResult{}, ErrInvalidHolder
	case strings.TrimSpace(orderID) == "":
		return RedeemResult{}, ErrInvalidOrder
	case amount < 0:
		return RedeemResult{}, ErrInvalidAmount
	}

	if _, err := e.ledger.GetCouponByID(ctx, couponID); err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return RedeemResult{}, err
		}
		metrics.CouponRedemptions.WithLabelValues("error").Inc()
		return RedeemResult{}, errors.Wrap(err, "load coupon")
	}

	now := e.clock.Now()
	err := e.ledger.InsertRedemption(ctx, &models.CouponRedemption{
		CouponID:       couponID,
		HolderID:       holderID,
		OrderID:        orderID,
		DiscountAmount: amount,
		RedeemedAt:     now,
	})
	switch {
	case errors.Is(err, ErrAlreadyExists):
		metrics.CouponRedemptions.WithLabelValues("duplicate").Inc()
		utils.LogDebug("coupon %d already redeemed for order %s", couponID, orderID)
		return RedeemResult{Created: false}, nil
	case err != nil:
		metrics.CouponRedemptions.WithLabelValues("error").Inc()
		span.RecordError(err)
		return RedeemResult{}, errors.Wrap(err, "insert redemption")
	}

	metrics.CouponRedemptions.WithLabelValues("created").Inc()
	ev := events.New(events.CouponRedeemed, now)
	ev.HolderID, ev.CouponID, ev.OrderID, ev.Amount = holderID, couponID, orderID, amount
	e.events.Publish(ctx, ev)
	return RedeemResult{Created: true}, nil
}

// FindAbuse lists (holder, coupon) pairs redeemed more often than the
// per-user cap. Each one is logged as an invariant violation; nothing is
// corrected.
func (e *CouponEngine) FindAbuse(ctx context.Context) ([]models.AbuseFinding, error) {
	findings, err := e.ledger.ListOverLimit(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list over-limit redemptions")
	}
	for _, f := range findings {
		metrics.InvariantViolations.WithLabelValues(metrics.ViolationOverLimitUsage).Inc()
		utils.LogError("invariant violation: holder %s redeemed coupon %s %d times, limit %d",
			f.HolderID, f.Code, f.Redemptions, f.MaxUsesPerUser)
	}
	return findings, nil
}

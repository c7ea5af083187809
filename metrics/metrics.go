// Package metrics holds the Prometheus collectors for the checkout core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "checkout"

var (
	Reservations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_total",
		Help:      "Reserve calls by result.",
	}, []string{"result"})

	Releases = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "releases_total",
		Help:      "Holds removed, by reason (explicit, expired, confirmed).",
	}, []string{"reason"})

	SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_runs_total",
		Help:      "Completed expiry sweeps.",
	})

	SweepStockRestored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_stock_restored_total",
		Help:      "Units returned to the ledger by the sweep.",
	})

	CouponValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coupon_validations_total",
		Help:      "Coupon validations by result (valid or the rejection reason).",
	}, []string{"result"})

	CouponRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coupon_redemptions_total",
		Help:      "Redeem calls by result.",
	}, []string{"result"})

	InvariantViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invariant_violations_total",
		Help:      "Observed states that should be impossible.",
	}, []string{"kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Invariant violation kinds.
const (
	ViolationNegativeStock  = "negative_stock"
	ViolationDuplicateHold  = "duplicate_hold"
	ViolationOverLimitUsage = "over_limit_redemption"
)

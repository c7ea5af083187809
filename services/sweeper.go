package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/utils"
)

// Sweeper drives SweepExpired on a ticker and, optionally, a slower abuse scan.
type Sweeper struct {
	reservations  *ReservationManager
	coupons       *CouponEngine
	alerter       AbuseAlerter
	interval      time.Duration
	abuseInterval time.Duration

	// reported keeps findings already alerted on so operators get one mail per pair.
	mu       sync.Mutex
	reported map[string]struct{}
}

// NewSweeper builds a sweeper. coupons or alerter may be nil, and a zero
// abuseInterval disables the abuse scan.
func NewSweeper(reservations *ReservationManager, interval time.Duration, coupons *CouponEngine, alerter AbuseAlerter, abuseInterval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = utils.DefaultSweepInterval
	}
	return &Sweeper{
		reservations:  reservations,
		coupons:       coupons,
		alerter:       alerter,
		interval:      interval,
		abuseInterval: abuseInterval,
		reported:      make(map[string]struct{}),
	}
}

// Start blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	utils.LogInfo("reservation sweeper started, interval %s", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var abuse <-chan time.Time
	if s.coupons != nil && s.abuseInterval > 0 {
		abuseTicker := time.NewTicker(s.abuseInterval)
		defer abuseTicker.Stop()
		abuse = abuseTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			utils.LogInfo("reservation sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				utils.LogError("sweep failed: %v", err)
			}
		case <-abuse:
			if _, err := s.ScanAbuse(ctx); err != nil && ctx.Err() == nil {
				utils.LogError("abuse scan failed: %v", err)
			}
		}
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	return s.reservations.SweepExpired(ctx)
}

// ScanAbuse looks for over-limit redemptions and alerts on new ones.
// It returns the findings not reported before.
func (s *Sweeper) ScanAbuse(ctx context.Context) ([]models.AbuseFinding, error) {
	if s.coupons == nil {
		return nil, nil
	}
	findings, err := s.coupons.FindAbuse(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []models.AbuseFinding
	for _, f := range findings {
		if _, seen := s.reported[findingKey(f)]; seen {
			continue
		}
		fresh = append(fresh, f)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	if s.alerter != nil {
		if err := s.alerter.AlertAbuse(ctx, fresh); err != nil {
			// Not marked as reported, so the next scan tries again.
			return fresh, err
		}
	}
	for _, f := range fresh {
		s.reported[findingKey(f)] = struct{}{}
	}
	return fresh, nil
}

func findingKey(f models.AbuseFinding) string {
	return fmt.Sprintf("%d/%s/%d", f.CouponID, f.HolderID, f.Redemptions)
}

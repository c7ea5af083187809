package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/services"
)

type redemptionKey struct {
	couponID uint
	orderID  string
}

// CouponStore implements services.CouponLedger.
type CouponStore struct {
	mu          sync.RWMutex
	nextID      uint
	coupons     map[uint]models.Coupon
	byCode      map[string]uint
	redemptions []models.CouponRedemption
	seen        map[redemptionKey]struct{}
}

func NewCouponStore() *CouponStore {
	return &CouponStore{
		coupons: make(map[uint]models.Coupon),
		byCode:  make(map[string]uint),
		seen:    make(map[redemptionKey]struct{}),
	}
}

// PutCoupon inserts or replaces a coupon by code and sets c.ID.
func (s *CouponStore) PutCoupon(_ context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Code = models.NormalizeCouponCode(c.Code)
	if id, ok := s.byCode[c.Code]; ok {
		c.ID = id
	} else if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	}
	if c.ID > s.nextID {
		s.nextID = c.ID
	}
	s.coupons[c.ID] = *c
	s.byCode[c.Code] = c.ID
	return nil
}

func (s *CouponStore) GetCoupon(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[models.NormalizeCouponCode(code)]
	if !ok {
		return nil, services.ErrCouponNotFound
	}
	c := s.coupons[id]
	return &c, nil
}

func (s *CouponStore) GetCouponByID(_ context.Context, id uint) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coupons[id]
	if !ok {
		return nil, services.ErrCouponNotFound
	}
	return &c, nil
}

func (s *CouponStore) CountRedemptions(_ context.Context, couponID uint) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.redemptions {
		if r.CouponID == couponID {
			n++
		}
	}
	return n, nil
}

func (s *CouponStore) CountHolderRedemptions(_ context.Context, couponID uint, holderID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.redemptions {
		if r.CouponID == couponID && r.HolderID == holderID {
			n++
		}
	}
	return n, nil
}

func (s *CouponStore) InsertRedemption(_ context.Context, r *models.CouponRedemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := redemptionKey{couponID: r.CouponID, orderID: r.OrderID}
	if _, dup := s.seen[key]; dup {
		return services.ErrAlreadyExists
	}
	s.seen[key] = struct{}{}
	r.ID = uint(len(s.redemptions) + 1)
	s.redemptions = append(s.redemptions, *r)
	return nil
}

func (s *CouponStore) ListOverLimit(_ context.Context) ([]models.AbuseFinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type pair struct {
		couponID uint
		holderID string
	}
	counts := make(map[pair]int)
	for _, r := range s.redemptions {
		counts[pair{r.CouponID, r.HolderID}]++
	}

	var out []models.AbuseFinding
	for p, n := range counts {
		c, ok := s.coupons[p.couponID]
		if !ok || n <= c.PerUserLimit() {
			continue
		}
		out = append(out, models.AbuseFinding{
			CouponID:       p.couponID,
			Code:           c.Code,
			HolderID:       p.holderID,
			Redemptions:    n,
			MaxUsesPerUser: c.PerUserLimit(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CouponID != out[j].CouponID {
			return out[i].CouponID < out[j].CouponID
		}
		return out[i].HolderID < out[j].HolderID
	})
	return out, nil
}

var _ services.CouponLedger = (*CouponStore)(nil)

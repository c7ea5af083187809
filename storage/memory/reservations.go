// Package memory keeps the ledger, holds and coupons in process memory.
// Each unit has its own lock, so operations on different units never wait
// on each other.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/services"
)

type unit struct {
	mu        sync.Mutex
	available int
	holds     map[string]models.Reservation // by holder
}

// Store implements services.InventoryLedger and services.ReservationStore.
type Store struct {
	mu     sync.RWMutex
	units  map[string]*unit
	nextID atomic.Uint64
}

func NewStore() *Store {
	return &Store{units: make(map[string]*unit)}
}

func (s *Store) lookup(id string) *unit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.units[id]
}

// PutInventory creates the unit or overwrites its available count.
func (s *Store) PutInventory(_ context.Context, item models.InventoryItem) error {
	s.mu.Lock()
	u, ok := s.units[item.UnitID]
	if !ok {
		u = &unit{holds: make(map[string]models.Reservation)}
		s.units[item.UnitID] = u
	}
	s.mu.Unlock()

	u.mu.Lock()
	u.available = item.Available
	u.mu.Unlock()
	return nil
}

func (s *Store) GetAvailable(_ context.Context, unitID string) (int, error) {
	u := s.lookup(unitID)
	if u == nil {
		return 0, services.ErrUnitNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.available, nil
}

func (s *Store) AdjustAvailable(_ context.Context, unitID string, delta int) (int, error) {
	u := s.lookup(unitID)
	if u == nil {
		return 0, services.ErrUnitNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.available+delta < 0 {
		return u.available, services.ErrWouldGoNegative
	}
	u.available += delta
	return u.available, nil
}

func (s *Store) Hold(_ context.Context, holderID, unitID string, quantity int, now, expiresAt time.Time) (services.HoldResult, error) {
	u := s.lookup(unitID)
	if u == nil {
		return services.HoldResult{}, services.ErrUnitNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	prev, had := u.holds[holderID]
	if u.available+prev.Quantity < quantity {
		return services.HoldResult{}, services.ErrInsufficientStock
	}
	u.available += prev.Quantity - quantity

	r := models.Reservation{
		ID:        prev.ID,
		HolderID:  holderID,
		UnitID:    unitID,
		Quantity:  quantity,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if !had {
		r.ID = uint(s.nextID.Add(1))
	}
	u.holds[holderID] = r
	return services.HoldResult{Reservation: r, Previous: prev.Quantity, Available: u.available}, nil
}

func (s *Store) Get(_ context.Context, holderID, unitID string) (models.Reservation, error) {
	u := s.lookup(unitID)
	if u == nil {
		return models.Reservation{}, services.ErrReservationNotFound
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	r, ok := u.holds[holderID]
	if !ok {
		return models.Reservation{}, services.ErrReservationNotFound
	}
	return r, nil
}

func (s *Store) Release(_ context.Context, holderID, unitID string) (int, error) {
	return s.remove(holderID, unitID, true, nil), nil
}

func (s *Store) Consume(_ context.Context, holderID, unitID string) (int, error) {
	return s.remove(holderID, unitID, false, nil), nil
}

func (s *Store) ReleaseExpired(_ context.Context, holderID, unitID string, now time.Time) (int, error) {
	return s.remove(holderID, unitID, true, func(r models.Reservation) bool { return r.Expired(now) }), nil
}

// remove deletes the hold if present and cond (when set) allows it, and
// returns its quantity.
func (s *Store) remove(holderID, unitID string, restore bool, cond func(models.Reservation) bool) int {
	u := s.lookup(unitID)
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	r, ok := u.holds[holderID]
	if !ok || (cond != nil && !cond(r)) {
		return 0
	}
	delete(u.holds, holderID)
	if restore {
		u.available += r.Quantity
	}
	return r.Quantity
}

func (s *Store) ListExpired(_ context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	s.mu.RLock()
	units := make([]*unit, 0, len(s.units))
	for _, u := range s.units {
		units = append(units, u)
	}
	s.mu.RUnlock()

	var out []models.Reservation
	for _, u := range units {
		u.mu.Lock()
		for _, r := range u.holds {
			if r.Expired(now) {
				out = append(out, r)
			}
		}
		u.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ services.InventoryLedger  = (*Store)(nil)
	_ services.ReservationStore = (*Store)(nil)
)

// Package redisstore keeps the ledger and holds in Redis. Every compound
// operation is a single Lua script, so it runs atomically on the server.
// Keys carry the unit in a hash tag so one unit's keys share a cluster slot.
package redisstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/services"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	statusOK       = 1
	statusShort    = -1
	statusNoUnit   = -2
	defaultPrefix  = "checkout"
	unitsSetSuffix = "units"
)

// Store implements services.InventoryLedger and services.ReservationStore.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New wraps client. An empty prefix uses "checkout".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) stockKey(unitID string) string {
	return fmt.Sprintf("%s:stock:{%s}", s.prefix, unitID)
}

func (s *Store) holdKey(unitID, holderID string) string {
	return fmt.Sprintf("%s:hold:{%s}:%s", s.prefix, unitID, holderID)
}

func (s *Store) expiryKey(unitID string) string {
	return fmt.Sprintf("%s:expiry:{%s}", s.prefix, unitID)
}

func (s *Store) unitsKey() string {
	return s.prefix + ":" + unitsSetSuffix
}

// PutInventory sets the available count and registers the unit.
func (s *Store) PutInventory(ctx context.Context, item models.InventoryItem) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.stockKey(item.UnitID), item.Available, 0)
	pipe.SAdd(ctx, s.unitsKey(), item.UnitID)
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "put inventory")
}

func (s *Store) GetAvailable(ctx context.Context, unitID string) (int, error) {
	n, err := s.client.Get(ctx, s.stockKey(unitID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, services.ErrUnitNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "get available")
	}
	return n, nil
}

func (s *Store) AdjustAvailable(ctx context.Context, unitID string, delta int) (int, error) {
	out, err := adjustScript.Run(ctx, s.client, []string{s.stockKey(unitID)}, delta).Int64Slice()
	if err != nil {
		return 0, errors.Wrap(err, "adjust available")
	}
	switch out[0] {
	case statusNoUnit:
		return 0, services.ErrUnitNotFound
	case statusShort:
		return int(out[1]), services.ErrWouldGoNegative
	}
	return int(out[1]), nil
}

func (s *Store) Hold(ctx context.Context, holderID, unitID string, quantity int, now, expiresAt time.Time) (services.HoldResult, error) {
	keys := []string{s.stockKey(unitID), s.holdKey(unitID, holderID), s.expiryKey(unitID)}
	out, err := holdScript.Run(ctx, s.client, keys, holderID, quantity, now.UnixMilli(), expiresAt.UnixMilli()).Int64Slice()
	if err != nil {
		return services.HoldResult{}, errors.Wrap(err, "hold")
	}
	switch out[0] {
	case statusNoUnit:
		return services.HoldResult{}, services.ErrUnitNotFound
	case statusShort:
		return services.HoldResult{}, services.ErrInsufficientStock
	case statusOK:
	default:
		return services.HoldResult{}, errors.Errorf("hold script returned status %d", out[0])
	}
	return services.HoldResult{
		Reservation: models.Reservation{
			HolderID:  holderID,
			UnitID:    unitID,
			Quantity:  quantity,
			CreatedAt: fromMillis(now.UnixMilli()),
			ExpiresAt: fromMillis(expiresAt.UnixMilli()),
		},
		Previous:  int(out[1]),
		Available: int(out[2]),
	}, nil
}

func (s *Store) Get(ctx context.Context, holderID, unitID string) (models.Reservation, error) {
	fields, err := s.client.HGetAll(ctx, s.holdKey(unitID, holderID)).Result()
	if err != nil {
		return models.Reservation{}, errors.Wrap(err, "get reservation")
	}
	if len(fields) == 0 {
		return models.Reservation{}, services.ErrReservationNotFound
	}
	return parseHold(holderID, unitID, fields)
}

func (s *Store) Release(ctx context.Context, holderID, unitID string) (int, error) {
	return s.remove(ctx, holderID, unitID, true, "")
}

func (s *Store) Consume(ctx context.Context, holderID, unitID string) (int, error) {
	return s.remove(ctx, holderID, unitID, false, "")
}

func (s *Store) ReleaseExpired(ctx context.Context, holderID, unitID string, now time.Time) (int, error) {
	return s.remove(ctx, holderID, unitID, true, strconv.FormatInt(now.UnixMilli(), 10))
}

func (s *Store) remove(ctx context.Context, holderID, unitID string, restore bool, cutoff string) (int, error) {
	flag := "0"
	if restore {
		flag = "1"
	}
	keys := []string{s.stockKey(unitID), s.holdKey(unitID, holderID), s.expiryKey(unitID)}
	n, err := removeScript.Run(ctx, s.client, keys, holderID, flag, cutoff).Int()
	if err != nil {
		return 0, errors.Wrap(err, "remove reservation")
	}
	return n, nil
}

func (s *Store) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	units, err := s.client.SMembers(ctx, s.unitsKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list units")
	}

	max := strconv.FormatInt(now.UnixMilli(), 10)
	var out []models.Reservation
	for _, unitID := range units {
		by := &redis.ZRangeBy{Min: "-inf", Max: max}
		if limit > 0 {
			by.Count = int64(limit)
		}
		holders, err := s.client.ZRangeByScore(ctx, s.expiryKey(unitID), by).Result()
		if err != nil {
			return nil, errors.Wrap(err, "list expired holders")
		}
		for _, holderID := range holders {
			r, err := s.Get(ctx, holderID, unitID)
			if errors.Is(err, services.ErrReservationNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func parseHold(holderID, unitID string, fields map[string]string) (models.Reservation, error) {
	qty, err := strconv.Atoi(fields["qty"])
	if err != nil {
		return models.Reservation{}, errors.Wrapf(err, "hold %s/%s: bad qty", holderID, unitID)
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return models.Reservation{}, errors.Wrapf(err, "hold %s/%s: bad created_at", holderID, unitID)
	}
	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return models.Reservation{}, errors.Wrapf(err, "hold %s/%s: bad expires_at", holderID, unitID)
	}
	return models.Reservation{
		HolderID:  holderID,
		UnitID:    unitID,
		Quantity:  qty,
		CreatedAt: fromMillis(created),
		ExpiresAt: fromMillis(expires),
	}, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var (
	_ services.InventoryLedger  = (*Store)(nil)
	_ services.ReservationStore = (*Store)(nil)
)

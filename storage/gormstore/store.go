// Package gormstore persists the ledger, holds and coupons through gorm.
// It runs on both the postgres and mysql dialects.
package gormstore

import (
	"context"
	"strings"
	"time"

	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/services"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements services.InventoryLedger, services.ReservationStore and
// services.CouponLedger.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Without TranslateError the driver error text is all we have.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// adjust changes available by delta in one conditional statement. It never
// lets available drop below zero.
func adjust(tx *gorm.DB, unitID string, delta int) (int, error) {
	if delta != 0 {
		res := tx.Model(&models.InventoryItem{}).
			Where("unit_id = ? AND available + ? >= 0", unitID, delta).
			Updates(map[string]interface{}{
				"available":  gorm.Expr("available + ?", delta),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return 0, errors.Wrap(res.Error, "adjust available")
		}
		if res.RowsAffected == 0 {
			var item models.InventoryItem
			err := tx.Where("unit_id = ?", unitID).Take(&item).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, services.ErrUnitNotFound
			}
			if err != nil {
				return 0, errors.Wrap(err, "read available")
			}
			return item.Available, services.ErrWouldGoNegative
		}
	}

	var item models.InventoryItem
	err := tx.Where("unit_id = ?", unitID).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, services.ErrUnitNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "read available")
	}
	return item.Available, nil
}

// PutInventory upserts a ledger row.
func (s *Store) PutInventory(ctx context.Context, item models.InventoryItem) error {
	item.UpdatedAt = time.Now().UTC()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "unit_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"available", "updated_at"}),
	}).Create(&item).Error
	return errors.Wrap(err, "put inventory")
}

func (s *Store) GetAvailable(ctx context.Context, unitID string) (int, error) {
	var item models.InventoryItem
	err := s.db.WithContext(ctx).Where("unit_id = ?", unitID).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, services.ErrUnitNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "get available")
	}
	return item.Available, nil
}

func (s *Store) AdjustAvailable(ctx context.Context, unitID string, delta int) (int, error) {
	var n int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = adjust(tx, unitID, delta)
		return err
	})
	return n, err
}

func (s *Store) Hold(ctx context.Context, holderID, unitID string, quantity int, now, expiresAt time.Time) (services.HoldResult, error) {
	var result services.HoldResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev models.Reservation
		err := forUpdate(tx).Where("holder_id = ? AND unit_id = ?", holderID, unitID).Take(&prev).Error
		had := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrap(err, "lock reservation")
		}

		available, err := adjust(tx, unitID, prev.Quantity-quantity)
		if errors.Is(err, services.ErrWouldGoNegative) {
			return services.ErrInsufficientStock
		}
		if err != nil {
			return err
		}

		r := models.Reservation{
			HolderID:  holderID,
			UnitID:    unitID,
			Quantity:  quantity,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		}
		if had {
			r.ID = prev.ID
			err = tx.Model(&models.Reservation{}).Where("id = ?", prev.ID).Updates(map[string]interface{}{
				"quantity":   quantity,
				"created_at": now,
				"expires_at": expiresAt,
			}).Error
			if err != nil {
				return errors.Wrap(err, "renew reservation")
			}
		} else if err := tx.Create(&r).Error; err != nil {
			if isUniqueViolation(err) {
				// Another first-time hold for the same pair committed first.
				return services.ErrConcurrentUpdate
			}
			return errors.Wrap(err, "create reservation")
		}

		result = services.HoldResult{Reservation: r, Previous: prev.Quantity, Available: available}
		return nil
	})
	return result, err
}

func (s *Store) Get(ctx context.Context, holderID, unitID string) (models.Reservation, error) {
	var r models.Reservation
	err := s.db.WithContext(ctx).Where("holder_id = ? AND unit_id = ?", holderID, unitID).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r, services.ErrReservationNotFound
	}
	if err != nil {
		return r, errors.Wrap(err, "get reservation")
	}
	return r, nil
}

func (s *Store) Release(ctx context.Context, holderID, unitID string) (int, error) {
	return s.remove(ctx, holderID, unitID, true, nil)
}

func (s *Store) Consume(ctx context.Context, holderID, unitID string) (int, error) {
	return s.remove(ctx, holderID, unitID, false, nil)
}

func (s *Store) ReleaseExpired(ctx context.Context, holderID, unitID string, now time.Time) (int, error) {
	return s.remove(ctx, holderID, unitID, true, &now)
}

// remove locks and deletes the row, restoring its quantity when asked. With
// expiredAt set, a row whose expiry moved past it is left in place.
func (s *Store) remove(ctx context.Context, holderID, unitID string, restore bool, expiredAt *time.Time) (int, error) {
	var qty int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := forUpdate(tx).Where("holder_id = ? AND unit_id = ?", holderID, unitID)
		if expiredAt != nil {
			q = q.Where("expires_at <= ?", *expiredAt)
		}
		var r models.Reservation
		err := q.Take(&r).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "lock reservation")
		}

		if err := tx.Delete(&models.Reservation{}, r.ID).Error; err != nil {
			return errors.Wrap(err, "delete reservation")
		}
		if restore {
			if _, err := adjust(tx, unitID, r.Quantity); err != nil {
				return err
			}
		}
		qty = r.Quantity
		return nil
	})
	if err != nil {
		return 0, err
	}
	return qty, nil
}

func (s *Store) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	var rows []models.Reservation
	q := s.db.WithContext(ctx).Where("expires_at <= ?", now).Order("expires_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list expired reservations")
	}
	return rows, nil
}

var (
	_ services.InventoryLedger  = (*Store)(nil)
	_ services.ReservationStore = (*Store)(nil)
	_ services.CouponLedger     = (*Store)(nil)
)

package gormstore

import (
	"context"

	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/services"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const overLimitQuery = `
SELECT r.coupon_id, c.code, r.holder_id, COUNT(*) AS redemptions,
       CASE WHEN c.max_uses_per_user > 0 THEN c.max_uses_per_user ELSE 1 END AS max_uses_per_user
FROM coupon_redemptions r
JOIN coupons c ON c.id = r.coupon_id
GROUP BY r.coupon_id, c.code, r.holder_id, c.max_uses_per_user
HAVING COUNT(*) > CASE WHEN c.max_uses_per_user > 0 THEN c.max_uses_per_user ELSE 1 END
ORDER BY r.coupon_id, r.holder_id`

// PutCoupon upserts a coupon by code and sets c.ID.
func (s *Store) PutCoupon(ctx context.Context, c *models.Coupon) error {
	c.Code = models.NormalizeCouponCode(c.Code)
	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"discount_type", "value", "min_order_value", "max_uses_global",
			"max_uses_per_user", "expiration_date", "is_active", "eligibility_rule", "updated_at",
		}),
	}).Create(c).Error
	if err != nil {
		return errors.Wrap(err, "put coupon")
	}
	// mysql does not report the id of an updated row.
	var stored models.Coupon
	if err := db.Select("id").Where("code = ?", c.Code).Take(&stored).Error; err != nil {
		return errors.Wrap(err, "reload coupon")
	}
	c.ID = stored.ID
	return nil
}

func (s *Store) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := s.db.WithContext(ctx).Where("code = ?", models.NormalizeCouponCode(code)).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrCouponNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get coupon")
	}
	return &c, nil
}

func (s *Store) GetCouponByID(ctx context.Context, id uint) (*models.Coupon, error) {
	var c models.Coupon
	err := s.db.WithContext(ctx).Take(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrCouponNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get coupon")
	}
	return &c, nil
}

func (s *Store) CountRedemptions(ctx context.Context, couponID uint) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.CouponRedemption{}).
		Where("coupon_id = ?", couponID).Count(&n).Error
	return int(n), errors.Wrap(err, "count redemptions")
}

func (s *Store) CountHolderRedemptions(ctx context.Context, couponID uint, holderID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.CouponRedemption{}).
		Where("coupon_id = ? AND holder_id = ?", couponID, holderID).Count(&n).Error
	return int(n), errors.Wrap(err, "count holder redemptions")
}

func (s *Store) InsertRedemption(ctx context.Context, r *models.CouponRedemption) error {
	err := s.db.WithContext(ctx).Create(r).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return services.ErrAlreadyExists
	}
	return errors.Wrap(err, "insert redemption")
}

func (s *Store) ListOverLimit(ctx context.Context) ([]models.AbuseFinding, error) {
	var out []models.AbuseFinding
	if err := s.db.WithContext(ctx).Raw(overLimitQuery).Scan(&out).Error; err != nil {
		return nil, errors.Wrap(err, "list over-limit redemptions")
	}
	return out, nil
}

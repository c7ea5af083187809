package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how Coupon.Value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Coupon is a discount rule owned by the admin collaborator. The core only reads it.
type Coupon struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Code         string          `gorm:"size:64;uniqueIndex;not null" json:"code"`
	DiscountType DiscountType    `gorm:"size:16;not null" json:"discount_type"`
	Value        decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"value"` // percent 0-100, or cents for FIXED
	// MinOrderValue in cents; nil means no minimum.
	MinOrderValue *int64 `json:"min_order_value,omitempty"`
	// MaxUsesGlobal nil means unlimited.
	MaxUsesGlobal   *int      `json:"max_uses_global,omitempty"`
	MaxUsesPerUser  int       `gorm:"not null;default:1" json:"max_uses_per_user"`
	ExpirationDate  time.Time `json:"expiration_date"`
	IsActive        bool      `gorm:"not null" json:"is_active"`
	EligibilityRule string    `gorm:"type:text" json:"eligibility_rule,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NormalizeCouponCode returns the canonical stored form of a code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PerUserLimit returns MaxUsesPerUser, treating unset as 1.
func (c *Coupon) PerUserLimit() int {
	if c.MaxUsesPerUser <= 0 {
		return 1
	}
	return c.MaxUsesPerUser
}

// CouponRedemption records that a coupon was applied to a confirmed order.
type CouponRedemption struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CouponID       uint      `gorm:"not null;uniqueIndex:idx_redemption_coupon_order;index:idx_redemption_coupon_holder" json:"coupon_id"`
	HolderID       string    `gorm:"size:128;not null;index:idx_redemption_coupon_holder" json:"holder_id"`
	OrderID        string    `gorm:"size:128;not null;uniqueIndex:idx_redemption_coupon_order" json:"order_id"`
	DiscountAmount int64     `gorm:"not null" json:"discount_amount"`
	RedeemedAt     time.Time `gorm:"not null" json:"redeemed_at"`
}

// AbuseFinding is a (holder, coupon) pair redeemed more often than the per-user cap allows.
type AbuseFinding struct {
	CouponID       uint   `json:"coupon_id"`
	Code           string `json:"code"`
	HolderID       string `json:"holder_id"`
	Redemptions    int    `json:"redemptions"`
	MaxUsesPerUser int    `json:"max_uses_per_user"`
}

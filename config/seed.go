package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Govind-619/checkout-core/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Seed is a fixture of inventory and coupons for local environments.
type Seed struct {
	Inventory []SeedItem   `yaml:"inventory"`
	Coupons   []SeedCoupon `yaml:"coupons"`
}

type SeedItem struct {
	UnitID    string `yaml:"unit_id"`
	Available int    `yaml:"available"`
}

type SeedCoupon struct {
	Code            string    `yaml:"code"`
	DiscountType    string    `yaml:"discount_type"`
	Value           string    `yaml:"value"`
	MinOrderValue   *int64    `yaml:"min_order_value"`
	MaxUsesGlobal   *int      `yaml:"max_uses_global"`
	MaxUsesPerUser  int       `yaml:"max_uses_per_user"`
	ExpirationDate  time.Time `yaml:"expiration_date"`
	Inactive        bool      `yaml:"inactive"`
	EligibilityRule string    `yaml:"eligibility_rule"`
}

// InventorySeeder receives seeded stock levels.
type InventorySeeder interface {
	PutInventory(ctx context.Context, item models.InventoryItem) error
}

// CouponSeeder receives seeded coupon definitions.
type CouponSeeder interface {
	PutCoupon(ctx context.Context, coupon *models.Coupon) error
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %v", err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(raw []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %v", err)
	}
	return &s, nil
}

// CouponModels converts the seeded coupon entries to models.
func (s *Seed) CouponModels() ([]models.Coupon, error) {
	out := make([]models.Coupon, 0, len(s.Coupons))
	for _, sc := range s.Coupons {
		value, err := decimal.NewFromString(sc.Value)
		if err != nil {
			return nil, fmt.Errorf("coupon %s: invalid value %q", sc.Code, sc.Value)
		}
		dt := models.DiscountType(sc.DiscountType)
		if dt != models.DiscountPercentage && dt != models.DiscountFixed {
			return nil, fmt.Errorf("coupon %s: unknown discount_type %q", sc.Code, sc.DiscountType)
		}
		perUser := sc.MaxUsesPerUser
		if perUser == 0 {
			perUser = 1
		}
		out = append(out, models.Coupon{
			Code:            models.NormalizeCouponCode(sc.Code),
			DiscountType:    dt,
			Value:           value,
			MinOrderValue:   sc.MinOrderValue,
			MaxUsesGlobal:   sc.MaxUsesGlobal,
			MaxUsesPerUser:  perUser,
			ExpirationDate:  sc.ExpirationDate,
			IsActive:        !sc.Inactive,
			EligibilityRule: sc.EligibilityRule,
		})
	}
	return out, nil
}

// ApplySeed writes every seeded row. Inventory and coupons may live in
// different backends.
func ApplySeed(ctx context.Context, s *Seed, inventory InventorySeeder, coupons CouponSeeder) error {
	for _, item := range s.Inventory {
		if err := inventory.PutInventory(ctx, models.InventoryItem{UnitID: item.UnitID, Available: item.Available}); err != nil {
			return fmt.Errorf("seed inventory %s: %v", item.UnitID, err)
		}
	}
	rows, err := s.CouponModels()
	if err != nil {
		return err
	}
	for i := range rows {
		if err := coupons.PutCoupon(ctx, &rows[i]); err != nil {
			return fmt.Errorf("seed coupon %s: %v", rows[i].Code, err)
		}
	}
	return nil
}

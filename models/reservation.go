package models

import "time"

// InventoryItem holds the available stock for one sellable unit. Available
// already has every live reservation subtracted.
type InventoryItem struct {
	UnitID    string    `gorm:"primaryKey;size:128" json:"unit_id"`
	Available int       `gorm:"not null;default:0" json:"available"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reservation is a temporary hold of Quantity units by one holder.
// At most one row exists per (HolderID, UnitID).
type Reservation struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	HolderID  string    `gorm:"size:128;not null;uniqueIndex:idx_reservation_holder_unit" json:"holder_id"`
	UnitID    string    `gorm:"size:128;not null;uniqueIndex:idx_reservation_holder_unit" json:"unit_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

// Expired reports whether the hold is no longer live at now.
func (r Reservation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// RemainingSeconds returns whole seconds left, rounded up, never negative.
func (r Reservation) RemainingSeconds(now time.Time) int {
	d := r.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

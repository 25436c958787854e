// Package domain contains the versioned rate catalogue model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Category is the billable service family a rate prices.
type Category string

const (
	CategoryStorage    Category = "Storage"
	CategoryHandling   Category = "Handling"
	CategoryBlasting   Category = "Blasting"
	CategoryRepack     Category = "Repack"
	CategorySplit      Category = "Split"
	CategoryLabeling   Category = "Labeling"
	CategoryFumigation Category = "Fumigation"
	CategoryCycleCount Category = "CycleCount"
	CategoryCrossDock  Category = "CrossDock"
	CategorySurcharge  Category = "Surcharge"
	CategoryKitting    Category = "Kitting"
)

var categories = map[Category]struct{}{
	CategoryStorage: {}, CategoryHandling: {}, CategoryBlasting: {}, CategoryRepack: {},
	CategorySplit: {}, CategoryLabeling: {}, CategoryFumigation: {}, CategoryCycleCount: {},
	CategoryCrossDock: {}, CategorySurcharge: {}, CategoryKitting: {},
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// UOM is the billing denomination of a rate.
type UOM string

const (
	UOMPallet   UOM = "Pallet"
	UOMKg       UOM = "Kg"
	UOMDay      UOM = "Day"
	UOMCycle    UOM = "Cycle"
	UOMEach     UOM = "Each"
	UOMHour     UOM = "Hour"
	UOMShipment UOM = "Shipment"
	UOMPercent  UOM = "Percent"
)

var uoms = map[UOM]struct{}{
	UOMPallet: {}, UOMKg: {}, UOMDay: {}, UOMCycle: {},
	UOMEach: {}, UOMHour: {}, UOMShipment: {}, UOMPercent: {},
}

func (u UOM) Valid() bool {
	_, ok := uoms[u]
	return ok
}

// Rate is one version of a price rule. Rows are never updated in place
// except to close their window and deactivate them.
type Rate struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	AccountID     *snowflake.ID   `json:"account_id,omitempty" gorm:"index:idx_rates_lookup"`
	Category      Category        `json:"category" gorm:"type:varchar(32);not null;index:idx_rates_lookup"`
	UOM           UOM             `json:"uom" gorm:"column:uom;type:varchar(16);not null;index:idx_rates_lookup"`
	Tier          *string         `json:"tier,omitempty" gorm:"type:varchar(64);index:idx_rates_lookup"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:decimal(18,6);not null"`
	EffectiveFrom time.Time       `json:"effective_from" gorm:"not null"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
	Active        bool            `json:"active" gorm:"not null;default:true"`
	SupersedesID  *snowflake.ID   `json:"supersedes_id,omitempty"`
	DeactivatedAt *time.Time      `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Rate) TableName() string { return "rates" }

// Covers reports whether at falls inside [EffectiveFrom, EffectiveTo).
func (r Rate) Covers(at time.Time) bool {
	if at.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || at.Before(*r.EffectiveTo)
}

// Overlaps reports whether the rate window intersects [from, to). A nil to is open-ended.
func (r Rate) Overlaps(from time.Time, to *time.Time) bool {
	if to != nil && !r.EffectiveFrom.Before(*to) {
		return false
	}
	if r.EffectiveTo != nil && !from.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

// Key identifies the catalogue slot a rate occupies.
type Key struct {
	AccountID *snowflake.ID
	Category  Category
	UOM       UOM
	Tier      *string
}

func (r Rate) Key() Key {
	return Key{AccountID: r.AccountID, Category: r.Category, UOM: r.UOM, Tier: r.Tier}
}

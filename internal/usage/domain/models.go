// Package domain contains the operational read models and usage buckets
// consumed by the billing run.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// StorageDailyOccupancy is one end-of-day occupancy snapshot for an account in a zone.
type StorageDailyOccupancy struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	AccountID   snowflake.ID    `gorm:"not null;index:idx_occupancy_account_day"`
	Zone        string          `gorm:"type:text;not null"`
	Day         time.Time       `gorm:"not null;index:idx_occupancy_account_day"`
	PalletCount int64           `gorm:"not null;default:0"`
	WeightKg    decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
}

func (StorageDailyOccupancy) TableName() string { return "storage_daily_occupancy" }

type ReceivingLine struct {
	ID         snowflake.ID    `gorm:"primaryKey"`
	AccountID  snowflake.ID    `gorm:"not null;index"`
	MaterialID *snowflake.ID   `gorm:""`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	WeightKg   decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	ReceivedAt time.Time       `gorm:"not null;index"`
}

func (ReceivingLine) TableName() string { return "receiving_lines" }

type PickConfirmation struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	AccountID snowflake.ID    `gorm:"not null;index"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	PickedAt  time.Time       `gorm:"not null;index"`
}

func (PickConfirmation) TableName() string { return "pick_confirmations" }

type WithdrawalLine struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	AccountID snowflake.ID    `gorm:"not null;index"`
	WeightKg  decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	ShippedAt time.Time       `gorm:"not null;index"`
}

func (WithdrawalLine) TableName() string { return "withdrawal_lines" }

type VASType string

const (
	VASBlasting   VASType = "Blasting"
	VASRepack     VASType = "Repack"
	VASSplit      VASType = "Split"
	VASLabeling   VASType = "Labeling"
	VASFumigation VASType = "Fumigation"
	VASCycleCount VASType = "CycleCount"
	VASCrossDock  VASType = "CrossDock"
	VASSurcharge  VASType = "Surcharge"
	VASKitting    VASType = "Kitting"
)

type VASStatus string

const (
	VASStatusPending   VASStatus = "PENDING"
	VASStatusCompleted VASStatus = "COMPLETED"
	VASStatusCancelled VASStatus = "CANCELLED"
)

type LineDirection string

const (
	LineInput  LineDirection = "INPUT"
	LineOutput LineDirection = "OUTPUT"
)

// VASTransaction is a committed value-added service record with its input and output lines.
type VASTransaction struct {
	ID          snowflake.ID         `gorm:"primaryKey"`
	AccountID   snowflake.ID         `gorm:"not null;index"`
	Type        VASType              `gorm:"type:text;not null"`
	Status      VASStatus            `gorm:"type:text;not null;default:'PENDING'"`
	PerformedAt time.Time            `gorm:"not null;index"`
	Lines       []VASTransactionLine `gorm:"foreignKey:TransactionID"`
}

func (VASTransaction) TableName() string { return "vas_transactions" }

type VASTransactionLine struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	TransactionID snowflake.ID    `gorm:"not null;index"`
	Direction     LineDirection   `gorm:"type:text;not null"`
	MaterialID    *snowflake.ID   `gorm:""`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	WeightKg      decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
}

func (VASTransactionLine) TableName() string { return "vas_transaction_lines" }

func (l VASTransactionLine) HasMaterial() bool { return l.MaterialID != nil }

func (t VASTransaction) InputLines() []VASTransactionLine {
	return t.linesFor(LineInput)
}

func (t VASTransaction) OutputLines() []VASTransactionLine {
	return t.linesFor(LineOutput)
}

func (t VASTransaction) linesFor(direction LineDirection) []VASTransactionLine {
	out := make([]VASTransactionLine, 0, len(t.Lines))
	for _, line := range t.Lines {
		if line.Direction == direction {
			out = append(out, line)
		}
	}
	return out
}

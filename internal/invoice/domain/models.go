// Package domain contains the invoice aggregate and its lifecycle.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusFinalized InvoiceStatus = "FINALIZED"
)

// Invoice is the billing result for one account and period.
type Invoice struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	AccountID   snowflake.ID      `gorm:"not null;uniqueIndex:ux_invoices_account_period,priority:1" json:"account_id"`
	PeriodStart time.Time         `gorm:"not null;uniqueIndex:ux_invoices_account_period,priority:2" json:"period_start"`
	PeriodEnd   time.Time         `gorm:"not null;uniqueIndex:ux_invoices_account_period,priority:3" json:"period_end"`
	AsOf        time.Time         `gorm:"not null" json:"as_of"`
	Status      InvoiceStatus     `gorm:"type:text;not null;default:'DRAFT'" json:"status"`
	TotalAmount decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"total_amount"`
	FinalizedAt *time.Time        `gorm:"" json:"finalized_at,omitempty"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	Lines       []InvoiceLine     `gorm:"foreignKey:InvoiceID" json:"lines"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceLine is one priced usage bucket. UnitPrice is copied from the rate
// so the line stays stable after the rate is superseded.
type InvoiceLine struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Position    int             `gorm:"not null" json:"position"`
	Kind        string          `gorm:"type:text;not null" json:"kind"`
	Category    string          `gorm:"type:text;not null" json:"category"`
	UOM         string          `gorm:"column:uom;type:text;not null" json:"uom"`
	Tier        *string         `gorm:"type:text" json:"tier,omitempty"`
	Zone        string          `gorm:"type:text" json:"zone,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Description string          `gorm:"type:text" json:"description"`
	RateID      *snowflake.ID   `gorm:"" json:"rate_id,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceLine) TableName() string { return "invoice_lines" }

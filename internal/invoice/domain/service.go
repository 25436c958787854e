package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	Build(ctx context.Context, req BuildRequest) (*Invoice, error)
	Persist(ctx context.Context, invoice *Invoice) error
	GetByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	FindForPeriod(ctx context.Context, accountID snowflake.ID, start, end time.Time) (*Invoice, error)
	List(ctx context.Context, accountID snowflake.ID) ([]*Invoice, error)
}

// LineInput is a priced charge ready to become an invoice line.
type LineInput struct {
	Kind        string
	Category    string
	UOM         string
	Tier        *string
	Zone        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Description string
	RateID      snowflake.ID
}

type BuildRequest struct {
	AccountID   snowflake.ID
	PeriodStart time.Time
	PeriodEnd   time.Time
	AsOf        time.Time
	Lines       []LineInput
	Metadata    map[string]any
}

var (
	ErrInvalidAccount          = errors.New("invalid_account")
	ErrInvalidPeriod           = errors.New("invalid_period")
	ErrInvalidLine             = errors.New("invalid_invoice_line")
	ErrInvoiceNotDraft         = errors.New("invoice_not_draft")
	ErrInvoiceAlreadyFinalized = errors.New("invoice_already_finalized")
	ErrInvoiceNotFinalized     = errors.New("invoice_not_finalized")
	ErrInvoiceExists           = errors.New("invoice_exists")
	ErrInvoiceNotFound         = errors.New("invoice_not_found")
)

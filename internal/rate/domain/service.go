package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	// Resolve returns (nil, nil) when no active rate applies.
	Resolve(ctx context.Context, req ResolveRequest) (*Rate, error)
	Create(ctx context.Context, req CreateRequest) (*Rate, error)
	Supersede(ctx context.Context, req SupersedeRequest) (*Rate, error)
	Deactivate(ctx context.Context, id snowflake.ID) error
	Get(ctx context.Context, id snowflake.ID) (*Rate, error)
	List(ctx context.Context, req ListRequest) ([]Rate, error)
}

type ResolveRequest struct {
	AccountID *snowflake.ID
	Category  Category
	UOM       UOM
	Tier      *string
	At        time.Time
}

type CreateRequest struct {
	AccountID     *snowflake.ID   `json:"account_id"`
	Category      Category        `json:"category"`
	UOM           UOM             `json:"uom"`
	Tier          *string         `json:"tier"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to"`
}

// SupersedeRequest replaces the price of an active rate from EffectiveFrom onward.
type SupersedeRequest struct {
	RateID        snowflake.ID    `json:"rate_id"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	EffectiveFrom time.Time       `json:"effective_from"`
}

type ListRequest struct {
	AccountID       *snowflake.ID
	Category        Category
	IncludeInactive bool
}

var (
	ErrInvalidCategory  = errors.New("invalid_category")
	ErrInvalidUOM       = errors.New("invalid_uom")
	ErrInvalidUnitPrice = errors.New("invalid_unit_price")
	ErrInvalidWindow    = errors.New("invalid_effective_window")
	ErrOverlappingRate  = errors.New("overlapping_rate")
	ErrRateInactive     = errors.New("rate_inactive")
	ErrNotFound         = errors.New("not_found")
)

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Reader is the read-only query surface over operational records. All
// ranges are half-open [start, end).
type Reader interface {
	DailyPalletCountByZone(ctx context.Context, accountID snowflake.ID, start, end time.Time) (map[string]int64, error)
	DailyWeightByZone(ctx context.Context, accountID snowflake.ID, start, end time.Time) (map[string]decimal.Decimal, error)
	ReceivingForAccount(ctx context.Context, accountID snowflake.ID, start, end time.Time) ([]ReceivingLine, error)
	PicksForAccount(ctx context.Context, accountID snowflake.ID, start, end time.Time) ([]PickConfirmation, error)
	WithdrawalsForAccount(ctx context.Context, accountID snowflake.ID, start, end time.Time) ([]WithdrawalLine, error)
	VASForAccount(ctx context.Context, accountID snowflake.ID, start, end time.Time) ([]VASTransaction, error)
}

// TierLookup assigns rate tiers to storage zones and usage kinds.
type TierLookup interface {
	ZoneTier(zone string) *string
	KindTier(kind string) *string
}

type Aggregator interface {
	Aggregate(ctx context.Context, req AggregateRequest) ([]Bucket, error)
}

type AggregateRequest struct {
	AccountID   snowflake.ID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Tiers       TierLookup
}

var (
	ErrInvalidAccount = errors.New("invalid_account")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrMissingTiers   = errors.New("missing_tier_table")
)

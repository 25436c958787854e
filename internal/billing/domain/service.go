// Package domain defines the invoice run contract for a single account and period.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/domain"
)

const (
	OutcomeInvoiced   = "invoiced"
	OutcomeSkipped    = "skipped"
	OutcomeInProgress = "in_progress"
	OutcomeFailed     = "failed"
)

// DefaultLockTTL bounds how long a crashed run can block its period.
const DefaultLockTTL = 15 * time.Minute

type Service interface {
	Run(ctx context.Context, req RunRequest) (*invoicedomain.Invoice, error)
	RunPeriod(ctx context.Context, start, end time.Time) (*PeriodResult, error)
}

type RunRequest struct {
	AccountID   snowflake.ID
	PeriodStart time.Time
	PeriodEnd   time.Time
	// AsOf pins rate resolution; the clock is used when nil.
	AsOf *time.Time
}

// AccountFailure is one account that could not be invoiced in a period run.
type AccountFailure struct {
	AccountID snowflake.ID
	Err       error
}

type PeriodResult struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Invoiced    []snowflake.ID
	Skipped     []snowflake.ID
	Failed      []AccountFailure
}

// Err joins every per-account failure, or returns nil.
func (r *PeriodResult) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("account %s: %w", f.AccountID, f.Err))
	}
	return errors.Join(errs...)
}

var (
	ErrInvalidAccount  = errors.New("invalid_account")
	ErrInvalidPeriod   = errors.New("invalid_period")
	ErrAccountNotFound = errors.New("account_not_found")
	ErrRunInProgress   = errors.New("billing_run_in_progress")
	ErrInvoiceExists   = invoicedomain.ErrInvoiceExists
)

// LockKey names the run lock for one account and period.
func LockKey(accountID snowflake.ID, start, end time.Time) string {
	return "coldstore:billing:" + accountID.String() + ":" +
		start.UTC().Format(time.RFC3339) + ":" + end.UTC().Format(time.RFC3339)
}

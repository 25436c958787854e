package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/db"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/db/option"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

func (r *repo) Persist(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, account_id, period_start, period_end, as_of, status,
			total_amount, finalized_at, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.AccountID,
		invoice.PeriodStart,
		invoice.PeriodEnd,
		invoice.AsOf,
		invoice.Status,
		invoice.TotalAmount,
		invoice.FinalizedAt,
		invoice.Metadata,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return invoicedomain.ErrInvoiceExists
		}
		return err
	}

	for _, line := range invoice.Lines {
		if err := insertLine(ctx, tx, line); err != nil {
			return err
		}
	}
	return nil
}

func insertLine(ctx context.Context, tx *gorm.DB, line invoicedomain.InvoiceLine) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO invoice_lines (
			id, invoice_id, position, kind, category, uom, tier, zone,
			quantity, unit_price, amount, description, rate_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		line.ID,
		line.InvoiceID,
		line.Position,
		line.Kind,
		line.Category,
		line.UOM,
		line.Tier,
		line.Zone,
		line.Quantity,
		line.UnitPrice,
		line.Amount,
		line.Description,
		line.RateID,
		line.CreatedAt,
	).Error
}

func (r *repo) store(db *gorm.DB) repository.Store[invoicedomain.Invoice] {
	return repository.NewStore[invoicedomain.Invoice](db)
}

var withLines = option.WithPreload("Lines", "position ASC")

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return r.store(db).Get(ctx, option.WithWhere("id = ?", id), withLines)
}

func (r *repo) FindForPeriod(ctx context.Context, db *gorm.DB, accountID snowflake.ID, start, end time.Time) (*invoicedomain.Invoice, error) {
	return r.store(db).Get(ctx,
		option.WithWhere("account_id = ? AND period_start = ? AND period_end = ?", accountID, start.UTC(), end.UTC()),
		withLines,
	)
}

// ListByAccount returns invoice headers, newest period first.
func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]*invoicedomain.Invoice, error) {
	return r.store(db).List(ctx, option.WithWhere("account_id = ?", accountID), option.WithOrder("period_start DESC"))
}

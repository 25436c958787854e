package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/usage/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type ReaderParam struct {
	fx.In

	DB *gorm.DB
}

// reader implements usagedomain.Reader over the warehouse operational tables.
// Sums are taken in Go so decimal precision is independent of the SQL dialect.
type reader struct {
	db *gorm.DB
}

func NewReader(p ReaderParam) usagedomain.Reader {
	return &reader{db: p.DB}
}

func (r *reader) occupancy(ctx context.Context, accountID snowflake.ID, start, end time.Time) ([]usagedomain.StorageDailyOccupancy, error) {
	var rows []usagedomain.StorageDailyOccupancy
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND day >= ? AND day < ?", accountID, start, end).
		Order("day ASC, zone ASC").
		Find(&rows).Error
	return rows, err
}

func (r *reader) DailyPalletCountByZone(ctx context.Context, accountID snowflake.ID, start, end time.Time) (map[string]int64, error) {
	rows, err := r.occupancy(ctx, accountID, start, end)
	if err != nil {
		return nil, err
	}
	out := map[string]int64{}
	for _, row := range rows {
		if row.PalletCount == 0 {
			continue
		}
		out[row.Zone] += row.PalletCount
	}
	return out, nil
}

func (r *reader) DailyWeightByZone(ctx context.Context, accountID snowflake.ID, start, end time.Time) (map[string]decimal.Decimal, error) {
	rows, err := r.occupancy(ctx, accountID, start, end)
	if err != nil {
		return nil, err
	}
	out := map[string]decimal.Decimal{}
	for _, row := range rows {
		if row.WeightKg.IsZero() {
			continue
		}
		out[row.Zone] = out[row.Zone].Add(row.WeightKg)
	}
	return out, nil
}

func (r *reader) ReceivingForAccount(ctx context.Context, accountID snowflake.ID, start, end time.Time) ([]usagedomain.ReceivingLine, error) {
	var rows []usagedomain.ReceivingLine
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND received_at >= ? AND received_at < ?", accountID, start, end).
		Order("received_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *reader) PicksForAccount(ctx context.Context, accountID snowflake.ID, start, end time.Time) ([]usagedomain.PickConfirmation, error) {
	var rows []usagedomain.PickConfirmation
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND picked_at >= ? AND picked_at < ?", accountID, start, end).
		Order("picked_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *reader) WithdrawalsForAccount(ctx context.Context, accountID snowflake.ID, start, end time.Time) ([]usagedomain.WithdrawalLine, error) {
	var rows []usagedomain.WithdrawalLine
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND shipped_at >= ? AND shipped_at < ?", accountID, start, end).
		Order("shipped_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *reader) VASForAccount(ctx context.Context, accountID snowflake.ID, start, end time.Time) ([]usagedomain.VASTransaction, error) {
	var rows []usagedomain.VASTransaction
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("account_id = ? AND performed_at >= ? AND performed_at < ?", accountID, start, end).
		Order("performed_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

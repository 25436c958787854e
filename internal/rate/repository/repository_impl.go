package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/domain"
	"gorm.io/gorm"
)

const rateColumns = `id, account_id, category, uom, tier, unit_price, effective_from, effective_to,
	 active, supersedes_id, deactivated_at, created_at, updated_at`

type repo struct{}

func Provide() ratedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rate *ratedomain.Rate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO rates (`+rateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rate.ID,
		rate.AccountID,
		rate.Category,
		rate.UOM,
		rate.Tier,
		rate.UnitPrice,
		rate.EffectiveFrom,
		rate.EffectiveTo,
		rate.Active,
		rate.SupersedesID,
		rate.DeactivatedAt,
		rate.CreatedAt,
		rate.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ratedomain.Rate, error) {
	var rate ratedomain.Rate
	err := db.WithContext(ctx).Raw(
		`SELECT `+rateColumns+` FROM rates WHERE id = ?`,
		id,
	).Scan(&rate).Error
	if err != nil {
		return nil, err
	}
	if rate.ID == 0 {
		return nil, nil
	}
	return &rate, nil
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, key ratedomain.Key) ([]ratedomain.Rate, error) {
	clauses := []string{"active = ?", "category = ?", "uom = ?"}
	args := []any{true, key.Category, key.UOM}

	if key.AccountID == nil {
		clauses = append(clauses, "account_id IS NULL")
	} else {
		clauses = append(clauses, "account_id = ?")
		args = append(args, *key.AccountID)
	}
	if key.Tier == nil {
		clauses = append(clauses, "tier IS NULL")
	} else {
		clauses = append(clauses, "tier = ?")
		args = append(args, *key.Tier)
	}

	var items []ratedomain.Rate
	err := db.WithContext(ctx).Raw(
		`SELECT `+rateColumns+` FROM rates WHERE `+strings.Join(clauses, " AND ")+
			` ORDER BY effective_from DESC, id DESC`,
		args...,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Close(ctx context.Context, db *gorm.DB, id snowflake.ID, effectiveTo, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE rates SET effective_to = ?, active = ?, deactivated_at = ?, updated_at = ? WHERE id = ?`,
		effectiveTo,
		false,
		at,
		at,
		id,
	).Error
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE rates SET active = ?, deactivated_at = ?, updated_at = ? WHERE id = ?`,
		false,
		at,
		at,
		id,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter ratedomain.ListRequest) ([]ratedomain.Rate, error) {
	clauses := []string{"1 = 1"}
	args := []any{}
	if filter.AccountID != nil {
		clauses = append(clauses, "account_id = ?")
		args = append(args, *filter.AccountID)
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if !filter.IncludeInactive {
		clauses = append(clauses, "active = ?")
		args = append(args, true)
	}

	var items []ratedomain.Rate
	err := db.WithContext(ctx).Raw(
		`SELECT `+rateColumns+` FROM rates WHERE `+strings.Join(clauses, " AND ")+
			` ORDER BY category ASC, uom ASC, effective_from ASC`,
		args...,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

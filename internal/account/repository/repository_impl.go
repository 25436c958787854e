package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/ewceniza9009/cloudpallet-sub002/internal/account/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/db/option"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() accountdomain.Repository {
	return &repo{}
}

func (r *repo) store(db *gorm.DB) repository.Store[accountdomain.Account] {
	return repository.NewStore[accountdomain.Account](db)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *accountdomain.Account) error {
	return r.store(db).Insert(ctx, account)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*accountdomain.Account, error) {
	return r.store(db).Get(ctx, option.WithWhere("id = ?", id))
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*accountdomain.Account, error) {
	return r.store(db).Get(ctx, option.WithWhere("code = ?", code))
}

func (r *repo) ListByStatus(ctx context.Context, db *gorm.DB, status accountdomain.AccountStatus) ([]*accountdomain.Account, error) {
	return r.store(db).List(ctx, option.WithWhere("status = ?", status), option.WithOrder("code ASC"))
}

// UpdateStatus returns (false, nil) when no account has the id.
func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status accountdomain.AccountStatus, at time.Time) (bool, error) {
	n, err := r.store(db).Patch(ctx, id, map[string]any{
		"status":     status,
		"updated_at": at,
	})
	return n > 0, err
}

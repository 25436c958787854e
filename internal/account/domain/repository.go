package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Account, error)
	ListByStatus(ctx context.Context, db *gorm.DB, status AccountStatus) ([]*Account, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status AccountStatus, at time.Time) (bool, error)
}

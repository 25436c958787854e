package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Persist writes the invoice and its lines; callers own the transaction.
	Persist(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindForPeriod(ctx context.Context, db *gorm.DB, accountID snowflake.ID, start, end time.Time) (*Invoice, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]*Invoice, error)
}

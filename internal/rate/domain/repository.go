package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rate *Rate) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Rate, error)
	// FindActive returns active rows matching key exactly, including a null tier or account.
	FindActive(ctx context.Context, db *gorm.DB, key Key) ([]Rate, error)
	Close(ctx context.Context, db *gorm.DB, id snowflake.ID, effectiveTo, at time.Time) error
	Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Rate, error)
}

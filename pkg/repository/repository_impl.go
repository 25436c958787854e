package repository

import (
	"context"
	"errors"

	"github.com/ewceniza9009/cloudpallet-sub002/pkg/db/option"
	"gorm.io/gorm"
)

type store[T any] struct {
	db *gorm.DB
}

// NewStore binds a store to db, which may be a transaction.
func NewStore[T any](db *gorm.DB) Store[T] {
	return &store[T]{db: db}
}

// Get returns (nil, nil) when nothing matches.
func (s *store[T]) Get(ctx context.Context, opts ...option.QueryOption) (*T, error) {
	var row T
	if err := s.query(ctx, opts).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (s *store[T]) List(ctx context.Context, opts ...option.QueryOption) ([]*T, error) {
	var rows []*T
	if err := s.query(ctx, opts).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *store[T]) Insert(ctx context.Context, rows ...*T) error {
	switch len(rows) {
	case 0:
		return nil
	case 1:
		return s.db.WithContext(ctx).Create(rows[0]).Error
	}
	return s.db.WithContext(ctx).Create(rows).Error
}

// Patch updates the given columns of one row and reports how many rows changed.
func (s *store[T]) Patch(ctx context.Context, id any, fields map[string]any) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields)
	return res.RowsAffected, res.Error
}

func (s *store[T]) query(ctx context.Context, opts []option.QueryOption) *gorm.DB {
	db := s.db.WithContext(ctx)
	for _, opt := range opts {
		db = opt.Apply(db)
	}
	return db
}

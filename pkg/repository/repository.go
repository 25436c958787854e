package repository

import (
	"context"

	"github.com/ewceniza9009/cloudpallet-sub002/pkg/db/option"
)

// Store is a generic gorm-backed table accessor. Conditions are passed as
// options so zero values are matched literally.
type Store[T any] interface {
	Get(ctx context.Context, opts ...option.QueryOption) (*T, error)
	List(ctx context.Context, opts ...option.QueryOption) ([]*T, error)
	Insert(ctx context.Context, rows ...*T) error
	Patch(ctx context.Context, id any, fields map[string]any) (int64, error)
}

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Account, error)
	Get(ctx context.Context, id snowflake.ID) (*Account, error)
	GetByCode(ctx context.Context, code string) (*Account, error)
	ListActive(ctx context.Context) ([]*Account, error)
	SetStatus(ctx context.Context, id snowflake.ID, status AccountStatus) error
}

type CreateRequest struct {
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

var (
	ErrInvalidCode   = errors.New("invalid_code")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrDuplicateCode = errors.New("duplicate_code")
	ErrNotFound      = errors.New("not_found")
)

package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/ewceniza9009/cloudpallet-sub002/internal/account/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/clock"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  accountdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  accountdomain.Repository
	clock clock.Clock
}

func New(p Params) accountdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req accountdomain.CreateRequest) (*accountdomain.Account, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, accountdomain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, accountdomain.ErrInvalidName
	}

	now := s.clock.Now()
	entity := &accountdomain.Account{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		Status:    accountdomain.AccountStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Metadata != nil {
		entity.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, accountdomain.ErrDuplicateCode
		}
		return nil, err
	}
	return entity, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	if id == 0 {
		return nil, accountdomain.ErrNotFound
	}
	entity, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, accountdomain.ErrNotFound
	}
	return entity, nil
}

// GetByCode looks an account up by its case-insensitive code.
func (s *Service) GetByCode(ctx context.Context, code string) (*accountdomain.Account, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, accountdomain.ErrInvalidCode
	}
	entity, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, accountdomain.ErrNotFound
	}
	return entity, nil
}

func (s *Service) ListActive(ctx context.Context) ([]*accountdomain.Account, error) {
	return s.repo.ListByStatus(ctx, s.db, accountdomain.AccountStatusActive)
}

func (s *Service) SetStatus(ctx context.Context, id snowflake.ID, status accountdomain.AccountStatus) error {
	switch status {
	case accountdomain.AccountStatusActive, accountdomain.AccountStatusSuspended, accountdomain.AccountStatusClosed:
	default:
		return accountdomain.ErrInvalidStatus
	}

	entity, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if entity == nil {
		return accountdomain.ErrNotFound
	}
	if entity.Status == status {
		return nil
	}
	updated, err := s.repo.UpdateStatus(ctx, s.db, id, status, s.clock.Now())
	if err != nil {
		return err
	}
	if !updated {
		return accountdomain.ErrNotFound
	}
	s.log.Info("account status changed",
		zap.String("account_id", id.String()),
		zap.String("from", string(entity.Status)),
		zap.String("to", string(status)),
	)
	return nil
}

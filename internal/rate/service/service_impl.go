package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/clock"
	ratedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/domain"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  ratedomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  ratedomain.Repository
	clock clock.Clock
}

func NewService(p ServiceParam) ratedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("rate.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Resolve(ctx context.Context, req ratedomain.ResolveRequest) (*ratedomain.Rate, error) {
	if !req.Category.Valid() {
		return nil, ratedomain.ErrInvalidCategory
	}
	if !req.UOM.Valid() {
		return nil, ratedomain.ErrInvalidUOM
	}

	tier := normalizeTier(req.Tier)
	if tier != nil {
		rate, err := s.resolveSlot(ctx, ratedomain.Key{
			AccountID: req.AccountID,
			Category:  req.Category,
			UOM:       req.UOM,
			Tier:      tier,
		}, req.At)
		if err != nil || rate != nil {
			return rate, err
		}
	}

	return s.resolveSlot(ctx, ratedomain.Key{
		AccountID: req.AccountID,
		Category:  req.Category,
		UOM:       req.UOM,
	}, req.At)
}

func (s *Service) resolveSlot(ctx context.Context, key ratedomain.Key, at time.Time) (*ratedomain.Rate, error) {
	candidates, err := s.repo.FindActive(ctx, s.db, key)
	if err != nil {
		return nil, fmt.Errorf("find rates: %w", err)
	}

	effective := lo.Filter(candidates, func(r ratedomain.Rate, _ int) bool {
		return r.Covers(at)
	})
	if len(effective) == 0 {
		return nil, nil
	}
	sort.SliceStable(effective, func(i, j int) bool {
		return effective[i].EffectiveFrom.After(effective[j].EffectiveFrom)
	})
	if len(effective) > 1 {
		s.log.Warn("overlapping active rates, using latest effective_from",
			zap.String("category", string(key.Category)),
			zap.String("uom", string(key.UOM)),
			zap.String("tier", lo.FromPtr(key.Tier)),
			zap.Int("candidates", len(effective)),
			zap.String("rate_id", effective[0].ID.String()),
		)
	}

	rate := effective[0]
	return &rate, nil
}

func (s *Service) Create(ctx context.Context, req ratedomain.CreateRequest) (*ratedomain.Rate, error) {
	if !req.Category.Valid() {
		return nil, ratedomain.ErrInvalidCategory
	}
	if !req.UOM.Valid() {
		return nil, ratedomain.ErrInvalidUOM
	}
	if req.UnitPrice.IsNegative() {
		return nil, ratedomain.ErrInvalidUnitPrice
	}
	if req.EffectiveFrom.IsZero() {
		return nil, ratedomain.ErrInvalidWindow
	}
	from := req.EffectiveFrom.UTC()
	to := utcPtr(req.EffectiveTo)
	if to != nil && !to.After(from) {
		return nil, ratedomain.ErrInvalidWindow
	}

	now := s.clock.Now()
	entity := &ratedomain.Rate{
		ID:            s.genID.Generate(),
		AccountID:     req.AccountID,
		Category:      req.Category,
		UOM:           req.UOM,
		Tier:          normalizeTier(req.Tier),
		UnitPrice:     req.UnitPrice.Round(6),
		EffectiveFrom: from,
		EffectiveTo:   to,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureNoOverlap(ctx, tx, entity, 0); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, entity)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("rate created",
		zap.String("rate_id", entity.ID.String()),
		zap.String("category", string(entity.Category)),
		zap.String("uom", string(entity.UOM)),
		zap.String("unit_price", entity.UnitPrice.String()),
	)
	return entity, nil
}

func (s *Service) Supersede(ctx context.Context, req ratedomain.SupersedeRequest) (*ratedomain.Rate, error) {
	if req.UnitPrice.IsNegative() {
		return nil, ratedomain.ErrInvalidUnitPrice
	}
	start := req.EffectiveFrom.UTC()

	var replacement *ratedomain.Rate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := s.repo.FindByID(ctx, tx, req.RateID)
		if err != nil {
			return err
		}
		if old == nil {
			return ratedomain.ErrNotFound
		}
		if !old.Active {
			return ratedomain.ErrRateInactive
		}
		if !start.After(old.EffectiveFrom) || (old.EffectiveTo != nil && !start.Before(*old.EffectiveTo)) {
			return ratedomain.ErrInvalidWindow
		}

		now := s.clock.Now()
		replacement = &ratedomain.Rate{
			ID:            s.genID.Generate(),
			AccountID:     old.AccountID,
			Category:      old.Category,
			UOM:           old.UOM,
			Tier:          old.Tier,
			UnitPrice:     req.UnitPrice.Round(6),
			EffectiveFrom: start,
			EffectiveTo:   old.EffectiveTo,
			Active:        true,
			SupersedesID:  lo.ToPtr(old.ID),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.ensureNoOverlap(ctx, tx, replacement, old.ID); err != nil {
			return err
		}
		if err := s.repo.Close(ctx, tx, old.ID, start, now); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, replacement)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("rate superseded",
		zap.String("old_rate_id", req.RateID.String()),
		zap.String("rate_id", replacement.ID.String()),
		zap.Time("effective_from", start),
	)
	return replacement, nil
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rate, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if rate == nil {
			return ratedomain.ErrNotFound
		}
		if !rate.Active {
			return nil
		}
		return s.repo.Deactivate(ctx, tx, id, s.clock.Now())
	})
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*ratedomain.Rate, error) {
	rate, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, ratedomain.ErrNotFound
	}
	return rate, nil
}

func (s *Service) List(ctx context.Context, req ratedomain.ListRequest) ([]ratedomain.Rate, error) {
	if req.Category != "" && !req.Category.Valid() {
		return nil, ratedomain.ErrInvalidCategory
	}
	return s.repo.List(ctx, s.db, req)
}

func (s *Service) ensureNoOverlap(ctx context.Context, tx *gorm.DB, candidate *ratedomain.Rate, ignoreID snowflake.ID) error {
	existing, err := s.repo.FindActive(ctx, tx, candidate.Key())
	if err != nil {
		return err
	}
	for _, r := range existing {
		if r.ID == ignoreID {
			continue
		}
		if r.Overlaps(candidate.EffectiveFrom, candidate.EffectiveTo) {
			return ratedomain.ErrOverlappingRate
		}
	}
	return nil
}

func normalizeTier(tier *string) *string {
	if tier == nil {
		return nil
	}
	value := strings.TrimSpace(*tier)
	if value == "" {
		return nil
	}
	return &value
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

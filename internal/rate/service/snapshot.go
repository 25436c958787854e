package service

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/domain"
	"github.com/samber/lo"
)

// Snapshot memoizes rate lookups for one account at a fixed as-of timestamp,
// so every bucket of a run is priced against the same catalogue state.
type Snapshot struct {
	svc       ratedomain.Service
	accountID snowflake.ID
	asOf      time.Time

	mu    sync.Mutex
	cache map[snapshotKey]*ratedomain.Rate
}

type snapshotKey struct {
	category ratedomain.Category
	uom      ratedomain.UOM
	tier     string
}

func NewSnapshot(svc ratedomain.Service, accountID snowflake.ID, asOf time.Time) *Snapshot {
	return &Snapshot{
		svc:       svc,
		accountID: accountID,
		asOf:      asOf,
		cache:     map[snapshotKey]*ratedomain.Rate{},
	}
}

// Lookup returns (nil, nil) when no rate applies. Misses are cached as well.
func (s *Snapshot) Lookup(ctx context.Context, category ratedomain.Category, uom ratedomain.UOM, tier *string) (*ratedomain.Rate, error) {
	key := snapshotKey{category: category, uom: uom, tier: lo.FromPtr(tier)}

	s.mu.Lock()
	if rate, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return rate, nil
	}
	s.mu.Unlock()

	rate, err := s.svc.Resolve(ctx, ratedomain.ResolveRequest{
		AccountID: lo.ToPtr(s.accountID),
		Category:  category,
		UOM:       uom,
		Tier:      tier,
		At:        s.asOf,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = rate
	s.mu.Unlock()
	return rate, nil
}

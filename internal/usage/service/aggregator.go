package service

import (
	"context"
	"fmt"
	"sort"

	ratedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/domain"
	usagedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/usage/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Reader usagedomain.Reader
	Log    *zap.Logger
}

type Service struct {
	reader usagedomain.Reader
	log    *zap.Logger
}

func NewService(p ServiceParam) usagedomain.Aggregator {
	return &Service{
		reader: p.Reader,
		log:    p.Log.Named("usage.service"),
	}
}

func (s *Service) Aggregate(ctx context.Context, req usagedomain.AggregateRequest) ([]usagedomain.Bucket, error) {
	if req.AccountID == 0 {
		return nil, usagedomain.ErrInvalidAccount
	}
	if !req.PeriodEnd.After(req.PeriodStart) {
		return nil, usagedomain.ErrInvalidPeriod
	}
	if req.Tiers == nil {
		return nil, usagedomain.ErrMissingTiers
	}

	buckets, err := s.storageBuckets(ctx, req)
	if err != nil {
		return nil, err
	}

	handling, err := s.handlingBuckets(ctx, req)
	if err != nil {
		return nil, err
	}
	buckets = append(buckets, handling...)

	vas, err := s.vasBuckets(ctx, req)
	if err != nil {
		return nil, err
	}
	buckets = append(buckets, vas...)

	s.log.Debug("usage aggregated",
		zap.String("account_id", req.AccountID.String()),
		zap.Time("period_start", req.PeriodStart),
		zap.Time("period_end", req.PeriodEnd),
		zap.Int("buckets", len(buckets)),
	)
	return buckets, nil
}

// storageBuckets emits a Kg and a Pallet bucket for every zone with any
// occupancy; the charge resolver chooses between them.
func (s *Service) storageBuckets(ctx context.Context, req usagedomain.AggregateRequest) ([]usagedomain.Bucket, error) {
	pallets, err := s.reader.DailyPalletCountByZone(ctx, req.AccountID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("read pallet occupancy: %w", err)
	}
	weights, err := s.reader.DailyWeightByZone(ctx, req.AccountID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("read weight occupancy: %w", err)
	}

	zones := lo.Uniq(append(lo.Keys(weights), lo.Keys(pallets)...))
	sort.Strings(zones)

	buckets := make([]usagedomain.Bucket, 0, len(zones)*2)
	for _, zone := range zones {
		tier := req.Tiers.ZoneTier(zone)
		buckets = append(buckets,
			usagedomain.Bucket{
				Kind:     usagedomain.KindStorageWeight,
				Category: ratedomain.CategoryStorage,
				UOM:      ratedomain.UOMKg,
				Tier:     tier,
				Zone:     zone,
				Quantity: weights[zone].Round(usagedomain.QuantityScale),
			},
			usagedomain.Bucket{
				Kind:     usagedomain.KindStoragePallet,
				Category: ratedomain.CategoryStorage,
				UOM:      ratedomain.UOMPallet,
				Tier:     tier,
				Zone:     zone,
				Quantity: decimal.NewFromInt(pallets[zone]),
			},
		)
	}
	return buckets, nil
}

func (s *Service) handlingBuckets(ctx context.Context, req usagedomain.AggregateRequest) ([]usagedomain.Bucket, error) {
	var buckets []usagedomain.Bucket

	receiving, err := s.reader.ReceivingForAccount(ctx, req.AccountID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("read receiving: %w", err)
	}
	if len(receiving) > 0 {
		total := lo.Reduce(receiving, func(acc decimal.Decimal, r usagedomain.ReceivingLine, _ int) decimal.Decimal {
			return acc.Add(r.WeightKg)
		}, decimal.Zero)
		buckets = append(buckets, handlingBucket(req.Tiers, usagedomain.KindHandlingInbound, ratedomain.UOMKg, total))
	}

	picks, err := s.reader.PicksForAccount(ctx, req.AccountID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("read picks: %w", err)
	}
	if len(picks) > 0 {
		total := lo.Reduce(picks, func(acc decimal.Decimal, p usagedomain.PickConfirmation, _ int) decimal.Decimal {
			return acc.Add(p.Quantity)
		}, decimal.Zero)
		buckets = append(buckets, handlingBucket(req.Tiers, usagedomain.KindHandlingPicking, ratedomain.UOMEach, total))
	}

	withdrawals, err := s.reader.WithdrawalsForAccount(ctx, req.AccountID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("read withdrawals: %w", err)
	}
	if len(withdrawals) > 0 {
		total := lo.Reduce(withdrawals, func(acc decimal.Decimal, w usagedomain.WithdrawalLine, _ int) decimal.Decimal {
			return acc.Add(w.WeightKg)
		}, decimal.Zero)
		buckets = append(buckets, handlingBucket(req.Tiers, usagedomain.KindHandlingOutbound, ratedomain.UOMKg, total))
	}

	return buckets, nil
}

func handlingBucket(tiers usagedomain.TierLookup, kind usagedomain.Kind, uom ratedomain.UOM, qty decimal.Decimal) usagedomain.Bucket {
	return usagedomain.Bucket{
		Kind:     kind,
		Category: ratedomain.CategoryHandling,
		UOM:      uom,
		Tier:     tiers.KindTier(string(kind)),
		Quantity: qty.Round(usagedomain.QuantityScale),
	}
}

func (s *Service) vasBuckets(ctx context.Context, req usagedomain.AggregateRequest) ([]usagedomain.Bucket, error) {
	txs, err := s.reader.VASForAccount(ctx, req.AccountID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("read vas transactions: %w", err)
	}

	completed := lo.GroupBy(
		lo.Filter(txs, func(tx usagedomain.VASTransaction, _ int) bool {
			return tx.Status == usagedomain.VASStatusCompleted
		}),
		func(tx usagedomain.VASTransaction) usagedomain.VASType { return tx.Type },
	)

	var buckets []usagedomain.Bucket
	for _, rule := range vasTable {
		group, ok := completed[rule.vasType]
		if !ok {
			continue
		}
		qty := decimal.Zero
		for _, tx := range group {
			qty = qty.Add(rule.measure(tx))
		}
		buckets = append(buckets, usagedomain.Bucket{
			Kind:     rule.kind,
			Category: rule.category,
			UOM:      rule.uom,
			Tier:     req.Tiers.KindTier(string(rule.kind)),
			Quantity: qty.Round(usagedomain.QuantityScale),
		})
	}

	for vasType, group := range completed {
		if _, known := vasIndex[vasType]; !known {
			s.log.Warn("vas type has no billing rule",
				zap.String("vas_type", string(vasType)),
				zap.Int("transactions", len(group)),
			)
		}
	}
	return buckets, nil
}

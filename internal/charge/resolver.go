package charge

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/domain"
	rateservice "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/service"
	usagedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RateLookup resolves rates for a single account at a fixed as-of time.
type RateLookup interface {
	Lookup(ctx context.Context, category ratedomain.Category, uom ratedomain.UOM, tier *string) (*ratedomain.Rate, error)
}

// ResolveInput prices Buckets against the account's catalogue as it stood at AsOf.
type ResolveInput struct {
	AccountID snowflake.ID
	AsOf      time.Time
	Buckets   []usagedomain.Bucket
}

type ResolverParam struct {
	fx.In

	RateSvc ratedomain.Service
	Log     *zap.Logger
}

type Resolver struct {
	rateSvc ratedomain.Service
	log     *zap.Logger
}

func NewResolver(p ResolverParam) *Resolver {
	return &Resolver{
		rateSvc: p.RateSvc,
		log:     p.Log.Named("charge.resolver"),
	}
}

// Resolve prices every bucket. Missing rates and empty buckets are reported
// in Result.Dropped; only lookup failures return an error.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (*Result, error) {
	rates := rateservice.NewSnapshot(r.rateSvc, in.AccountID, in.AsOf)

	res := &Result{}
	zones, storage := groupStorage(in.Buckets)
	for _, zone := range zones {
		if err := r.resolveStorage(ctx, rates, storage[zone], res); err != nil {
			return nil, err
		}
	}

	for _, b := range in.Buckets {
		if b.IsStorage() {
			continue
		}
		if !b.Quantity.IsPositive() {
			res.Dropped = append(res.Dropped, Dropped{Bucket: b, Reason: ReasonZeroQuantity})
			continue
		}
		rate, err := rates.Lookup(ctx, b.Category, b.UOM, b.Tier)
		if err != nil {
			return nil, fmt.Errorf("resolve %s rate: %w", b.Kind, err)
		}
		if rate == nil {
			res.Dropped = append(res.Dropped, Dropped{Bucket: b, Reason: ReasonRateNotFound})
			continue
		}
		res.Charges = append(res.Charges, newCharge(b, rate))
	}

	r.log.Debug("buckets priced",
		zap.String("account_id", in.AccountID.String()),
		zap.Int("charges", len(res.Charges)),
		zap.Int("dropped", len(res.Dropped)),
	)
	return res, nil
}

type zoneStorage struct {
	weight *usagedomain.Bucket
	pallet *usagedomain.Bucket
}

func groupStorage(buckets []usagedomain.Bucket) ([]string, map[string]*zoneStorage) {
	var zones []string
	byZone := map[string]*zoneStorage{}
	for i := range buckets {
		b := &buckets[i]
		if !b.IsStorage() {
			continue
		}
		zs, ok := byZone[b.Zone]
		if !ok {
			zs = &zoneStorage{}
			byZone[b.Zone] = zs
			zones = append(zones, b.Zone)
		}
		switch b.UOM {
		case ratedomain.UOMKg:
			zs.weight = b
		case ratedomain.UOMPallet:
			zs.pallet = b
		}
	}
	return zones, byZone
}

// resolveStorage emits at most one storage charge per zone, preferring Kg over Pallet.
func (r *Resolver) resolveStorage(ctx context.Context, rates RateLookup, zs *zoneStorage, res *Result) error {
	if w := zs.weight; w != nil {
		if w.Quantity.IsPositive() {
			rate, err := rates.Lookup(ctx, w.Category, ratedomain.UOMKg, w.Tier)
			if err != nil {
				return fmt.Errorf("resolve storage kg rate: %w", err)
			}
			if rate != nil {
				res.Charges = append(res.Charges, newCharge(*w, rate))
				if zs.pallet != nil {
					res.Dropped = append(res.Dropped, Dropped{Bucket: *zs.pallet, Reason: ReasonSupersededByKg})
				}
				return nil
			}
			res.Dropped = append(res.Dropped, Dropped{Bucket: *w, Reason: ReasonRateNotFound})
		} else {
			res.Dropped = append(res.Dropped, Dropped{Bucket: *w, Reason: ReasonZeroQuantity})
		}
	}

	p := zs.pallet
	if p == nil {
		return nil
	}
	if !p.Quantity.IsPositive() {
		res.Dropped = append(res.Dropped, Dropped{Bucket: *p, Reason: ReasonZeroQuantity})
		return nil
	}
	rate, err := rates.Lookup(ctx, p.Category, ratedomain.UOMPallet, p.Tier)
	if err != nil {
		return fmt.Errorf("resolve storage pallet rate: %w", err)
	}
	if rate == nil {
		res.Dropped = append(res.Dropped, Dropped{Bucket: *p, Reason: ReasonRateNotFound})
		return nil
	}
	res.Charges = append(res.Charges, newCharge(*p, rate))
	return nil
}

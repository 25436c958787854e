package domain

import (
	ratedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/domain"
	"github.com/shopspring/decimal"
)

// Kind names one row of the usage mapping table.
type Kind string

const (
	KindStorageWeight    Kind = "storage_weight"
	KindStoragePallet    Kind = "storage_pallet"
	KindHandlingInbound  Kind = "handling_inbound"
	KindHandlingPicking  Kind = "handling_picking"
	KindHandlingOutbound Kind = "handling_outbound"
	KindBlasting         Kind = "blasting"
	KindRepack           Kind = "repack"
	KindSplit            Kind = "split"
	KindLabeling         Kind = "labeling"
	KindFumigation       Kind = "fumigation"
	KindCycleCount       Kind = "cyclecount"
	KindCrossDock        Kind = "crossdock"
	KindSurcharge        Kind = "surcharge"
	KindKittingLabor     Kind = "kitting_labor"
	KindKittingAssembly  Kind = "kitting_assembly"
)

// QuantityScale is the number of fractional digits kept on bucket quantities.
const QuantityScale = 6

// Bucket is one usage quantity for an account and period, ready to be priced.
type Bucket struct {
	Kind     Kind
	Category ratedomain.Category
	UOM      ratedomain.UOM
	Tier     *string
	// Zone is set for storage buckets only.
	Zone     string
	Quantity decimal.Decimal
}

func (b Bucket) IsStorage() bool {
	return b.Category == ratedomain.CategoryStorage
}

// Package charge prices usage buckets against the rate catalogue.
package charge

import (
	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/domain"
	usagedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/usage/domain"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits on monetary amounts.
const AmountScale = 2

const (
	ReasonZeroQuantity   = "zero_quantity"
	ReasonRateNotFound   = "rate_not_found"
	ReasonSupersededByKg = "superseded_by_kg"
)

// Charge is one priced bucket. UnitPrice is a copy of the resolved rate price.
type Charge struct {
	Kind        usagedomain.Kind
	Category    ratedomain.Category
	UOM         ratedomain.UOM
	Tier        *string
	Zone        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	Description string
	RateID      snowflake.ID
}

// Dropped records a bucket that produced no charge and why.
type Dropped struct {
	Bucket usagedomain.Bucket
	Reason string
}

type Result struct {
	Charges []Charge
	Dropped []Dropped
}

func newCharge(b usagedomain.Bucket, rate *ratedomain.Rate) Charge {
	return Charge{
		Kind:        b.Kind,
		Category:    b.Category,
		UOM:         b.UOM,
		Tier:        b.Tier,
		Zone:        b.Zone,
		Quantity:    b.Quantity,
		UnitPrice:   rate.UnitPrice,
		Amount:      b.Quantity.Mul(rate.UnitPrice).Round(AmountScale),
		Description: Describe(b),
		RateID:      rate.ID,
	}
}

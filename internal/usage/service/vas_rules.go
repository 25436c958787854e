package service

import (
	ratedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/domain"
	usagedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/usage/domain"
	"github.com/shopspring/decimal"
)

// measureFunc reduces one completed VAS transaction to a billable quantity.
type measureFunc func(tx usagedomain.VASTransaction) decimal.Decimal

type vasRule struct {
	vasType  usagedomain.VASType
	kind     usagedomain.Kind
	category ratedomain.Category
	uom      ratedomain.UOM
	measure  measureFunc
}

// vasTable is ordered; bucket and invoice line order follow it.
var vasTable = []vasRule{
	{usagedomain.VASBlasting, usagedomain.KindBlasting, ratedomain.CategoryBlasting, ratedomain.UOMKg, materialInputWeight},
	{usagedomain.VASRepack, usagedomain.KindRepack, ratedomain.CategoryRepack, ratedomain.UOMEach, materialInputQuantity},
	{usagedomain.VASSplit, usagedomain.KindSplit, ratedomain.CategorySplit, ratedomain.UOMEach, materialInputQuantity},
	{usagedomain.VASLabeling, usagedomain.KindLabeling, ratedomain.CategoryLabeling, ratedomain.UOMEach, materialInputQuantity},
	{usagedomain.VASFumigation, usagedomain.KindFumigation, ratedomain.CategoryFumigation, ratedomain.UOMCycle, oneCycle},
	{usagedomain.VASCycleCount, usagedomain.KindCycleCount, ratedomain.CategoryCycleCount, ratedomain.UOMHour, laborInputQuantity},
	{usagedomain.VASCrossDock, usagedomain.KindCrossDock, ratedomain.CategoryCrossDock, ratedomain.UOMPallet, laborInputQuantity},
	{usagedomain.VASSurcharge, usagedomain.KindSurcharge, ratedomain.CategorySurcharge, ratedomain.UOMShipment, laborInputQuantity},
	{usagedomain.VASKitting, usagedomain.KindKittingLabor, ratedomain.CategoryKitting, ratedomain.UOMHour, laborInputQuantity},
	{usagedomain.VASKitting, usagedomain.KindKittingAssembly, ratedomain.CategoryKitting, ratedomain.UOMEach, outputQuantity},
}

var vasIndex = func() map[usagedomain.VASType][]vasRule {
	index := map[usagedomain.VASType][]vasRule{}
	for _, rule := range vasTable {
		index[rule.vasType] = append(index[rule.vasType], rule)
	}
	return index
}()

// Lines with a material id are physical goods; lines without are labor or unit counts.

func materialInputWeight(tx usagedomain.VASTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, line := range tx.InputLines() {
		if line.HasMaterial() {
			total = total.Add(line.WeightKg)
		}
	}
	return total
}

func materialInputQuantity(tx usagedomain.VASTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, line := range tx.InputLines() {
		if line.HasMaterial() {
			total = total.Add(line.Quantity)
		}
	}
	return total
}

func laborInputQuantity(tx usagedomain.VASTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, line := range tx.InputLines() {
		if !line.HasMaterial() {
			total = total.Add(line.Quantity)
		}
	}
	return total
}

func outputQuantity(tx usagedomain.VASTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, line := range tx.OutputLines() {
		total = total.Add(line.Quantity)
	}
	return total
}

func oneCycle(usagedomain.VASTransaction) decimal.Decimal {
	return decimal.NewFromInt(1)
}

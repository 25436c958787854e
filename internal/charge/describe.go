package charge

import (
	"fmt"

	usagedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/usage/domain"
)

var descriptions = map[usagedomain.Kind]string{
	usagedomain.KindStorageWeight:    "Storage for %s kg-days.",
	usagedomain.KindStoragePallet:    "Storage for %s pallet-days.",
	usagedomain.KindHandlingInbound:  "Handling (Inbound) for %s kg.",
	usagedomain.KindHandlingPicking:  "Handling (Picking) for %s units.",
	usagedomain.KindHandlingOutbound: "Handling (Outbound) for %s kg.",
	usagedomain.KindBlasting:         "Blast Freezing for %s kg.",
	usagedomain.KindRepack:           "Repack for %s units.",
	usagedomain.KindSplit:            "Split for %s units.",
	usagedomain.KindLabeling:         "Labeling for %s units.",
	usagedomain.KindFumigation:       "Fumigation for %s cycles.",
	usagedomain.KindCycleCount:       "Cycle Count for %s hours.",
	usagedomain.KindCrossDock:        "Cross-Dock for %s pallets.",
	usagedomain.KindSurcharge:        "Surcharge for %s shipments.",
	usagedomain.KindKittingLabor:     "Kitting (Labor) for %s hours.",
	usagedomain.KindKittingAssembly:  "Kitting (Assembly) for %s units.",
}

// Describe renders the invoice line text for a bucket, prefixed by its tier when set.
func Describe(b usagedomain.Bucket) string {
	format, ok := descriptions[b.Kind]
	if !ok {
		format = string(b.Category) + " for %s " + string(b.UOM) + "."
	}
	text := fmt.Sprintf(format, b.Quantity.String())
	if b.Tier != nil && *b.Tier != "" {
		text = *b.Tier + " " + text
	}
	return text
}

package pnl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared/valueobject"
)

// FeeBucket classifies marketplace fee rows into the P&L buckets the
// journal builder posts against.
type FeeBucket string

const (
	BucketAdvertising  FeeBucket = "ADVERTISING"
	BucketStorage      FeeBucket = "STORAGE"
	BucketFBAFees      FeeBucket = "FBA_FEES"
	BucketPromotions   FeeBucket = "PROMOTIONS"
	BucketSubscription FeeBucket = "SUBSCRIPTION"
	BucketOther        FeeBucket = "OTHER"
)

// Buckets returns all fee buckets in canonical order.
func Buckets() []FeeBucket {
	return []FeeBucket{
		BucketAdvertising,
		BucketStorage,
		BucketFBAFees,
		BucketPromotions,
		BucketSubscription,
		BucketOther,
	}
}

var bucketPrefixes = []struct {
	prefix string
	bucket FeeBucket
}{
	{"advertising", BucketAdvertising},
	{"sponsored", BucketAdvertising},
	{"storage", BucketStorage},
	{"fba", BucketFBAFees},
	{"fulfillment", BucketFBAFees},
	{"promotion", BucketPromotions},
	{"coupon", BucketPromotions},
	{"subscription", BucketSubscription},
}

// ClassifyFeeBucket maps a fee row's description to its bucket. Unknown
// descriptions land in OTHER rather than being dropped.
func ClassifyFeeBucket(description string) FeeBucket {
	desc := strings.ToLower(strings.TrimSpace(description))
	for _, p := range bucketPrefixes {
		if strings.HasPrefix(desc, p.prefix) {
			return p.bucket
		}
	}
	return BucketOther
}

// BrandAmount is one bucket's allocated cents for one brand.
type BrandAmount struct {
	Bucket      FeeBucket
	Brand       string
	AmountCents int64
}

// AllocationInput carries everything fee allocation needs, already fetched.
// BucketWeights holds external per-SKU weight data (ad spend over the
// invoice window for ADVERTISING, day-overlap-weighted warehousing rates
// for STORAGE); buckets with no external weights fall back to per-SKU
// sales units.
type AllocationInput struct {
	Rows          []settlement.AuditRow
	SkuToBrand    map[string]string // normalized SKU -> brand
	BucketWeights map[FeeBucket]map[string]decimal.Decimal
	SalesUnits    map[string]int64 // normalized SKU -> units sold in scope
}

// Allocate splits the invoice's fee rows across brands. SKU-bearing rows
// are attributed directly to the owning brand; SKU-less bucket totals are
// allocated proportionally by weight with the sign preserved. Buckets that
// cannot be allocated produce blocks, never a silent zero allocation.
func Allocate(in AllocationInput) ([]BrandAmount, settlement.BlockList) {
	var blocks settlement.BlockList
	totals := make(map[FeeBucket]map[string]int64)
	bucketTotals := make(map[FeeBucket]int64)

	addAmount := func(bucket FeeBucket, brand string, cents int64) {
		if totals[bucket] == nil {
			totals[bucket] = make(map[string]int64)
		}
		totals[bucket][brand] += cents
	}

	for _, row := range in.Rows {
		if settlement.IsPrincipal(row.Description) {
			continue
		}
		bucket := ClassifyFeeBucket(row.Description)
		sku := settlement.NormalizeSKU(row.SKU)

		if sku == "" {
			bucketTotals[bucket] += row.NetAmountCents
			continue
		}

		brand, ok := in.SkuToBrand[sku]
		if !ok {
			blocks.Add(settlement.NewBlockWithDetails(settlement.BlockMissingSkuMapping,
				fmt.Sprintf("no brand mapping for SKU %s on fee row", sku),
				map[string]any{"sku": sku, "description": row.Description},
			))
			continue
		}
		addAmount(bucket, brand, row.NetAmountCents)
	}

	for _, bucket := range Buckets() {
		total := bucketTotals[bucket]
		if total == 0 {
			continue
		}

		brands, weights := brandWeights(bucket, in)
		if len(brands) == 0 {
			blocks.Add(settlement.NewBlockWithDetails(settlement.BlockPnlAllocationError,
				fmt.Sprintf("no weighted candidates to allocate %s bucket total", bucket),
				map[string]any{"bucket": string(bucket), "total_cents": total},
			))
			continue
		}

		parts, err := valueobject.SplitProportional(total, weights)
		if err != nil {
			blocks.Add(settlement.NewBlockWithDetails(settlement.BlockPnlAllocationError,
				fmt.Sprintf("cannot allocate %s bucket total: %v", bucket, err),
				map[string]any{"bucket": string(bucket), "total_cents": total},
			))
			continue
		}
		for i, brand := range brands {
			addAmount(bucket, brand, parts[i])
		}
	}

	return flatten(totals), blocks
}

// brandWeights aggregates the bucket's per-SKU weights up to brand level.
// Weights are taken by absolute value so a bucket of credits allocates the
// same way as a bucket of charges. Brands are sorted for determinism.
func brandWeights(bucket FeeBucket, in AllocationInput) ([]string, []decimal.Decimal) {
	perBrand := make(map[string]decimal.Decimal)

	external := in.BucketWeights[bucket]
	if len(external) > 0 {
		for sku, w := range external {
			brand, ok := in.SkuToBrand[settlement.NormalizeSKU(sku)]
			if !ok || !w.Abs().IsPositive() {
				continue
			}
			perBrand[brand] = perBrand[brand].Add(w.Abs())
		}
	} else {
		for sku, units := range in.SalesUnits {
			brand, ok := in.SkuToBrand[sku]
			if !ok || units <= 0 {
				continue
			}
			perBrand[brand] = perBrand[brand].Add(decimal.NewFromInt(units))
		}
	}

	brands := make([]string, 0, len(perBrand))
	for brand := range perBrand {
		brands = append(brands, brand)
	}
	sort.Strings(brands)

	weights := make([]decimal.Decimal, len(brands))
	for i, brand := range brands {
		weights[i] = perBrand[brand]
	}
	return brands, weights
}

func flatten(totals map[FeeBucket]map[string]int64) []BrandAmount {
	out := make([]BrandAmount, 0)
	for _, bucket := range Buckets() {
		byBrand := totals[bucket]
		brands := make([]string, 0, len(byBrand))
		for brand := range byBrand {
			brands = append(brands, brand)
		}
		sort.Strings(brands)
		for _, brand := range brands {
			if byBrand[brand] == 0 {
				continue
			}
			out = append(out, BrandAmount{Bucket: bucket, Brand: brand, AmountCents: byBrand[brand]})
		}
	}
	return out
}

package pnl

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerledger/backend/internal/domain/settlement"
)

func TestClassifyFeeBucket(t *testing.T) {
	tests := []struct {
		description string
		expected    FeeBucket
	}{
		{"Advertising cost", BucketAdvertising},
		{"Sponsored Products charge", BucketAdvertising},
		{"Storage fee", BucketStorage},
		{"FBA fulfillment fee", BucketFBAFees},
		{"Fulfillment charge", BucketFBAFees},
		{"Promotion rebate", BucketPromotions},
		{"Coupon redemption fee", BucketPromotions},
		{"Subscription fee", BucketSubscription},
		{"Something unrecognized", BucketOther},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyFeeBucket(tt.description))
		})
	}
}

func TestAllocateDirectSkuAttribution(t *testing.T) {
	in := AllocationInput{
		Rows: []settlement.AuditRow{
			{SKU: "WIDGET-A", Description: "FBA fulfillment fee", NetAmountCents: -300},
			{SKU: "WIDGET-B", Description: "FBA fulfillment fee", NetAmountCents: -200},
			{SKU: "WIDGET-A", Description: "Order Principal", NetAmountCents: 1500, Quantity: 1},
		},
		SkuToBrand: map[string]string{"WIDGET-A": "ACME", "WIDGET-B": "ZENITH"},
	}

	out, blocks := Allocate(in)

	require.True(t, blocks.Empty())
	require.Len(t, out, 2, "the principal row is not a fee")
	assert.Equal(t, BrandAmount{Bucket: BucketFBAFees, Brand: "ACME", AmountCents: -300}, out[0])
	assert.Equal(t, BrandAmount{Bucket: BucketFBAFees, Brand: "ZENITH", AmountCents: -200}, out[1])
}

func TestAllocateSkulessTotalByExternalWeights(t *testing.T) {
	// The -1200 advertising total splits 3:1 by ad spend.
	in := AllocationInput{
		Rows: []settlement.AuditRow{
			{Description: "Advertising cost", NetAmountCents: -1200},
		},
		SkuToBrand: map[string]string{"WIDGET-A": "ACME", "WIDGET-B": "ZENITH"},
		BucketWeights: map[FeeBucket]map[string]decimal.Decimal{
			BucketAdvertising: {
				"WIDGET-A": decimal.NewFromInt(300),
				"WIDGET-B": decimal.NewFromInt(100),
			},
		},
	}

	out, blocks := Allocate(in)

	require.True(t, blocks.Empty())
	require.Len(t, out, 2)
	assert.Equal(t, BrandAmount{Bucket: BucketAdvertising, Brand: "ACME", AmountCents: -900}, out[0])
	assert.Equal(t, BrandAmount{Bucket: BucketAdvertising, Brand: "ZENITH", AmountCents: -300}, out[1])
}

func TestAllocateSkulessFallsBackToSalesUnits(t *testing.T) {
	in := AllocationInput{
		Rows: []settlement.AuditRow{
			{Description: "Subscription fee", NetAmountCents: -500},
		},
		SkuToBrand: map[string]string{"WIDGET-A": "ACME", "WIDGET-B": "ZENITH"},
		SalesUnits: map[string]int64{"WIDGET-A": 4, "WIDGET-B": 1},
	}

	out, blocks := Allocate(in)

	require.True(t, blocks.Empty())
	require.Len(t, out, 2)
	assert.Equal(t, int64(-400), out[0].AmountCents)
	assert.Equal(t, int64(-100), out[1].AmountCents)
	assert.Equal(t, int64(-500), out[0].AmountCents+out[1].AmountCents)
}

func TestAllocateNoWeightCandidatesBlocks(t *testing.T) {
	in := AllocationInput{
		Rows: []settlement.AuditRow{
			{Description: "Storage fee", NetAmountCents: -450},
		},
		SkuToBrand: map[string]string{"WIDGET-A": "ACME"},
	}

	out, blocks := Allocate(in)

	assert.Empty(t, out)
	require.True(t, blocks.HasCode(settlement.BlockPnlAllocationError))
}

func TestAllocateMissingSkuMappingOnFeeRow(t *testing.T) {
	in := AllocationInput{
		Rows: []settlement.AuditRow{
			{SKU: "UNKNOWN-1", Description: "FBA fulfillment fee", NetAmountCents: -300},
		},
		SkuToBrand: map[string]string{},
	}

	out, blocks := Allocate(in)

	assert.Empty(t, out)
	require.True(t, blocks.HasCode(settlement.BlockMissingSkuMapping))
}

func TestAllocateSumInvariantWithRemainder(t *testing.T) {
	// 100 cents across three equal brands cannot split evenly; the parts
	// must still sum to the total.
	in := AllocationInput{
		Rows: []settlement.AuditRow{
			{Description: "Advertising cost", NetAmountCents: -100},
		},
		SkuToBrand: map[string]string{"A1": "ALPHA", "B1": "BETA", "C1": "GAMMA"},
		SalesUnits: map[string]int64{"A1": 1, "B1": 1, "C1": 1},
	}

	out, blocks := Allocate(in)

	require.True(t, blocks.Empty())
	var sum int64
	for _, a := range out {
		sum += a.AmountCents
	}
	assert.Equal(t, int64(-100), sum)
}

package accounting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerledger/backend/internal/domain/pnl"
	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared/valueobject"
)

var txnDate = time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)

func testMapping() AccountMapping {
	return AccountMapping{
		InventoryParentID: "inv-parent",
		COGSParentID:      "cogs-parent",
		FeeBucketParentIDs: map[pnl.FeeBucket]string{
			pnl.BucketAdvertising:  "adv-parent",
			pnl.BucketStorage:      "sto-parent",
			pnl.BucketFBAFees:      "fba-parent",
			pnl.BucketPromotions:   "pro-parent",
			pnl.BucketSubscription: "sub-parent",
			pnl.BucketOther:        "oth-parent",
		},
	}
}

func testIndex() *AccountIndex {
	return NewAccountIndex([]Account{
		{ID: "inv-acme", Name: "Acme", ParentID: "inv-parent", Active: true},
		{ID: "cogs-acme", Name: "ACME", ParentID: "cogs-parent", Active: true},
		{ID: "inv-zen", Name: "Zenith", ParentID: "inv-parent", Active: true},
		{ID: "cogs-zen", Name: "Zenith", ParentID: "cogs-parent", Active: true},
		{ID: "adv-acme", Name: "Acme", ParentID: "adv-parent", Active: true},
		{ID: "adv-dead", Name: "Dormant", ParentID: "adv-parent", Active: false},
	})
}

func TestBuildCOGSEntryBalancedPairs(t *testing.T) {
	net := map[string]valueobject.ComponentCost{
		"ACME": {ManufacturingCents: 2000, FreightCents: 300},
	}

	entry, blocks := BuildCOGSEntry(txnDate, "SE-AMAZON_US-2026-07-01-2026-07-14", net, testMapping(), testIndex())

	require.True(t, blocks.Empty())
	assert.Equal(t, "SE-AMAZON_US-2026-07-01-2026-07-14-COGS", entry.DocNumber)
	require.Len(t, entry.Lines, 4, "one debit/credit pair per non-zero component")
	assert.True(t, entry.Balanced())
	assert.Equal(t, "cogs-acme", entry.Lines[0].AccountID)
	assert.Equal(t, Debit, entry.Lines[0].PostingType)
	assert.Equal(t, "inv-acme", entry.Lines[1].AccountID)
	assert.Equal(t, Credit, entry.Lines[1].PostingType)
}

func TestBuildCOGSEntryNegativeNetFlipsPair(t *testing.T) {
	// More cost returned than sold this settlement.
	net := map[string]valueobject.ComponentCost{
		"ACME": {ManufacturingCents: -500},
	}

	entry, blocks := BuildCOGSEntry(txnDate, "SE-X-2026-07-01-2026-07-14", net, testMapping(), testIndex())

	require.True(t, blocks.Empty())
	require.Len(t, entry.Lines, 2)
	assert.True(t, entry.Balanced())
	assert.Equal(t, "inv-acme", entry.Lines[0].AccountID, "inventory is debited on a net return")
	assert.Equal(t, Debit, entry.Lines[0].PostingType)
	assert.Equal(t, int64(500), entry.Lines[0].AmountCents, "line amounts are always positive")
}

func TestBuildCOGSEntryMissingSubAccountSkipsOnlyThatBrand(t *testing.T) {
	net := map[string]valueobject.ComponentCost{
		"ACME":    {ManufacturingCents: 1000},
		"UNKNOWN": {ManufacturingCents: 700},
	}

	entry, blocks := BuildCOGSEntry(txnDate, "SE-X-2026-07-01-2026-07-14", net, testMapping(), testIndex())

	require.Len(t, entry.Lines, 2, "the mapped brand still posts")
	require.True(t, blocks.HasCode(settlement.BlockMissingBrandSubAcct))
	assert.Equal(t, "UNKNOWN", blocks[0].Details["brand"])
}

func TestBuildCOGSEntryZeroNetBrandOmitted(t *testing.T) {
	net := map[string]valueobject.ComponentCost{
		"ACME": {},
	}

	entry, blocks := BuildCOGSEntry(txnDate, "SE-X-2026-07-01-2026-07-14", net, testMapping(), testIndex())

	assert.True(t, blocks.Empty())
	assert.True(t, entry.Empty())
}

func TestBuildPnLEntry(t *testing.T) {
	allocations := []pnl.BrandAmount{
		{Bucket: pnl.BucketAdvertising, Brand: "ACME", AmountCents: -900},
	}

	entry, blocks := BuildPnLEntry(txnDate, "SE-X-2026-07-01-2026-07-14", allocations, testMapping(), testIndex())

	require.True(t, blocks.Empty())
	assert.Equal(t, "SE-X-2026-07-01-2026-07-14-PNL", entry.DocNumber)
	require.Len(t, entry.Lines, 2)
	assert.True(t, entry.Balanced())
	// A negative allocation credits the brand sub-account and debits the
	// marketplace-level parent back.
	assert.Equal(t, "adv-parent", entry.Lines[0].AccountID)
	assert.Equal(t, Debit, entry.Lines[0].PostingType)
	assert.Equal(t, "adv-acme", entry.Lines[1].AccountID)
	assert.Equal(t, Credit, entry.Lines[1].PostingType)
}

func TestBuildPnLEntryMissingBucketParent(t *testing.T) {
	mapping := testMapping()
	mapping.FeeBucketParentIDs[pnl.BucketStorage] = ""
	allocations := []pnl.BrandAmount{
		{Bucket: pnl.BucketStorage, Brand: "ACME", AmountCents: -450},
	}

	entry, blocks := BuildPnLEntry(txnDate, "SE-X-2026-07-01-2026-07-14", allocations, mapping, testIndex())

	assert.True(t, entry.Empty())
	require.True(t, blocks.HasCode(settlement.BlockMissingAccountMapping))
}

func TestBuildPnLEntryMissingBrandSubAccount(t *testing.T) {
	allocations := []pnl.BrandAmount{
		{Bucket: pnl.BucketAdvertising, Brand: "NOBODY", AmountCents: -450},
	}

	entry, blocks := BuildPnLEntry(txnDate, "SE-X-2026-07-01-2026-07-14", allocations, testMapping(), testIndex())

	assert.True(t, entry.Empty())
	require.True(t, blocks.HasCode(settlement.BlockMissingBrandSubAcct))
}

func TestNetCostByBrand(t *testing.T) {
	sales := map[string]valueobject.ComponentCost{
		"ACME":   {ManufacturingCents: 2000},
		"ZENITH": {ManufacturingCents: 800},
	}
	returns := map[string]valueobject.ComponentCost{
		"ACME":  {ManufacturingCents: 500},
		"GHOST": {ManufacturingCents: 100},
	}

	net := NetCostByBrand(sales, returns)

	assert.Equal(t, int64(1500), net["ACME"].ManufacturingCents)
	assert.Equal(t, int64(800), net["ZENITH"].ManufacturingCents)
	assert.Equal(t, int64(-100), net["GHOST"].ManufacturingCents, "a return-only brand nets negative")
}

func TestAccountIndexMatchingRules(t *testing.T) {
	index := testIndex()

	id, ok := index.SubAccountID("inv-parent", "acme")
	require.True(t, ok, "brand matching is case-insensitive")
	assert.Equal(t, "inv-acme", id)

	_, ok = index.SubAccountID("adv-parent", "Dormant")
	assert.False(t, ok, "inactive accounts never resolve")

	_, ok = index.SubAccountID("inv-parent", "missing")
	assert.False(t, ok)
}

func TestAccountMappingMissingKeys(t *testing.T) {
	complete := testMapping()
	assert.Empty(t, complete.MissingKeys())

	partial := AccountMapping{COGSParentID: "cogs-parent"}
	missing := partial.MissingKeys()
	assert.Contains(t, missing, "inventory_parent_account")
	assert.Contains(t, missing, "fee_bucket_parent_account.advertising")
	assert.NotContains(t, missing, "cogs_parent_account")
}

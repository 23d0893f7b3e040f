package accounting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sellerledger/backend/internal/domain/pnl"
	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared/valueobject"
)

// BuildCOGSEntry constructs the COGS journal entry from the net cost per
// brand per component (sale costs minus return costs). A positive net
// debits the brand's COGS sub-account and credits its inventory
// sub-account; a negative net flips the pair. A brand whose sub-account is
// missing blocks only its own lines; everything else still builds.
func BuildCOGSEntry(
	txnDate time.Time,
	docNumber string,
	netByBrand map[string]valueobject.ComponentCost,
	mapping AccountMapping,
	index *AccountIndex,
) (Entry, settlement.BlockList) {
	var blocks settlement.BlockList
	entry := Entry{
		TxnDate:     txnDate,
		DocNumber:   docNumber + "-COGS",
		PrivateNote: "Settlement COGS for " + docNumber,
	}

	for _, brand := range sortedBrands(netByBrand) {
		cost := netByBrand[brand]
		if cost.IsZero() {
			continue
		}

		cogsID, cogsOK := index.SubAccountID(mapping.COGSParentID, brand)
		invID, invOK := index.SubAccountID(mapping.InventoryParentID, brand)
		if !cogsOK || !invOK {
			blocks.Add(missingSubAccountBlock(brand, mapping, cogsOK, invOK))
			continue
		}

		for _, comp := range valueobject.Components() {
			net := cost.Get(comp)
			entry.addPair(net, cogsID, invID,
				fmt.Sprintf("COGS %s %s", brand, strings.ToLower(string(comp))))
		}
	}

	return entry, blocks
}

// BuildPnLEntry constructs the P&L reallocation entry moving each fee
// bucket's allocated amounts from the marketplace-level parent account to
// the brand sub-accounts. The same debit/credit-by-sign rule applies: a
// positive allocation debits the brand sub-account and credits the parent.
func BuildPnLEntry(
	txnDate time.Time,
	docNumber string,
	allocations []pnl.BrandAmount,
	mapping AccountMapping,
	index *AccountIndex,
) (Entry, settlement.BlockList) {
	var blocks settlement.BlockList
	entry := Entry{
		TxnDate:     txnDate,
		DocNumber:   docNumber + "-PNL",
		PrivateNote: "Settlement P&L reallocation for " + docNumber,
	}

	for _, alloc := range allocations {
		parentID := mapping.FeeBucketParentIDs[alloc.Bucket]
		if parentID == "" {
			blocks.Add(settlement.NewBlockWithDetails(settlement.BlockMissingAccountMapping,
				fmt.Sprintf("no parent account configured for fee bucket %s", alloc.Bucket),
				map[string]any{"bucket": string(alloc.Bucket)},
			))
			continue
		}

		brandID, ok := index.SubAccountID(parentID, alloc.Brand)
		if !ok {
			blocks.Add(settlement.NewBlockWithDetails(settlement.BlockMissingBrandSubAcct,
				fmt.Sprintf("no %s sub-account for brand %s", alloc.Bucket, alloc.Brand),
				map[string]any{"brand": alloc.Brand, "parent_account_id": parentID},
			))
			continue
		}

		entry.addPair(alloc.AmountCents, brandID, parentID,
			fmt.Sprintf("%s %s", alloc.Bucket, alloc.Brand))
	}

	return entry, blocks
}

// NetCostByBrand folds sale and return costs into the per-brand net used
// by the COGS entry. Returns subtract: a net negative brand means more
// cost came back than went out this settlement.
func NetCostByBrand(
	saleCosts map[string]valueobject.ComponentCost,
	returnCosts map[string]valueobject.ComponentCost,
) map[string]valueobject.ComponentCost {
	net := make(map[string]valueobject.ComponentCost, len(saleCosts))
	for brand, cost := range saleCosts {
		net[brand] = cost
	}
	for brand, cost := range returnCosts {
		net[brand] = net[brand].Sub(cost)
	}
	return net
}

func sortedBrands(m map[string]valueobject.ComponentCost) []string {
	brands := make([]string, 0, len(m))
	for brand := range m {
		brands = append(brands, brand)
	}
	sort.Strings(brands)
	return brands
}

func missingSubAccountBlock(brand string, mapping AccountMapping, cogsOK, invOK bool) settlement.Block {
	parent := mapping.COGSParentID
	kind := "COGS"
	if cogsOK && !invOK {
		parent = mapping.InventoryParentID
		kind = "inventory"
	}
	return settlement.NewBlockWithDetails(settlement.BlockMissingBrandSubAcct,
		fmt.Sprintf("no %s sub-account for brand %s", kind, brand),
		map[string]any{"brand": brand, "parent_account_id": parent},
	)
}

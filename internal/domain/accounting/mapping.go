package accounting

import (
	"sort"
	"strings"

	"github.com/sellerledger/backend/internal/domain/pnl"
)

// AccountMapping is the account configuration for one marketplace,
// validated once at the start of a run with every required key enumerated,
// rather than looked up ad hoc throughout the builder.
type AccountMapping struct {
	InventoryParentID  string
	COGSParentID       string
	FeeBucketParentIDs map[pnl.FeeBucket]string
}

// MissingKeys returns the names of required mapping keys that are not
// configured, sorted for stable diagnostics. An empty result means the
// mapping is complete.
func (m AccountMapping) MissingKeys() []string {
	var missing []string
	if m.InventoryParentID == "" {
		missing = append(missing, "inventory_parent_account")
	}
	if m.COGSParentID == "" {
		missing = append(missing, "cogs_parent_account")
	}
	for _, bucket := range pnl.Buckets() {
		if m.FeeBucketParentIDs[bucket] == "" {
			missing = append(missing, "fee_bucket_parent_account."+strings.ToLower(string(bucket)))
		}
	}
	sort.Strings(missing)
	return missing
}

// AccountIndex resolves brand sub-accounts by (parent account, brand name)
// from the account list fetched for the run.
type AccountIndex struct {
	byParentAndName map[string]string
}

// NewAccountIndex builds an index over the fetched accounts. Inactive
// accounts are excluded so a deactivated sub-account surfaces as missing
// rather than silently receiving postings.
func NewAccountIndex(accounts []Account) *AccountIndex {
	idx := &AccountIndex{byParentAndName: make(map[string]string, len(accounts))}
	for _, a := range accounts {
		if !a.Active || a.ParentID == "" {
			continue
		}
		idx.byParentAndName[subAccountKey(a.ParentID, a.Name)] = a.ID
	}
	return idx
}

// SubAccountID resolves the brand sub-account under a parent.
func (ix *AccountIndex) SubAccountID(parentID, brand string) (string, bool) {
	id, ok := ix.byParentAndName[subAccountKey(parentID, brand)]
	return id, ok
}

func subAccountKey(parentID, name string) string {
	return parentID + "::" + strings.ToUpper(strings.TrimSpace(name))
}

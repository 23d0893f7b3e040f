package settlement

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// AuditRow is one raw marketplace settlement row, exactly as ingested.
// Amounts are signed cents; quantity is signed (refund rows carry negative
// quantities).
type AuditRow struct {
	Invoice        string
	Marketplace    string
	Date           time.Time // day precision
	OrderID        string
	SKU            string
	Quantity       int64
	Description    string
	NetAmountCents int64
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeSKU canonicalizes a SKU for use as a map key: trimmed, internal
// whitespace runs collapsed to a single dash, uppercased. Every place a SKU
// is keyed or compared must go through this.
func NormalizeSKU(sku string) string {
	sku = strings.TrimSpace(sku)
	sku = whitespaceRun.ReplaceAllString(sku, "-")
	return strings.ToUpper(sku)
}

const (
	salePrincipalPrefix   = "order principal"
	refundPrincipalPrefix = "refund principal"
)

// IsSalePrincipal reports whether a row's description marks the core sale
// amount of an order line, as opposed to a fee line item.
func IsSalePrincipal(description string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(description)), salePrincipalPrefix)
}

// IsRefundPrincipal reports whether a row's description marks the core
// refund amount of an order line.
func IsRefundPrincipal(description string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(description)), refundPrincipalPrefix)
}

// IsPrincipal reports whether the row is either kind of principal row.
func IsPrincipal(description string) bool {
	return IsSalePrincipal(description) || IsRefundPrincipal(description)
}

// PrincipalGroup aggregates the principal rows for one (order, SKU) pair
// within an invoice. Quantity and amount are signed sums; Date is the
// earliest row date seen.
type PrincipalGroup struct {
	OrderID     string
	SKU         string // normalized
	Date        time.Time
	Quantity    int64
	AmountCents int64
}

// Key returns the grouping key for a principal group.
func (g PrincipalGroup) Key() string {
	return g.OrderID + "::" + g.SKU
}

// GroupPrincipals splits an invoice's audit rows into sale and refund
// principal groups. Rows with an empty SKU or zero quantity are skipped,
// never rejected; repeated rows for the same (order, SKU) accumulate.
func GroupPrincipals(rows []AuditRow) (sales, refunds []PrincipalGroup) {
	saleGroups := make(map[string]*PrincipalGroup)
	refundGroups := make(map[string]*PrincipalGroup)

	for _, row := range rows {
		var target map[string]*PrincipalGroup
		switch {
		case IsSalePrincipal(row.Description):
			target = saleGroups
		case IsRefundPrincipal(row.Description):
			target = refundGroups
		default:
			continue
		}

		sku := NormalizeSKU(row.SKU)
		if sku == "" || row.Quantity == 0 {
			continue
		}

		key := row.OrderID + "::" + sku
		group, ok := target[key]
		if !ok {
			group = &PrincipalGroup{OrderID: row.OrderID, SKU: sku, Date: row.Date}
			target[key] = group
		}
		group.Quantity += row.Quantity
		group.AmountCents += row.NetAmountCents
		if row.Date.Before(group.Date) {
			group.Date = row.Date
		}
	}

	return sortGroups(saleGroups), sortGroups(refundGroups)
}

func sortGroups(groups map[string]*PrincipalGroup) []PrincipalGroup {
	out := make([]PrincipalGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})
	return out
}

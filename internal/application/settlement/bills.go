package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sellerledger/backend/internal/domain/inventory"
	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared/valueobject"
)

const billsPageSize = 100

// fetchAllBills pages through the accounting system's bills up to endDate.
// Paging is by startPosition and idempotent, so a retried call re-reads the
// same page; short pages are tolerated and only an empty page ends the
// scan.
func fetchAllBills(ctx context.Context, client AccountingClient, sess Session, endDate time.Time) ([]Bill, Session, error) {
	var all []Bill
	startPosition := 1
	for {
		page, next, err := client.FetchBills(ctx, sess, endDate, startPosition, billsPageSize)
		if err != nil {
			return nil, sess, err
		}
		sess = next
		if len(page) == 0 {
			return all, sess, nil
		}
		all = append(all, page...)
		startPosition += len(page)
	}
}

// Bill lines land on component accounts by name. Lines on accounts outside
// this set are ordinary expenses, not inventory receipts, and are skipped.
var componentAccountKeywords = []struct {
	keyword   string
	component valueobject.Component
}{
	{"manufactur", valueobject.ComponentManufacturing},
	{"freight", valueobject.ComponentFreight},
	{"shipping", valueobject.ComponentFreight},
	{"duty", valueobject.ComponentDuty},
	{"customs", valueobject.ComponentDuty},
	{"accessor", valueobject.ComponentMfgAccessories},
}

func componentForAccount(accountName string) (valueobject.Component, bool) {
	name := strings.ToLower(accountName)
	for _, k := range componentAccountKeywords {
		if strings.Contains(name, k.keyword) {
			return k.component, true
		}
	}
	return "", false
}

// parseBillEvents turns bills into inbound ledger events. A line that names
// a SKU on a component account but has a non-positive unit count cannot be
// costed and produces a BILLS_PARSE_ERROR block instead of a guess.
func parseBillEvents(bills []Bill) ([]inventory.LedgerEvent, settlement.BlockList) {
	var events []inventory.LedgerEvent
	var blocks settlement.BlockList

	for _, bill := range bills {
		for _, line := range bill.Lines {
			sku := settlement.NormalizeSKU(line.SKU)
			if sku == "" {
				continue
			}
			component, ok := componentForAccount(line.AccountName)
			if !ok {
				continue
			}
			if line.Units <= 0 || line.AmountCents < 0 {
				blocks.Add(settlement.NewBlockWithDetails(settlement.BlockBillsParseError,
					fmt.Sprintf("bill %s has an uncostable line for SKU %s", bill.ID, sku),
					map[string]any{
						"bill_id":      bill.ID,
						"sku":          sku,
						"units":        line.Units,
						"amount_cents": line.AmountCents,
					},
				))
				continue
			}

			cost := valueobject.ComponentCost{}.WithComponent(component, line.AmountCents)
			events = append(events, inventory.LedgerEvent{
				Date:   bill.TxnDate,
				SKU:    sku,
				Units:  line.Units,
				Source: inventory.SourceReceipt,
				Cost:   cost,
			})
		}
	}

	return events, blocks
}

package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared/valueobject"
)

// missingCostBasisSKULimit caps how many SKUs get an individual
// MISSING_COST_BASIS block; anything beyond is rolled up into one summary
// block so the block list stays bounded on large failures.
const missingCostBasisSKULimit = 200

// SaleMovement is a new sale to be costed by the replay.
type SaleMovement struct {
	OrderID string
	SKU     string // normalized
	Date    time.Time
	Units   int64
}

// SaleCost is the cost basis the replay assigned to one new sale.
type SaleCost struct {
	OrderID string
	SKU     string
	Cost    valueobject.ComponentCost
}

type replayEvent struct {
	LedgerEvent
	seq     int // insertion order, stable tiebreak
	saleIdx int // index into newSales, -1 for historical events
}

// Replay runs the FIFO cost ledger for every SKU touched by the inputs.
//
// The complete history is replayed on every run rather than keeping a
// running balance: bills can be added or edited after the fact, so only a
// full replay against the current bill data guarantees a consistent FIFO
// order regardless of when purchases were entered.
//
// history carries inbound receipts plus all previously known sales and
// returns up to the scope's max date; newSales are the movements being
// costed now. A sale that cannot be fully covered by remaining layers gets
// no cost (it is excluded from the result, not zero-costed) and its SKU is
// flagged MISSING_COST_BASIS.
func Replay(history []LedgerEvent, newSales []SaleMovement) ([]SaleCost, settlement.BlockList) {
	events := make([]replayEvent, 0, len(history)+len(newSales))
	for _, e := range history {
		events = append(events, replayEvent{LedgerEvent: e, seq: len(events), saleIdx: -1})
	}
	for i, s := range newSales {
		events = append(events, replayEvent{
			LedgerEvent: NewSaleEvent(s.Date, s.SKU, s.Units, s.OrderID),
			seq:         len(events),
			saleIdx:     i,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		if events[i].Kind() != events[j].Kind() {
			return events[i].Kind() < events[j].Kind()
		}
		return events[i].seq < events[j].seq
	})

	queues := make(map[string]*fifoQueue)
	queueFor := func(sku string) *fifoQueue {
		q, ok := queues[sku]
		if !ok {
			q = &fifoQueue{}
			queues[sku] = q
		}
		return q
	}

	costs := make([]SaleCost, 0, len(newSales))
	missing := make(map[string]int)

	for _, e := range events {
		q := queueFor(e.SKU)
		switch e.Source {
		case SourceReceipt:
			q.push(e.Units, e.Cost)
		case SourceReturn:
			q.pushFront(e.Units, e.Cost)
		case SourceSale:
			consumed, ok := q.consume(e.Units)
			if !ok {
				missing[e.SKU]++
				continue
			}
			if e.saleIdx >= 0 {
				costs = append(costs, SaleCost{OrderID: e.OrderID, SKU: e.SKU, Cost: consumed})
			}
		}
	}

	return costs, summarizeMissing(missing)
}

func summarizeMissing(missing map[string]int) settlement.BlockList {
	var blocks settlement.BlockList
	if len(missing) == 0 {
		return blocks
	}

	skus := make([]string, 0, len(missing))
	for sku := range missing {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	listed := skus
	if len(listed) > missingCostBasisSKULimit {
		listed = skus[:missingCostBasisSKULimit]
	}
	for _, sku := range listed {
		blocks.Add(settlement.NewBlockWithDetails(settlement.BlockMissingCostBasis,
			fmt.Sprintf("insufficient inventory cost basis for SKU %s", sku),
			map[string]any{"sku": sku, "occurrences": missing[sku]},
		))
	}

	if len(skus) > missingCostBasisSKULimit {
		rest := skus[missingCostBasisSKULimit:]
		occurrences := 0
		for _, sku := range rest {
			occurrences += missing[sku]
		}
		blocks.Add(settlement.NewBlockWithDetails(settlement.BlockMissingCostBasis,
			fmt.Sprintf("insufficient inventory cost basis for %d further SKUs", len(rest)),
			map[string]any{"additional_skus": len(rest), "occurrences": occurrences},
		))
	}

	return blocks
}

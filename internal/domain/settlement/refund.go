package settlement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerledger/backend/internal/domain/shared/valueobject"
)

// Refund amount tolerance band. Refunds regularly bundle promotional
// adjustments, so the actual amount may deviate from the quantity-scaled
// expectation; inside the band the refund is accepted, outside it is
// flagged for manual review. Both endpoints are inclusive.
var (
	refundToleranceLow  = decimal.NewFromFloat(0.8)
	refundToleranceHigh = decimal.NewFromFloat(1.1)
)

// SaleKey identifies the originating sale of a refund.
type SaleKey struct {
	Marketplace string
	OrderID     string
	SKU         string // normalized
}

// KnownSale is a previously processed sale with its stored cost basis and
// return history. RemainingCost tracks the cost not yet reversed by
// returns, so successive partial refunds sum exactly to the original cost.
type KnownSale struct {
	Marketplace      string
	OrderID          string
	SKU              string // normalized
	Date             time.Time
	Quantity         int64
	AmountCents      int64
	Cost             valueobject.ComponentCost
	RemainingCost    valueobject.ComponentCost
	ReturnedQuantity int64
}

// Key returns the lookup key for this sale.
func (s KnownSale) Key() SaleKey {
	return SaleKey{Marketplace: s.Marketplace, OrderID: s.OrderID, SKU: s.SKU}
}

// ApplyReturn folds one already committed return into the sale's running
// totals. The lifetime quantity and cost invariants only hold if every
// prior return is applied before matching new refunds.
func (s *KnownSale) ApplyReturn(quantity int64, cost valueobject.ComponentCost) {
	s.ReturnedQuantity += quantity
	s.RemainingCost = s.RemainingCost.Sub(cost)
}

// ReturnRecord is a validated refund with its proportionally derived cost
// basis. Refunds never create new ledger consumption; they reverse a slice
// of a specific prior sale's cost.
type ReturnRecord struct {
	OrderID     string
	SKU         string // normalized
	Date        time.Time
	Quantity    int64
	AmountCents int64
	Cost        valueobject.ComponentCost
}

// MatchRefunds validates each refund group against the known sales and
// derives return records for the ones that pass. Failures become blocks;
// the sales map is mutated in place (returned quantity and remaining cost)
// so a single invoice containing several refunds for one sale validates
// against the running totals.
func MatchRefunds(marketplace string, refunds []PrincipalGroup, sales map[SaleKey]*KnownSale) ([]ReturnRecord, BlockList) {
	var blocks BlockList
	returns := make([]ReturnRecord, 0, len(refunds))

	for _, group := range refunds {
		refundQty := group.Quantity
		if refundQty < 0 {
			refundQty = -refundQty
		}

		sale, ok := sales[SaleKey{Marketplace: marketplace, OrderID: group.OrderID, SKU: group.SKU}]
		if !ok {
			blocks.Add(NewBlockWithDetails(BlockRefundUnmatched,
				fmt.Sprintf("no originating sale found for refund of %s on order %s", group.SKU, group.OrderID),
				map[string]any{"order_id": group.OrderID, "sku": group.SKU},
			))
			continue
		}

		if sale.ReturnedQuantity+refundQty > sale.Quantity {
			blocks.Add(NewBlockWithDetails(BlockRefundPartial,
				fmt.Sprintf("refund quantity exceeds remaining sale quantity for %s on order %s", group.SKU, group.OrderID),
				map[string]any{
					"order_id":          group.OrderID,
					"sku":               group.SKU,
					"sale_quantity":     sale.Quantity,
					"already_returned":  sale.ReturnedQuantity,
					"refund_quantity":   refundQty,
				},
			))
			continue
		}

		expected := valueobject.RoundHalfUpRatio(sale.AmountCents, refundQty, sale.Quantity)
		if expected == 0 {
			blocks.Add(NewBlockWithDetails(BlockRefundPartial,
				fmt.Sprintf("expected refund amount is zero for %s on order %s, cannot validate", group.SKU, group.OrderID),
				map[string]any{"order_id": group.OrderID, "sku": group.SKU},
			))
			continue
		}

		actual := group.AmountCents
		ratio := decimal.NewFromInt(actual).Abs().Div(decimal.NewFromInt(expected).Abs())
		if ratio.LessThan(refundToleranceLow) || ratio.GreaterThan(refundToleranceHigh) {
			blocks.Add(NewBlockWithDetails(BlockRefundPartial,
				fmt.Sprintf("refund amount for %s on order %s deviates from expected beyond tolerance", group.SKU, group.OrderID),
				map[string]any{
					"order_id":       group.OrderID,
					"sku":            group.SKU,
					"expected_cents": expected,
					"actual_cents":   actual,
					"ratio":          ratio.StringFixed(4),
				},
			))
			continue
		}

		remainingQty := sale.Quantity - sale.ReturnedQuantity
		removed, remaining := sale.RemainingCost.RemoveProportion(refundQty, remainingQty)
		sale.RemainingCost = remaining
		sale.ReturnedQuantity += refundQty

		returns = append(returns, ReturnRecord{
			OrderID:     group.OrderID,
			SKU:         group.SKU,
			Date:        group.Date,
			Quantity:    refundQty,
			AmountCents: group.AmountCents,
			Cost:        removed,
		})
	}

	return returns, blocks
}

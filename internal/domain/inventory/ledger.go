package inventory

import (
	"time"

	"github.com/sellerledger/backend/internal/domain/shared/valueobject"
)

// EventKind orders inventory movements within a day: inbound events sort
// before outbound events so same-day receipts are available for same-day
// sales.
type EventKind int

const (
	KindInbound EventKind = iota
	KindOutbound
)

// EventSource tags where a ledger event came from.
type EventSource string

const (
	SourceReceipt EventSource = "RECEIPT"
	SourceSale    EventSource = "SALE"
	SourceReturn  EventSource = "RETURN"
)

// LedgerEvent is a dated inventory movement for one SKU. Receipts and
// returns add units (returns re-inject at the front of the FIFO queue at
// the return's own cost basis); sales consume them. Cost is the total for
// Units on inbound events and unused on sales.
type LedgerEvent struct {
	Date    time.Time
	SKU     string // normalized
	Units   int64
	Source  EventSource
	OrderID string
	Cost    valueobject.ComponentCost
}

// Kind returns the ordering kind for the event.
func (e LedgerEvent) Kind() EventKind {
	if e.Source == SourceSale {
		return KindOutbound
	}
	return KindInbound
}

// NewReceiptEvent builds an inbound event from a bill line: units received
// at a per-unit cost.
func NewReceiptEvent(date time.Time, sku string, units int64, unitCost valueobject.ComponentCost) LedgerEvent {
	return LedgerEvent{
		Date:   date,
		SKU:    sku,
		Units:  units,
		Source: SourceReceipt,
		Cost:   unitCost.MulUnits(units),
	}
}

// NewSaleEvent builds an outbound event consuming units for an order.
func NewSaleEvent(date time.Time, sku string, units int64, orderID string) LedgerEvent {
	return LedgerEvent{
		Date:    date,
		SKU:     sku,
		Units:   units,
		Source:  SourceSale,
		OrderID: orderID,
	}
}

// NewReturnEvent builds a re-injection event carrying the total cost the
// return reversed out of its sale.
func NewReturnEvent(date time.Time, sku string, units int64, cost valueobject.ComponentCost, orderID string) LedgerEvent {
	return LedgerEvent{
		Date:    date,
		SKU:     sku,
		Units:   units,
		Source:  SourceReturn,
		OrderID: orderID,
		Cost:    cost,
	}
}

// costLayer is a remaining slice of an inbound event. Layers are owned
// exclusively by one SKU's queue and mutated during replay.
type costLayer struct {
	units int64
	cost  valueobject.ComponentCost // total for the remaining units
}

// fifoQueue is the per-SKU layer queue; index 0 is the oldest layer.
type fifoQueue struct {
	layers []costLayer
}

func (q *fifoQueue) push(units int64, cost valueobject.ComponentCost) {
	q.layers = append(q.layers, costLayer{units: units, cost: cost})
}

// pushFront re-injects returned units ahead of every existing layer so the
// next consumption picks them up first.
func (q *fifoQueue) pushFront(units int64, cost valueobject.ComponentCost) {
	q.layers = append([]costLayer{{units: units, cost: cost}}, q.layers...)
}

func (q *fifoQueue) available() int64 {
	var total int64
	for _, l := range q.layers {
		total += l.units
	}
	return total
}

// consume depletes layers oldest-first. When the queue holds fewer units
// than requested it drains completely and reports failure; the queue never
// goes negative.
func (q *fifoQueue) consume(units int64) (valueobject.ComponentCost, bool) {
	if q.available() < units {
		q.layers = nil
		return valueobject.ComponentCost{}, false
	}

	var consumed valueobject.ComponentCost
	remaining := units
	for remaining > 0 {
		layer := &q.layers[0]
		if layer.units <= remaining {
			consumed = consumed.Add(layer.cost)
			remaining -= layer.units
			q.layers = q.layers[1:]
			continue
		}
		taken, rest := layer.cost.RemoveProportion(remaining, layer.units)
		consumed = consumed.Add(taken)
		layer.units -= remaining
		layer.cost = rest
		remaining = 0
	}
	return consumed, true
}

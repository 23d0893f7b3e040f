package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellerledger/backend/internal/domain/shared"
	"github.com/sellerledger/backend/internal/domain/shared/valueobject"
)

// SettlementProcessing is the durable idempotency anchor for one processed
// settlement. It is unique by settlement journal entry id and unique by
// (marketplace, invoice), and stores the processing hash of the exact row
// set that produced it. Created exactly once, atomically, alongside the
// sale and return rows.
type SettlementProcessing struct {
	shared.BaseEntity
	SettlementJournalEntryID string `gorm:"uniqueIndex"`
	Marketplace              string `gorm:"uniqueIndex:idx_settlement_marketplace_invoice"`
	InvoiceID                string `gorm:"uniqueIndex:idx_settlement_marketplace_invoice"`
	ProcessingHash           string
	COGSJournalEntryID       string `gorm:"column:cogs_journal_entry_id"`
	PnLJournalEntryID        string `gorm:"column:pnl_journal_entry_id"`
}

// NewSettlementProcessing creates the processing record for a run.
func NewSettlementProcessing(settlementJournalEntryID, marketplace, invoiceID, processingHash, cogsEntryID, pnlEntryID string) *SettlementProcessing {
	return &SettlementProcessing{
		BaseEntity:               shared.NewBaseEntity(),
		SettlementJournalEntryID: settlementJournalEntryID,
		Marketplace:              marketplace,
		InvoiceID:                invoiceID,
		ProcessingHash:           processingHash,
		COGSJournalEntryID:       cogsEntryID,
		PnLJournalEntryID:        pnlEntryID,
	}
}

// OrderSale is a costed sale persisted by a processing run. Sale rows are
// immutable once committed; how much of a sale later refunds reversed is
// derived by folding the committed return rows over it, never stored.
type OrderSale struct {
	shared.BaseEntity
	SettlementProcessingID uuid.UUID
	Marketplace            string `gorm:"index:idx_order_sale_key"`
	OrderID                string `gorm:"index:idx_order_sale_key"`
	SKU                    string `gorm:"index:idx_order_sale_key"`
	Date                   time.Time
	Quantity               int64
	AmountCents            int64
	Cost                   valueobject.ComponentCost `gorm:"embedded;embeddedPrefix:cost_"`
}

// NewOrderSale creates a costed sale row for a processing run.
func NewOrderSale(marketplace string, group PrincipalGroup, cost valueobject.ComponentCost) *OrderSale {
	return &OrderSale{
		BaseEntity:  shared.NewBaseEntity(),
		Marketplace: marketplace,
		OrderID:     group.OrderID,
		SKU:         group.SKU,
		Date:        group.Date,
		Quantity:    group.Quantity,
		AmountCents: group.AmountCents,
		Cost:        cost,
	}
}

// AsKnownSale converts the stored row to the matching view used by refund
// validation, with no returns applied yet. Callers fold the committed
// return history over it before matching.
func (s *OrderSale) AsKnownSale() *KnownSale {
	return &KnownSale{
		Marketplace:   s.Marketplace,
		OrderID:       s.OrderID,
		SKU:           s.SKU,
		Date:          s.Date,
		Quantity:      s.Quantity,
		AmountCents:   s.AmountCents,
		Cost:          s.Cost,
		RemainingCost: s.Cost,
	}
}

// OrderReturn is a validated refund persisted by a processing run, carrying
// the cost slice it reversed out of the originating sale.
type OrderReturn struct {
	shared.BaseEntity
	SettlementProcessingID uuid.UUID
	Marketplace            string
	OrderID                string
	SKU                    string
	Date                   time.Time
	Quantity               int64
	AmountCents            int64
	Cost                   valueobject.ComponentCost `gorm:"embedded;embeddedPrefix:cost_"`
}

// NewOrderReturn creates a return row from a validated return record.
func NewOrderReturn(marketplace string, record ReturnRecord) *OrderReturn {
	return &OrderReturn{
		BaseEntity:  shared.NewBaseEntity(),
		Marketplace: marketplace,
		OrderID:     record.OrderID,
		SKU:         record.SKU,
		Date:        record.Date,
		Quantity:    record.Quantity,
		AmountCents: record.AmountCents,
		Cost:        record.Cost,
	}
}

package settlement

import (
	"time"

	"github.com/sellerledger/backend/internal/domain/accounting"
	"github.com/sellerledger/backend/internal/domain/inventory"
	"github.com/sellerledger/backend/internal/domain/settlement"
)

// State is the processing state machine. Blocked is terminal for the
// current attempt; no partial posting ever occurs.
type State string

const (
	StateComputing State = "COMPUTING"
	StateBlocked   State = "BLOCKED"
	StateReady     State = "READY"
	StatePosting   State = "POSTING"
	StateCommitted State = "COMMITTED"
)

// Preview is the full diagnostic result of a processing computation. It is
// always producible, blocked or not; only an empty block list makes it
// postable.
type Preview struct {
	SettlementJournalEntryID string                    `json:"settlement_journal_entry_id"`
	Marketplace              string                    `json:"marketplace"`
	InvoiceID                string                    `json:"invoice_id"`
	PeriodFrom               time.Time                 `json:"period_from"`
	PeriodTo                 time.Time                 `json:"period_to"`
	ProcessingHash           string                    `json:"processing_hash"`
	State                    State                     `json:"state"`
	Blocks                   settlement.BlockList      `json:"blocks"`
	SaleCosts                []inventory.SaleCost      `json:"sale_costs"`
	Returns                  []settlement.ReturnRecord `json:"returns"`
	COGSEntry                accounting.Entry          `json:"cogs_entry"`
	PnLEntry                 accounting.Entry          `json:"pnl_entry"`
	COGSJournalEntryID       string                    `json:"cogs_journal_entry_id,omitempty"`
	PnLJournalEntryID        string                    `json:"pnl_journal_entry_id,omitempty"`
}

// Postable reports whether the preview can be posted.
func (p *Preview) Postable() bool {
	return p.Blocks.Empty()
}

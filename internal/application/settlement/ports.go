package settlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerledger/backend/internal/domain/accounting"
	"github.com/sellerledger/backend/internal/domain/inventory"
	"github.com/sellerledger/backend/internal/domain/settlement"
)

// Session is the accounting system's connection token. Every client call
// may return a refreshed session that must be threaded to the next call.
type Session struct {
	Token string
}

// BillLine is one line of a purchase bill fetched from the accounting
// system.
type BillLine struct {
	AccountName string
	SKU         string
	Units       int64
	AmountCents int64
	Description string
}

// Bill is a purchase bill carrying inventory receipt lines.
type Bill struct {
	ID      string
	TxnDate time.Time
	Lines   []BillLine
}

// AccountingClient is the external accounting system contract.
// Authentication failures surface as shared.ErrUnauthenticated and must
// propagate uncaught so the caller can trigger re-authentication.
type AccountingClient interface {
	FetchJournalEntry(ctx context.Context, sess Session, id string) (accounting.JournalEntryRef, Session, error)
	FetchAccounts(ctx context.Context, sess Session, includeInactive bool) ([]accounting.Account, Session, error)
	// FetchBills returns one page of bills dated on or before endDate,
	// starting at startPosition. Pages may be short of maxResults without
	// being the last page; an empty page ends the scan.
	FetchBills(ctx context.Context, sess Session, endDate time.Time, startPosition, maxResults int) ([]Bill, Session, error)
	CreateJournalEntry(ctx context.Context, sess Session, entry accounting.Entry) (string, Session, error)
}

// AuditRowSource supplies the parsed settlement rows for one invoice,
// scoped to one marketplace.
type AuditRowSource interface {
	RowsForInvoice(ctx context.Context, marketplace, invoiceID string) ([]settlement.AuditRow, error)
}

// ProcessingRepository persists settlement processing records.
// CommitProcessing re-checks both uniqueness keys inside its transaction
// and returns shared.ErrAlreadyExists when another run won the race.
type ProcessingRepository interface {
	FindBySettlementEntryID(ctx context.Context, settlementJournalEntryID string) (*settlement.SettlementProcessing, error)
	FindByInvoice(ctx context.Context, marketplace, invoiceID string) (*settlement.SettlementProcessing, error)
	CommitProcessing(ctx context.Context, record *settlement.SettlementProcessing, sales []*settlement.OrderSale, returns []*settlement.OrderReturn) error
}

// OrderRepository reads the historical sales and returns needed by refund
// matching and ledger replay.
type OrderRepository interface {
	ListSalesUpTo(ctx context.Context, marketplace string, upTo time.Time) ([]settlement.OrderSale, error)
	ListReturnsUpTo(ctx context.Context, marketplace string, upTo time.Time) ([]settlement.OrderReturn, error)
}

// MappingRepository reads the per-marketplace configuration: SKU to brand
// ownership and the account mapping. AccountMapping returns
// shared.ErrNotFound when setup has never been completed.
type MappingRepository interface {
	SkuBrandMap(ctx context.Context, marketplace string) (map[string]string, error)
	AccountMapping(ctx context.Context, marketplace string) (accounting.AccountMapping, error)
}

// WeightRepository reads the external allocation weight data.
type WeightRepository interface {
	AdSpendBySKU(ctx context.Context, marketplace string, from, to time.Time) (map[string]decimal.Decimal, error)
	WarehousingBySKU(ctx context.Context, marketplace string, from, to time.Time) (map[string]decimal.Decimal, error)
}

// MappedBillSource supplies inbound events from bills the user mapped by
// hand, merged with the accounting-sourced bills before replay.
type MappedBillSource interface {
	InboundEvents(ctx context.Context, marketplace string, upTo time.Time) ([]inventory.LedgerEvent, error)
}

// ProcessingLock is a best-effort mutex around the posting phase. It only
// narrows the race window; the commit transaction's uniqueness re-check
// remains the correctness guarantee.
type ProcessingLock interface {
	// Acquire returns a release func and whether the lock was obtained.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

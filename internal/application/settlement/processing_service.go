package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/accounting"
	"github.com/sellerledger/backend/internal/domain/inventory"
	"github.com/sellerledger/backend/internal/domain/pnl"
	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared"
	"github.com/sellerledger/backend/internal/domain/shared/valueobject"
)

// processingLockTTL bounds how long the best-effort posting mutex is held.
const processingLockTTL = 2 * time.Minute

// ProcessingService is the settlement processing orchestrator. It computes
// a full diagnostic preview for a settlement and, when nothing blocks it,
// posts the two journal entries and commits the processing record
// atomically. One invocation is entirely sequential; concurrent invocations
// for the same settlement are resolved by the commit transaction's
// uniqueness re-check.
type ProcessingService struct {
	client         AccountingClient
	auditRows      AuditRowSource
	processingRepo ProcessingRepository
	orderRepo      OrderRepository
	mappingRepo    MappingRepository
	weightRepo     WeightRepository
	mappedBills    MappedBillSource
	lock           ProcessingLock // optional
	lockTTL        time.Duration
	logger         *zap.Logger
}

// ProcessingOption configures the processing service.
type ProcessingOption func(*ProcessingService)

// WithLockTTL overrides the posting lease duration.
func WithLockTTL(ttl time.Duration) ProcessingOption {
	return func(s *ProcessingService) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// NewProcessingService wires the orchestrator. lock may be nil.
func NewProcessingService(
	client AccountingClient,
	auditRows AuditRowSource,
	processingRepo ProcessingRepository,
	orderRepo OrderRepository,
	mappingRepo MappingRepository,
	weightRepo WeightRepository,
	mappedBills MappedBillSource,
	lock ProcessingLock,
	logger *zap.Logger,
	opts ...ProcessingOption,
) *ProcessingService {
	s := &ProcessingService{
		client:         client,
		auditRows:      auditRows,
		processingRepo: processingRepo,
		orderRepo:      orderRepo,
		mappingRepo:    mappingRepo,
		weightRepo:     weightRepo,
		mappedBills:    mappedBills,
		lock:           lock,
		lockTTL:        processingLockTTL,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// computation carries everything a successful compute produced, including
// the rows a commit would persist and the session to thread into posting.
type computation struct {
	preview    *Preview
	session    Session
	saleRows   []*settlement.OrderSale
	returnRows []*settlement.OrderReturn
}

// Preview computes the diagnostic preview without posting anything.
func (s *ProcessingService) Preview(ctx context.Context, sess Session, settlementEntryID string) (*Preview, error) {
	comp, err := s.compute(ctx, sess, settlementEntryID)
	if err != nil {
		return nil, err
	}
	return comp.preview, nil
}

// Process computes the preview and, if it is postable, posts the COGS
// entry, then the P&L entry, then commits the processing record plus all
// sale and return rows in one transaction. Both entries are posted before
// the commit: a crash in between leaves orphaned but harmless external
// postings, never a committed record missing its postings.
func (s *ProcessingService) Process(ctx context.Context, sess Session, settlementEntryID string) (*Preview, error) {
	comp, err := s.compute(ctx, sess, settlementEntryID)
	if err != nil {
		return nil, err
	}
	preview := comp.preview
	if !preview.Postable() {
		s.logger.Info("settlement processing blocked",
			zap.String("settlement_entry_id", settlementEntryID),
			zap.Int("block_count", len(preview.Blocks)),
		)
		return preview, nil
	}

	if s.lock != nil {
		release, acquired, lockErr := s.lock.Acquire(ctx, "settlement-processing:"+settlementEntryID, s.lockTTL)
		switch {
		case lockErr != nil:
			// Best effort only; the commit re-check stays authoritative.
			s.logger.Warn("processing lock unavailable, continuing",
				zap.String("settlement_entry_id", settlementEntryID),
				zap.Error(lockErr),
			)
		case !acquired:
			return preview, fmt.Errorf("settlement %s is being processed by another run: %w",
				settlementEntryID, shared.ErrConcurrencyConflict)
		default:
			defer release()
		}
	}

	preview.State = StatePosting
	sess = comp.session

	var cogsID, pnlID string
	if !preview.COGSEntry.Empty() {
		cogsID, sess, err = s.client.CreateJournalEntry(ctx, sess, preview.COGSEntry)
		if err != nil {
			return preview, fmt.Errorf("failed to post COGS journal entry: %w", err)
		}
	}
	if !preview.PnLEntry.Empty() {
		pnlID, sess, err = s.client.CreateJournalEntry(ctx, sess, preview.PnLEntry)
		if err != nil {
			return preview, fmt.Errorf("failed to post P&L journal entry: %w", err)
		}
	}

	record := settlement.NewSettlementProcessing(
		settlementEntryID,
		preview.Marketplace,
		preview.InvoiceID,
		preview.ProcessingHash,
		cogsID,
		pnlID,
	)
	for _, sale := range comp.saleRows {
		sale.SettlementProcessingID = record.ID
	}
	for _, ret := range comp.returnRows {
		ret.SettlementProcessingID = record.ID
	}

	if err := s.processingRepo.CommitProcessing(ctx, record, comp.saleRows, comp.returnRows); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return preview, fmt.Errorf("settlement %s was processed concurrently: %w",
				settlementEntryID, shared.ErrAlreadyExists)
		}
		return preview, fmt.Errorf("failed to commit settlement processing: %w", err)
	}

	preview.State = StateCommitted
	preview.COGSJournalEntryID = cogsID
	preview.PnLJournalEntryID = pnlID

	s.logger.Info("settlement processing committed",
		zap.String("settlement_entry_id", settlementEntryID),
		zap.String("marketplace", preview.Marketplace),
		zap.String("invoice_id", preview.InvoiceID),
		zap.String("cogs_journal_entry_id", cogsID),
		zap.String("pnl_journal_entry_id", pnlID),
		zap.Int("sales", len(comp.saleRows)),
		zap.Int("returns", len(comp.returnRows)),
	)
	return preview, nil
}

// compute runs every stage of the preview computation, accumulating blocks
// rather than short-circuiting so the diagnostics are complete. Only
// malformed inputs that leave nothing to compute over are hard errors.
func (s *ProcessingService) compute(ctx context.Context, sess Session, settlementEntryID string) (*computation, error) {
	entryRef, sess, err := s.client.FetchJournalEntry(ctx, sess, settlementEntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settlement journal entry %s: %w", settlementEntryID, err)
	}

	meta, err := settlement.ParseDocNumber(entryRef.DocNumber)
	if err != nil {
		return nil, err
	}
	invoiceID := entryRef.DocNumber
	marketplace := meta.Marketplace

	rows, err := s.auditRows.RowsForInvoice(ctx, marketplace, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit rows for invoice %s: %w", invoiceID, err)
	}
	if len(rows) == 0 {
		return nil, shared.NewDomainError("EMPTY_AUDIT_DATA",
			fmt.Sprintf("no audit rows found for invoice %s on %s", invoiceID, marketplace))
	}

	hash := settlement.ProcessingHash(rows)
	preview := &Preview{
		SettlementJournalEntryID: settlementEntryID,
		Marketplace:              marketplace,
		InvoiceID:                invoiceID,
		PeriodFrom:               meta.PeriodFrom,
		PeriodTo:                 meta.PeriodTo,
		ProcessingHash:           hash,
		State:                    StateComputing,
	}
	var blocks settlement.BlockList

	priorBlocks, err := s.checkPriorProcessing(ctx, settlementEntryID, marketplace, invoiceID, hash)
	if err != nil {
		return nil, err
	}
	blocks.Merge(priorBlocks)

	mapping, mappingBlocks, err := s.loadAccountMapping(ctx, marketplace)
	if err != nil {
		return nil, err
	}
	blocks.Merge(mappingBlocks)

	skuBrand, err := s.mappingRepo.SkuBrandMap(ctx, marketplace)
	if err != nil {
		return nil, fmt.Errorf("failed to load SKU brand mappings: %w", err)
	}
	blocks.Merge(checkSkuMappingCompleteness(rows, skuBrand))

	saleGroups, refundGroups := settlement.GroupPrincipals(rows)

	maxDate := meta.PeriodTo
	for _, row := range rows {
		if row.Date.After(maxDate) {
			maxDate = row.Date
		}
	}

	histSales, err := s.orderRepo.ListSalesUpTo(ctx, marketplace, maxDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load historical sales: %w", err)
	}
	histReturns, err := s.orderRepo.ListReturnsUpTo(ctx, marketplace, maxDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load historical returns: %w", err)
	}

	known := make(map[settlement.SaleKey]*settlement.KnownSale, len(histSales))
	for i := range histSales {
		ks := histSales[i].AsKnownSale()
		known[ks.Key()] = ks
	}
	// Fold the committed return history into the sales so lifetime quantity
	// and remaining cost reflect refunds validated in earlier invoices.
	for _, hr := range histReturns {
		key := settlement.SaleKey{Marketplace: hr.Marketplace, OrderID: hr.OrderID, SKU: hr.SKU}
		if ks, ok := known[key]; ok {
			ks.ApplyReturn(hr.Quantity, hr.Cost)
		}
	}

	for _, group := range saleGroups {
		key := settlement.SaleKey{Marketplace: marketplace, OrderID: group.OrderID, SKU: group.SKU}
		if _, exists := known[key]; exists {
			blocks.Add(settlement.NewBlockWithDetails(settlement.BlockOrderAlreadyProcessed,
				fmt.Sprintf("sale for %s on order %s was already processed", group.SKU, group.OrderID),
				map[string]any{"order_id": group.OrderID, "sku": group.SKU},
			))
		}
	}

	returns, refundBlocks := settlement.MatchRefunds(marketplace, refundGroups, known)
	blocks.Merge(refundBlocks)

	accounts, sess, err := s.client.FetchAccounts(ctx, sess, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	index := accounting.NewAccountIndex(accounts)

	inboundEvents, sess, billBlocks := s.loadInboundEvents(ctx, sess, marketplace, maxDate)
	blocks.Merge(billBlocks)

	history := inboundEvents
	for _, hs := range histSales {
		history = append(history, inventory.NewSaleEvent(hs.Date, hs.SKU, hs.Quantity, hs.OrderID))
	}
	for _, hr := range histReturns {
		history = append(history, inventory.NewReturnEvent(hr.Date, hr.SKU, hr.Quantity, hr.Cost, hr.OrderID))
	}
	// Returns validated in this run re-inject their units too, exactly as
	// the next run's full replay will see them once committed.
	for _, ret := range returns {
		history = append(history, inventory.NewReturnEvent(ret.Date, ret.SKU, ret.Quantity, ret.Cost, ret.OrderID))
	}

	movements := make([]inventory.SaleMovement, 0, len(saleGroups))
	for _, group := range saleGroups {
		if group.Quantity <= 0 {
			continue
		}
		movements = append(movements, inventory.SaleMovement{
			OrderID: group.OrderID,
			SKU:     group.SKU,
			Date:    group.Date,
			Units:   group.Quantity,
		})
	}
	saleCosts, replayBlocks := inventory.Replay(history, movements)
	blocks.Merge(replayBlocks)

	cogsEntry, cogsBlocks := accounting.BuildCOGSEntry(
		entryRef.TxnDate, entryRef.DocNumber,
		netCostByBrand(saleCosts, returns, skuBrand),
		mapping, index,
	)
	blocks.Merge(cogsBlocks)

	allocations, pnlBlocks, err := s.allocateFees(ctx, marketplace, meta, rows, skuBrand, saleGroups)
	if err != nil {
		return nil, err
	}
	blocks.Merge(pnlBlocks)

	pnlEntry, pnlEntryBlocks := accounting.BuildPnLEntry(entryRef.TxnDate, entryRef.DocNumber, allocations, mapping, index)
	blocks.Merge(pnlEntryBlocks)

	preview.Blocks = blocks
	preview.SaleCosts = saleCosts
	preview.Returns = returns
	preview.COGSEntry = cogsEntry
	preview.PnLEntry = pnlEntry
	if blocks.Empty() {
		preview.State = StateReady
	} else {
		preview.State = StateBlocked
	}

	costByKey := make(map[string]inventory.SaleCost, len(saleCosts))
	for _, sc := range saleCosts {
		costByKey[sc.OrderID+"::"+sc.SKU] = sc
	}
	saleRows := make([]*settlement.OrderSale, 0, len(saleCosts))
	for _, group := range saleGroups {
		sc, ok := costByKey[group.Key()]
		if !ok {
			continue
		}
		saleRows = append(saleRows, settlement.NewOrderSale(marketplace, group, sc.Cost))
	}
	returnRows := make([]*settlement.OrderReturn, 0, len(returns))
	for _, ret := range returns {
		returnRows = append(returnRows, settlement.NewOrderReturn(marketplace, ret))
	}

	return &computation{
		preview:    preview,
		session:    sess,
		saleRows:   saleRows,
		returnRows: returnRows,
	}, nil
}

// checkPriorProcessing accumulates the idempotency precondition blocks:
// same settlement already processed, or same invoice processed before with
// a matching (safe re-submission) or mismatching (conflict) row hash.
// Lookup failures are hard errors; a preview must never report READY
// because the prior-processing check could not run.
func (s *ProcessingService) checkPriorProcessing(ctx context.Context, settlementEntryID, marketplace, invoiceID, hash string) (settlement.BlockList, error) {
	var blocks settlement.BlockList

	existing, err := s.processingRepo.FindBySettlementEntryID(ctx, settlementEntryID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up prior processing for settlement %s: %w", settlementEntryID, err)
	}
	if existing != nil {
		blocks.Add(settlement.NewBlockWithDetails(settlement.BlockAlreadyProcessed,
			fmt.Sprintf("settlement %s was already processed", settlementEntryID),
			map[string]any{"processing_id": existing.ID.String()},
		))
	}

	byInvoice, err := s.processingRepo.FindByInvoice(ctx, marketplace, invoiceID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up prior processing for invoice %s: %w", invoiceID, err)
	}
	if byInvoice != nil && byInvoice.SettlementJournalEntryID != settlementEntryID {
		if byInvoice.ProcessingHash == hash {
			blocks.Add(settlement.NewBlockWithDetails(settlement.BlockAlreadyProcessed,
				fmt.Sprintf("invoice %s was already processed with identical rows", invoiceID),
				map[string]any{"processing_id": byInvoice.ID.String()},
			))
		} else {
			blocks.Add(settlement.NewBlockWithDetails(settlement.BlockInvoiceConflict,
				fmt.Sprintf("invoice %s was previously processed with different rows", invoiceID),
				map[string]any{
					"processing_id": byInvoice.ID.String(),
					"previous_hash": byInvoice.ProcessingHash,
					"current_hash":  hash,
				},
			))
		}
	}

	return blocks, nil
}

func (s *ProcessingService) loadAccountMapping(ctx context.Context, marketplace string) (accounting.AccountMapping, settlement.BlockList, error) {
	var blocks settlement.BlockList
	mapping, err := s.mappingRepo.AccountMapping(ctx, marketplace)
	if errors.Is(err, shared.ErrNotFound) {
		blocks.Add(settlement.NewBlock(settlement.BlockMissingSetup,
			fmt.Sprintf("account mapping setup has not been completed for %s", marketplace)))
		return accounting.AccountMapping{}, blocks, nil
	}
	if err != nil {
		return accounting.AccountMapping{}, nil, fmt.Errorf("failed to load account mapping: %w", err)
	}
	for _, key := range mapping.MissingKeys() {
		blocks.Add(settlement.NewBlockWithDetails(settlement.BlockMissingAccountMapping,
			fmt.Sprintf("account mapping key %s is not configured", key),
			map[string]any{"key": key},
		))
	}
	return mapping, blocks, nil
}

// loadInboundEvents fetches accounting-sourced bills and merges them with
// the user-mapped bill sources. Fetch failures become blocks, not errors,
// so the preview stays informative; authentication failures propagate.
func (s *ProcessingService) loadInboundEvents(ctx context.Context, sess Session, marketplace string, upTo time.Time) ([]inventory.LedgerEvent, Session, settlement.BlockList) {
	var blocks settlement.BlockList
	var events []inventory.LedgerEvent

	bills, sess, err := fetchAllBills(ctx, s.client, sess, upTo)
	if err != nil {
		blocks.Add(settlement.NewBlockWithDetails(settlement.BlockBillsFetchError,
			fmt.Sprintf("failed to fetch bills: %v", err),
			map[string]any{"source": "accounting"},
		))
	} else {
		parsed, parseBlocks := parseBillEvents(bills)
		events = append(events, parsed...)
		blocks.Merge(parseBlocks)
	}

	mapped, err := s.mappedBills.InboundEvents(ctx, marketplace, upTo)
	if err != nil {
		blocks.Add(settlement.NewBlockWithDetails(settlement.BlockBillsFetchError,
			fmt.Sprintf("failed to load user-mapped bills: %v", err),
			map[string]any{"source": "user_mapped"},
		))
	} else {
		events = append(events, mapped...)
	}

	return events, sess, blocks
}

func (s *ProcessingService) allocateFees(
	ctx context.Context,
	marketplace string,
	meta settlement.SettlementMeta,
	rows []settlement.AuditRow,
	skuBrand map[string]string,
	saleGroups []settlement.PrincipalGroup,
) ([]pnl.BrandAmount, settlement.BlockList, error) {
	adWeights, err := s.weightRepo.AdSpendBySKU(ctx, marketplace, meta.PeriodFrom, meta.PeriodTo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ad spend weights: %w", err)
	}
	whWeights, err := s.weightRepo.WarehousingBySKU(ctx, marketplace, meta.PeriodFrom, meta.PeriodTo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load warehousing weights: %w", err)
	}

	salesUnits := make(map[string]int64, len(saleGroups))
	for _, group := range saleGroups {
		if group.Quantity > 0 {
			salesUnits[group.SKU] += group.Quantity
		}
	}

	allocations, blocks := pnl.Allocate(pnl.AllocationInput{
		Rows:       rows,
		SkuToBrand: skuBrand,
		BucketWeights: map[pnl.FeeBucket]map[string]decimal.Decimal{
			pnl.BucketAdvertising: adWeights,
			pnl.BucketStorage:     whWeights,
		},
		SalesUnits: salesUnits,
	})
	return allocations, blocks, nil
}

// netCostByBrand folds the replay's sale costs and the matched returns'
// costs into the per-brand nets the COGS builder posts. SKUs without a
// brand mapping were already blocked upstream and are skipped here.
func netCostByBrand(
	saleCosts []inventory.SaleCost,
	returns []settlement.ReturnRecord,
	skuBrand map[string]string,
) map[string]valueobject.ComponentCost {
	saleByBrand := make(map[string]valueobject.ComponentCost)
	for _, sc := range saleCosts {
		brand, ok := skuBrand[sc.SKU]
		if !ok {
			continue
		}
		saleByBrand[brand] = saleByBrand[brand].Add(sc.Cost)
	}
	returnByBrand := make(map[string]valueobject.ComponentCost)
	for _, ret := range returns {
		brand, ok := skuBrand[ret.SKU]
		if !ok {
			continue
		}
		returnByBrand[brand] = returnByBrand[brand].Add(ret.Cost)
	}
	return accounting.NetCostByBrand(saleByBrand, returnByBrand)
}

func checkSkuMappingCompleteness(rows []settlement.AuditRow, skuBrand map[string]string) settlement.BlockList {
	var blocks settlement.BlockList
	seen := make(map[string]bool)
	for _, row := range rows {
		sku := settlement.NormalizeSKU(row.SKU)
		if sku == "" || seen[sku] {
			continue
		}
		seen[sku] = true
		if _, ok := skuBrand[sku]; !ok {
			blocks.Add(settlement.NewBlockWithDetails(settlement.BlockMissingSkuMapping,
				fmt.Sprintf("no brand mapping for SKU %s", sku),
				map[string]any{"sku": sku},
			))
		}
	}
	return blocks
}

package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared"
)

// GormSettlementProcessingRepository implements the processing repository
// using GORM
type GormSettlementProcessingRepository struct {
	db *gorm.DB
}

// NewGormSettlementProcessingRepository creates a new GormSettlementProcessingRepository
func NewGormSettlementProcessingRepository(db *gorm.DB) *GormSettlementProcessingRepository {
	return &GormSettlementProcessingRepository{db: db}
}

// FindBySettlementEntryID finds the processing record for a settlement
// journal entry
func (r *GormSettlementProcessingRepository) FindBySettlementEntryID(ctx context.Context, settlementJournalEntryID string) (*settlement.SettlementProcessing, error) {
	var record settlement.SettlementProcessing
	if err := r.db.WithContext(ctx).
		Where("settlement_journal_entry_id = ?", settlementJournalEntryID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByInvoice finds the processing record for a (marketplace, invoice)
// pair
func (r *GormSettlementProcessingRepository) FindByInvoice(ctx context.Context, marketplace, invoiceID string) (*settlement.SettlementProcessing, error) {
	var record settlement.SettlementProcessing
	if err := r.db.WithContext(ctx).
		Where("marketplace = ? AND invoice_id = ?", marketplace, invoiceID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// CommitProcessing writes the processing record plus all sale and return
// rows in one transaction. Both uniqueness keys are re-checked inside the
// transaction; a concurrent run that already committed surfaces as
// shared.ErrAlreadyExists rather than a raw constraint violation.
func (r *GormSettlementProcessingRepository) CommitProcessing(ctx context.Context, record *settlement.SettlementProcessing, sales []*settlement.OrderSale, returns []*settlement.OrderReturn) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&settlement.SettlementProcessing{}).
			Where("settlement_journal_entry_id = ? OR (marketplace = ? AND invoice_id = ?)",
				record.SettlementJournalEntryID, record.Marketplace, record.InvoiceID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to re-check processing uniqueness: %w", err)
		}
		if count > 0 {
			return shared.ErrAlreadyExists
		}

		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create processing record: %w", err)
		}
		if len(sales) > 0 {
			if err := tx.Create(sales).Error; err != nil {
				return fmt.Errorf("failed to create sale rows: %w", err)
			}
		}
		if len(returns) > 0 {
			if err := tx.Create(returns).Error; err != nil {
				return fmt.Errorf("failed to create return rows: %w", err)
			}
		}
		return nil
	})
}

package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared"
)

// SettlementAuditRow is the persistence model for ingested marketplace
// settlement rows. Rows are written by the report importer and read here
// verbatim; all normalization happens in the domain.
type SettlementAuditRow struct {
	shared.BaseEntity
	Invoice        string    `gorm:"index:idx_audit_row_invoice"`
	Marketplace    string    `gorm:"index:idx_audit_row_invoice"`
	Date           time.Time `gorm:"type:date"`
	OrderID        string
	SKU            string
	Quantity       int64
	Description    string
	NetAmountCents int64
}

// TableName overrides the default pluralization
func (SettlementAuditRow) TableName() string {
	return "settlement_audit_rows"
}

// GormAuditRowRepository reads ingested settlement audit rows
type GormAuditRowRepository struct {
	db *gorm.DB
}

// NewGormAuditRowRepository creates a new GormAuditRowRepository
func NewGormAuditRowRepository(db *gorm.DB) *GormAuditRowRepository {
	return &GormAuditRowRepository{db: db}
}

// RowsForInvoice returns every ingested row for one invoice on one
// marketplace. An unknown invoice yields an empty slice, not an error; the
// caller decides whether that is fatal.
func (r *GormAuditRowRepository) RowsForInvoice(ctx context.Context, marketplace, invoiceID string) ([]settlement.AuditRow, error) {
	var models []SettlementAuditRow
	if err := r.db.WithContext(ctx).
		Where("marketplace = ? AND invoice = ?", marketplace, invoiceID).
		Order("date, order_id, sku").
		Find(&models).Error; err != nil {
		return nil, err
	}

	rows := make([]settlement.AuditRow, len(models))
	for i, m := range models {
		rows[i] = settlement.AuditRow{
			Invoice:        m.Invoice,
			Marketplace:    m.Marketplace,
			Date:           m.Date,
			OrderID:        m.OrderID,
			SKU:            m.SKU,
			Quantity:       m.Quantity,
			Description:    m.Description,
			NetAmountCents: m.NetAmountCents,
		}
	}
	return rows, nil
}

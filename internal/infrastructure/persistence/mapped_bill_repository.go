package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sellerledger/backend/internal/domain/inventory"
	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared"
	"github.com/sellerledger/backend/internal/domain/shared/valueobject"
)

// MappedBillLine is a purchase bill line the user mapped by hand to a SKU
// and cost component, for bills the automatic account matching could not
// classify. AmountCents is the line total for Units.
type MappedBillLine struct {
	shared.BaseEntity
	Marketplace string
	BillID      string
	Date        time.Time `gorm:"type:date"`
	SKU         string
	Component   string
	Units       int64
	AmountCents int64
}

// TableName overrides the default pluralization
func (MappedBillLine) TableName() string {
	return "mapped_bill_lines"
}

// GormMappedBillRepository supplies inbound ledger events from hand-mapped
// bill lines
type GormMappedBillRepository struct {
	db *gorm.DB
}

// NewGormMappedBillRepository creates a new GormMappedBillRepository
func NewGormMappedBillRepository(db *gorm.DB) *GormMappedBillRepository {
	return &GormMappedBillRepository{db: db}
}

// InboundEvents converts the marketplace's mapped bill lines dated on or
// before upTo into receipt events. Lines that cannot produce a valid
// receipt are skipped; the importer validates on write.
func (r *GormMappedBillRepository) InboundEvents(ctx context.Context, marketplace string, upTo time.Time) ([]inventory.LedgerEvent, error) {
	var lines []MappedBillLine
	if err := r.db.WithContext(ctx).
		Where("marketplace = ? AND date <= ?", marketplace, upTo).
		Order("date, bill_id").
		Find(&lines).Error; err != nil {
		return nil, err
	}

	events := make([]inventory.LedgerEvent, 0, len(lines))
	for _, line := range lines {
		sku := settlement.NormalizeSKU(line.SKU)
		if sku == "" || line.Units <= 0 || line.AmountCents < 0 {
			continue
		}
		events = append(events, inventory.LedgerEvent{
			Date:   line.Date,
			SKU:    sku,
			Units:  line.Units,
			Source: inventory.SourceReceipt,
			Cost:   valueobject.ComponentCost{}.WithComponent(valueobject.Component(line.Component), line.AmountCents),
		})
	}
	return events, nil
}

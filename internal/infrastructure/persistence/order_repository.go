package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sellerledger/backend/internal/domain/settlement"
)

// GormOrderRepository reads the committed sale and return rows used by
// refund matching and ledger replay
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// ListSalesUpTo lists all committed sales for a marketplace dated on or
// before upTo
func (r *GormOrderRepository) ListSalesUpTo(ctx context.Context, marketplace string, upTo time.Time) ([]settlement.OrderSale, error) {
	var sales []settlement.OrderSale
	if err := r.db.WithContext(ctx).
		Where("marketplace = ? AND date <= ?", marketplace, upTo).
		Order("date, order_id, sku").
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// ListReturnsUpTo lists all committed returns for a marketplace dated on or
// before upTo
func (r *GormOrderRepository) ListReturnsUpTo(ctx context.Context, marketplace string, upTo time.Time) ([]settlement.OrderReturn, error) {
	var returns []settlement.OrderReturn
	if err := r.db.WithContext(ctx).
		Where("marketplace = ? AND date <= ?", marketplace, upTo).
		Order("date, order_id, sku").
		Find(&returns).Error; err != nil {
		return nil, err
	}
	return returns, nil
}

package persistence

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared"
)

// AdSpendRecord is one day of advertising spend for one SKU, imported from
// the marketplace's advertising reports.
type AdSpendRecord struct {
	shared.BaseEntity
	Marketplace string    `gorm:"index:idx_ad_spend_key"`
	SKU         string    `gorm:"index:idx_ad_spend_key"`
	Date        time.Time `gorm:"type:date;index:idx_ad_spend_key"`
	SpendCents  int64
}

// TableName overrides the default pluralization
func (AdSpendRecord) TableName() string {
	return "ad_spend_records"
}

// WarehousingRate is a per-SKU daily storage rate valid for a date range.
// Ranges may start before and end after the settlement window.
type WarehousingRate struct {
	shared.BaseEntity
	Marketplace    string    `gorm:"index:idx_warehousing_key"`
	SKU            string    `gorm:"index:idx_warehousing_key"`
	ValidFrom      time.Time `gorm:"type:date"`
	ValidTo        time.Time `gorm:"type:date"`
	DailyRateCents int64
}

// TableName overrides the default pluralization
func (WarehousingRate) TableName() string {
	return "warehousing_rates"
}

// GormWeightRepository reads the external allocation weight data
type GormWeightRepository struct {
	db *gorm.DB
}

// NewGormWeightRepository creates a new GormWeightRepository
func NewGormWeightRepository(db *gorm.DB) *GormWeightRepository {
	return &GormWeightRepository{db: db}
}

// AdSpendBySKU sums each SKU's advertising spend over the settlement
// window.
func (r *GormWeightRepository) AdSpendBySKU(ctx context.Context, marketplace string, from, to time.Time) (map[string]decimal.Decimal, error) {
	var records []AdSpendRecord
	if err := r.db.WithContext(ctx).
		Where("marketplace = ? AND date >= ? AND date <= ?", marketplace, from, to).
		Find(&records).Error; err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal)
	for _, rec := range records {
		sku := settlement.NormalizeSKU(rec.SKU)
		out[sku] = out[sku].Add(decimal.NewFromInt(rec.SpendCents))
	}
	return out, nil
}

// WarehousingBySKU weights each SKU by its daily storage rate times the
// number of days its rate range overlaps the settlement window, so a rate
// valid for only part of the window contributes proportionally.
func (r *GormWeightRepository) WarehousingBySKU(ctx context.Context, marketplace string, from, to time.Time) (map[string]decimal.Decimal, error) {
	var rates []WarehousingRate
	if err := r.db.WithContext(ctx).
		Where("marketplace = ? AND valid_from <= ? AND valid_to >= ?", marketplace, to, from).
		Find(&rates).Error; err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal)
	for _, rate := range rates {
		days := overlapDays(rate.ValidFrom, rate.ValidTo, from, to)
		if days <= 0 || rate.DailyRateCents <= 0 {
			continue
		}
		sku := settlement.NormalizeSKU(rate.SKU)
		weight := decimal.NewFromInt(rate.DailyRateCents).Mul(decimal.NewFromInt(days))
		out[sku] = out[sku].Add(weight)
	}
	return out, nil
}

// overlapDays counts the days (inclusive on both ends) two date ranges
// share.
func overlapDays(aFrom, aTo, bFrom, bTo time.Time) int64 {
	start := aFrom
	if bFrom.After(start) {
		start = bFrom
	}
	end := aTo
	if bTo.Before(end) {
		end = bTo
	}
	if end.Before(start) {
		return 0
	}
	return int64(end.Sub(start).Hours()/24) + 1
}

package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sellerledger/backend/internal/domain/accounting"
	"github.com/sellerledger/backend/internal/domain/pnl"
	"github.com/sellerledger/backend/internal/domain/settlement"
	"github.com/sellerledger/backend/internal/domain/shared"
)

// SkuBrandMapping assigns a SKU to its owning brand within a marketplace.
type SkuBrandMapping struct {
	shared.BaseEntity
	Marketplace string `gorm:"uniqueIndex:idx_sku_brand_key"`
	SKU         string `gorm:"uniqueIndex:idx_sku_brand_key"`
	Brand       string
}

// TableName overrides the default pluralization
func (SkuBrandMapping) TableName() string {
	return "sku_brand_mappings"
}

// AccountMappingRecord holds the per-marketplace parent account setup. One
// row per marketplace; fee bucket parents live in FeeAccountMapping.
type AccountMappingRecord struct {
	shared.BaseEntity
	Marketplace       string `gorm:"uniqueIndex"`
	InventoryParentID string
	COGSParentID      string `gorm:"column:cogs_parent_id"`
}

// TableName overrides the default pluralization
func (AccountMappingRecord) TableName() string {
	return "account_mappings"
}

// FeeAccountMapping maps one fee bucket to its marketplace-level parent
// account.
type FeeAccountMapping struct {
	shared.BaseEntity
	Marketplace     string `gorm:"uniqueIndex:idx_fee_mapping_key"`
	Bucket          string `gorm:"uniqueIndex:idx_fee_mapping_key"`
	ParentAccountID string
}

// TableName overrides the default pluralization
func (FeeAccountMapping) TableName() string {
	return "fee_account_mappings"
}

// GormMappingRepository reads the per-marketplace configuration
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// SkuBrandMap returns the full SKU to brand map for a marketplace, keyed
// by normalized SKU.
func (r *GormMappingRepository) SkuBrandMap(ctx context.Context, marketplace string) (map[string]string, error) {
	var mappings []SkuBrandMapping
	if err := r.db.WithContext(ctx).
		Where("marketplace = ?", marketplace).
		Find(&mappings).Error; err != nil {
		return nil, err
	}

	out := make(map[string]string, len(mappings))
	for _, m := range mappings {
		out[settlement.NormalizeSKU(m.SKU)] = m.Brand
	}
	return out, nil
}

// AccountMapping assembles the marketplace's account mapping. A missing
// setup row means setup was never completed and returns shared.ErrNotFound;
// missing fee bucket rows leave gaps the domain flags key by key.
func (r *GormMappingRepository) AccountMapping(ctx context.Context, marketplace string) (accounting.AccountMapping, error) {
	var record AccountMappingRecord
	if err := r.db.WithContext(ctx).
		Where("marketplace = ?", marketplace).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return accounting.AccountMapping{}, shared.ErrNotFound
		}
		return accounting.AccountMapping{}, err
	}

	var feeMappings []FeeAccountMapping
	if err := r.db.WithContext(ctx).
		Where("marketplace = ?", marketplace).
		Find(&feeMappings).Error; err != nil {
		return accounting.AccountMapping{}, err
	}

	buckets := make(map[pnl.FeeBucket]string, len(feeMappings))
	for _, m := range feeMappings {
		buckets[pnl.FeeBucket(m.Bucket)] = m.ParentAccountID
	}

	return accounting.AccountMapping{
		InventoryParentID:  record.InventoryParentID,
		COGSParentID:       record.COGSParentID,
		FeeBucketParentIDs: buckets,
	}, nil
}

package repository

import (
	"context"

	"giftshop/internal/model"

	"gorm.io/gorm"
)

type TaxSlabRepository interface {
	Create(ctx context.Context, slab *model.TaxSlab) error
	FindActiveByCategory(ctx context.Context, category string) (*model.TaxSlab, error)
	ListActive(ctx context.Context) ([]model.TaxSlab, error)
	DeactivateByCategory(ctx context.Context, category string) error
}

type taxSlabRepository struct {
	db *gorm.DB
}

func NewTaxSlabRepository(db *gorm.DB) TaxSlabRepository {
	return &taxSlabRepository{db: db}
}

func (r *taxSlabRepository) Create(ctx context.Context, slab *model.TaxSlab) error {
	return GetDB(ctx, r.db).Create(slab).Error
}

func (r *taxSlabRepository) FindActiveByCategory(ctx context.Context, category string) (*model.TaxSlab, error) {
	var slab model.TaxSlab
	if err := GetDB(ctx, r.db).
		Where("category = ? AND active = ?", category, true).
		Order("created_at DESC").
		First(&slab).Error; err != nil {
		return nil, err
	}
	return &slab, nil
}

func (r *taxSlabRepository) ListActive(ctx context.Context) ([]model.TaxSlab, error) {
	var slabs []model.TaxSlab
	if err := GetDB(ctx, r.db).
		Where("active = ?", true).
		Order("category asc").
		Find(&slabs).Error; err != nil {
		return nil, err
	}
	return slabs, nil
}

func (r *taxSlabRepository) DeactivateByCategory(ctx context.Context, category string) error {
	return GetDB(ctx, r.db).Model(&model.TaxSlab{}).
		Where("category = ? AND active = ?", category, true).
		Update("active", false).Error
}

type TaxConfigurationRepository interface {
	Create(ctx context.Context, config *model.TaxConfiguration) error
	FindActiveByCategory(ctx context.Context, category string) (*model.TaxConfiguration, error)
	ListActive(ctx context.Context) ([]model.TaxConfiguration, error)
	DeactivateByCategory(ctx context.Context, category string) error
}

type taxConfigurationRepository struct {
	db *gorm.DB
}

func NewTaxConfigurationRepository(db *gorm.DB) TaxConfigurationRepository {
	return &taxConfigurationRepository{db: db}
}

func (r *taxConfigurationRepository) Create(ctx context.Context, config *model.TaxConfiguration) error {
	return GetDB(ctx, r.db).Create(config).Error
}

func (r *taxConfigurationRepository) FindActiveByCategory(ctx context.Context, category string) (*model.TaxConfiguration, error) {
	var config model.TaxConfiguration
	if err := GetDB(ctx, r.db).
		Where("category = ? AND active = ?", category, true).
		Order("created_at DESC").
		First(&config).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *taxConfigurationRepository) ListActive(ctx context.Context) ([]model.TaxConfiguration, error) {
	var configs []model.TaxConfiguration
	if err := GetDB(ctx, r.db).
		Where("active = ?", true).
		Order("category asc").
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *taxConfigurationRepository) DeactivateByCategory(ctx context.Context, category string) error {
	return GetDB(ctx, r.db).Model(&model.TaxConfiguration{}).
		Where("category = ? AND active = ?", category, true).
		Update("active", false).Error
}

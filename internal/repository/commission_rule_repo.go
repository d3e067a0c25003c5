package repository

import (
	"context"
	"time"

	"giftshop/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionRuleRepository interface {
	Create(ctx context.Context, rule *model.CommissionRule) error
	Update(ctx context.Context, rule *model.CommissionRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CommissionRule, error)
	List(ctx context.Context, page, limit int, activeOnly bool) ([]model.CommissionRule, int64, error)
	ListEligible(ctx context.Context, at time.Time, orderAmount decimal.Decimal) ([]model.CommissionRule, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	RecordUsage(ctx context.Context, id uuid.UUID, commission decimal.Decimal) error
}

type commissionRuleRepository struct {
	db *gorm.DB
}

func NewCommissionRuleRepository(db *gorm.DB) CommissionRuleRepository {
	return &commissionRuleRepository{db: db}
}

func (r *commissionRuleRepository) Create(ctx context.Context, rule *model.CommissionRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *commissionRuleRepository) Update(ctx context.Context, rule *model.CommissionRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *commissionRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CommissionRule, error) {
	var rule model.CommissionRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *commissionRuleRepository) List(ctx context.Context, page, limit int, activeOnly bool) ([]model.CommissionRule, int64, error) {
	var rules []model.CommissionRule
	var total int64

	db := GetDB(ctx, r.db).Model(&model.CommissionRule{})
	if activeOnly {
		db = db.Where("active = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("priority desc, created_at desc").Offset(offset).Limit(limit).Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}

// ListEligible returns every active rule whose effective window contains the
// given instant and whose minimum order amount (if any) is met. Specificity
// ranking happens in the service; this only narrows the candidate pool.
func (r *commissionRuleRepository) ListEligible(ctx context.Context, at time.Time, orderAmount decimal.Decimal) ([]model.CommissionRule, error) {
	var rules []model.CommissionRule
	if err := GetDB(ctx, r.db).
		Where("active = ?", true).
		Where("effective_from <= ? AND (effective_until IS NULL OR effective_until >= ?)", at, at).
		Where("min_order_amount IS NULL OR min_order_amount <= ?", orderAmount).
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Deactivate soft-disables a rule so earning history keeps its reference
func (r *commissionRuleRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.CommissionRule{}).
		Where("id = ?", id).
		Update("active", false).Error
}

func (r *commissionRuleRepository) RecordUsage(ctx context.Context, id uuid.UUID, commission decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.CommissionRule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"usage_count":           gorm.Expr("usage_count + 1"),
			"total_commission_paid": gorm.Expr("total_commission_paid + ?", commission),
		}).Error
}

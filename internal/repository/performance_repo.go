package repository

import (
	"context"
	"fmt"
	"time"

	"giftshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductSalesRow is the raw per-product aggregate the scorer works from
type ProductSalesRow struct {
	ProductID  uuid.UUID `gorm:"column:product_id"`
	SalesCount int64     `gorm:"column:sales_count"`
	Revenue    string    `gorm:"column:revenue"` // Decimal as text to avoid float drift
}

// ProductCommissionRow aggregates commission earned per product
type ProductCommissionRow struct {
	ProductID        uuid.UUID `gorm:"column:product_id"`
	CommissionEarned string    `gorm:"column:commission_earned"`
}

type PerformanceRepository interface {
	GetSalesByProduct(ctx context.Context, since time.Time) ([]ProductSalesRow, error)
	GetCommissionByProduct(ctx context.Context, since time.Time) ([]ProductCommissionRow, error)
}

type performanceRepository struct {
	db *gorm.DB
}

func NewPerformanceRepository(db *gorm.DB) PerformanceRepository {
	return &performanceRepository{db: db}
}

func (r *performanceRepository) GetSalesByProduct(ctx context.Context, since time.Time) ([]ProductSalesRow, error) {
	var rows []ProductSalesRow
	if err := GetDB(ctx, r.db).Table("order_items").
		Select("order_items.product_id as product_id, COALESCE(SUM(order_items.quantity), 0) as sales_count, COALESCE(CAST(SUM(order_items.quantity * order_items.unit_price) AS TEXT), '0') as revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ? AND orders.created_at >= ?", model.OrderStatusCompleted, since).
		Group("order_items.product_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query product sales: %w", err)
	}
	return rows, nil
}

func (r *performanceRepository) GetCommissionByProduct(ctx context.Context, since time.Time) ([]ProductCommissionRow, error) {
	var rows []ProductCommissionRow
	if err := GetDB(ctx, r.db).Table("commission_earnings").
		Select("product_id, COALESCE(CAST(SUM(commission_amount) AS TEXT), '0') as commission_earned").
		Where("status != ? AND created_at >= ?", model.EarningCancelled, since).
		Group("product_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query product commissions: %w", err)
	}
	return rows, nil
}

package repository

import (
	"context"
	"fmt"

	"giftshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EarningSummaryRow is one period bucket of the commission summary report
type EarningSummaryRow struct {
	Period          string  `gorm:"column:period" json:"period"`
	UserID          string  `gorm:"column:user_id" json:"user_id"`
	Username        string  `gorm:"column:username" json:"username"`
	EarningCount    int64   `gorm:"column:earning_count" json:"earning_count"`
	TotalOrderValue float64 `gorm:"column:total_order_value" json:"total_order_value"`
	TotalCommission float64 `gorm:"column:total_commission" json:"total_commission"`
	TotalPaid       float64 `gorm:"column:total_paid" json:"total_paid"`
}

type CommissionEarningRepository interface {
	Create(ctx context.Context, earning *model.CommissionEarning) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CommissionEarning, error)
	ExistsForOrderItem(ctx context.Context, orderID, productID uuid.UUID) (bool, error)
	List(ctx context.Context, userID *uuid.UUID, status string, page, limit int) ([]model.CommissionEarning, int64, error)
	Update(ctx context.Context, earning *model.CommissionEarning) error
	GetSummary(ctx context.Context, groupBy, startDate, endDate string) ([]EarningSummaryRow, error)
}

type commissionEarningRepository struct {
	db *gorm.DB
}

func NewCommissionEarningRepository(db *gorm.DB) CommissionEarningRepository {
	return &commissionEarningRepository{db: db}
}

func (r *commissionEarningRepository) Create(ctx context.Context, earning *model.CommissionEarning) error {
	return GetDB(ctx, r.db).Create(earning).Error
}

func (r *commissionEarningRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CommissionEarning, error) {
	var earning model.CommissionEarning
	if err := GetDB(ctx, r.db).Preload("Rule").First(&earning, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &earning, nil
}

func (r *commissionEarningRepository) ExistsForOrderItem(ctx context.Context, orderID, productID uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.CommissionEarning{}).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *commissionEarningRepository) List(ctx context.Context, userID *uuid.UUID, status string, page, limit int) ([]model.CommissionEarning, int64, error) {
	var earnings []model.CommissionEarning
	var total int64

	db := GetDB(ctx, r.db).Model(&model.CommissionEarning{})
	if userID != nil {
		db = db.Where("user_id = ?", *userID)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("User").Order("created_at desc").Offset(offset).Limit(limit).Find(&earnings).Error; err != nil {
		return nil, 0, err
	}

	return earnings, total, nil
}

func (r *commissionEarningRepository) Update(ctx context.Context, earning *model.CommissionEarning) error {
	return GetDB(ctx, r.db).Save(earning).Error
}

// GetSummary aggregates earnings per period and salesperson. Cancelled
// earnings are excluded; paid totals only count status = 'paid'.
func (r *commissionEarningRepository) GetSummary(ctx context.Context, groupBy, startDate, endDate string) ([]EarningSummaryRow, error) {
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC($1, e.created_at), 'YYYY-MM-DD') AS period,
			e.user_id::text AS user_id,
			u.username AS username,
			COUNT(e.id) AS earning_count,
			COALESCE(SUM(e.order_amount), 0) AS total_order_value,
			COALESCE(SUM(e.commission_amount), 0) AS total_commission,
			COALESCE(SUM(CASE WHEN e.status = 'paid' THEN e.commission_amount ELSE 0 END), 0) AS total_paid
		FROM commission_earnings e
		JOIN users u ON u.id = e.user_id
		WHERE e.status != 'cancelled'
		  AND e.created_at >= $2::timestamptz
		  AND e.created_at <= $3::timestamptz
		GROUP BY DATE_TRUNC($1, e.created_at), e.user_id, u.username
		ORDER BY period, total_commission DESC
	`

	var rows []EarningSummaryRow
	if err := GetDB(ctx, r.db).Raw(query, groupBy, startDate, endDate).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query commission summary: %w", err)
	}

	return rows, nil
}

package repository

import (
	"context"
	"time"

	"giftshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *model.ProductAssignment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductAssignment, error)
	FindActiveByProduct(ctx context.Context, productID uuid.UUID) (*model.ProductAssignment, error)
	CloseActive(ctx context.Context, productID uuid.UUID, status string, endedAt time.Time) (int64, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.ProductAssignment, error)
	CountActive(ctx context.Context, productID uuid.UUID) (int64, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *model.ProductAssignment) error {
	return GetDB(ctx, r.db).Create(assignment).Error
}

func (r *assignmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductAssignment, error) {
	var assignment model.ProductAssignment
	if err := GetDB(ctx, r.db).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepository) FindActiveByProduct(ctx context.Context, productID uuid.UUID) (*model.ProductAssignment, error) {
	var assignment model.ProductAssignment
	if err := GetDB(ctx, r.db).
		Where("product_id = ? AND status = ?", productID, model.AssignmentActive).
		First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// CloseActive ends the currently active assignment for a product, returning
// how many rows were affected so callers can tell whether one existed.
func (r *assignmentRepository) CloseActive(ctx context.Context, productID uuid.UUID, status string, endedAt time.Time) (int64, error) {
	result := GetDB(ctx, r.db).Model(&model.ProductAssignment{}).
		Where("product_id = ? AND status = ?", productID, model.AssignmentActive).
		Updates(map[string]interface{}{
			"status":   status,
			"end_date": endedAt,
		})
	return result.RowsAffected, result.Error
}

func (r *assignmentRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.ProductAssignment, error) {
	var assignments []model.ProductAssignment
	if err := GetDB(ctx, r.db).
		Preload("Assignee").
		Where("product_id = ?", productID).
		Order("start_date desc").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *assignmentRepository) CountActive(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ProductAssignment{}).
		Where("product_id = ? AND status = ?", productID, model.AssignmentActive).
		Count(&count).Error
	return count, err
}

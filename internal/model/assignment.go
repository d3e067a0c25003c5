package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AssignmentReason enum constants
const (
	ReasonTimeBased             = "time_based"
	ReasonPerformanceBased      = "performance_based"
	ReasonManualAdmin           = "manual_admin"
	ReasonInventoryIssues       = "inventory_issues"
	ReasonHighPerformerRotation = "high_performer_rotation"
)

// AssignmentStatus enum constants
const (
	AssignmentActive     = "active"
	AssignmentReassigned = "reassigned"
	AssignmentRevoked    = "revoked"
	AssignmentPending    = "pending"
)

// ProductAssignment records who earns commission on a product and why.
// At most one active row exists per product at any instant.
type ProductAssignment struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	AssignedTo uuid.UUID  `gorm:"type:uuid;not null;index" json:"assigned_to"`
	Assignee   *User      `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	AssignedBy *uuid.UUID `gorm:"type:uuid" json:"assigned_by"`
	Reason     string     `gorm:"type:varchar(50);not null" json:"reason"`
	Status     string     `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Notes      string     `gorm:"type:text" json:"notes"`
	StartDate  time.Time  `gorm:"not null" json:"start_date"`
	EndDate    *time.Time `json:"end_date"`

	// Performance snapshot taken when the assignment was created
	SnapshotSalesCount int64           `gorm:"not null;default:0" json:"snapshot_sales_count"`
	SnapshotRevenue    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"snapshot_revenue"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *ProductAssignment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsValidAssignmentReason reports whether reason is one of the known reasons
func IsValidAssignmentReason(reason string) bool {
	switch reason {
	case ReasonTimeBased, ReasonPerformanceBased, ReasonManualAdmin,
		ReasonInventoryIssues, ReasonHighPerformerRotation:
		return true
	}
	return false
}

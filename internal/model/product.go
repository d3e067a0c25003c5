package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a catalog item in the gift store
type Product struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SKU      string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name     string          `gorm:"type:varchar(255);not null" json:"name"`
	Price    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price"`
	Category string          `gorm:"type:varchar(50);index" json:"category"` // Merchandising category, also used for category-scoped rules

	// Tax overrides; nil falls back to category configuration
	TaxCategory     *string `gorm:"type:varchar(50)" json:"tax_category"`
	TaxCalcOverride *string `gorm:"type:varchar(20)" json:"tax_calc_override"` // inclusive, exclusive

	// Commission assignment pointer. AssignmentVersion guards concurrent
	// reassignments: updates must match the version they read.
	AssignedTo        *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to"`
	AssignmentVersion int64      `gorm:"not null;default:0" json:"assignment_version"`

	UploadedBy *uuid.UUID     `gorm:"type:uuid" json:"uploaded_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CommissionAssignee returns the user currently earning commission on the
// product: the active assignee, else the uploader.
func (p *Product) CommissionAssignee() *uuid.UUID {
	if p.AssignedTo != nil {
		return p.AssignedTo
	}
	return p.UploadedBy
}

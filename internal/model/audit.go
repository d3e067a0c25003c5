package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateTaxSlab   = "CREATE_TAX_SLAB"
	ActionUpdateTaxConfig = "UPDATE_TAX_CONFIG"

	ActionCreateCommissionRule     = "CREATE_COMMISSION_RULE"
	ActionUpdateCommissionRule     = "UPDATE_COMMISSION_RULE"
	ActionDeactivateCommissionRule = "DEACTIVATE_COMMISSION_RULE"
	ActionCalculateOrderCommission = "CALCULATE_ORDER_COMMISSION"
	ActionApproveEarning           = "APPROVE_COMMISSION_EARNING"
	ActionPayEarning               = "PAY_COMMISSION_EARNING"
	ActionCancelEarning            = "CANCEL_COMMISSION_EARNING"

	ActionCreateAssignment = "CREATE_ASSIGNMENT"
	ActionReassignProduct  = "REASSIGN_PRODUCT"
	ActionRevokeAssignment = "REVOKE_ASSIGNMENT"

	ActionCreateProduct = "CREATE_PRODUCT"
	ActionUpdateProduct = "UPDATE_PRODUCT"
	ActionDeleteProduct = "DELETE_PRODUCT"
	ActionCreateOrder   = "CREATE_ORDER"
	ActionCompleteOrder = "COMPLETE_ORDER"
	ActionCancelOrder   = "CANCEL_ORDER"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (l *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionType enum constants
const (
	CommissionTypePercentage = "percentage"
	CommissionTypeFixed      = "fixed"
)

// EarningStatus enum constants
const (
	EarningPending   = "pending"
	EarningApproved  = "approved"
	EarningPaid      = "paid"
	EarningCancelled = "cancelled"
)

// RuleScope identifies how narrowly a commission rule targets, from most to
// least specific. Higher values win during resolution. Product and category
// targeting outrank role: a rule pinned to one product is narrower than a
// rule covering every sale a role makes.
type RuleScope int

const (
	ScopeGeneral RuleScope = iota
	ScopeRole
	ScopeCategory
	ScopeProduct
	ScopeUser
)

func (s RuleScope) String() string {
	switch s {
	case ScopeUser:
		return "user"
	case ScopeRole:
		return "role"
	case ScopeProduct:
		return "product"
	case ScopeCategory:
		return "category"
	default:
		return "general"
	}
}

// CommissionRule defines who earns what on which sales. Scope fields left nil
// act as wildcards; Scope() classifies the combination explicitly.
type CommissionRule struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              *uuid.UUID       `gorm:"type:uuid;index" json:"user_id"`
	UserRole            *string          `gorm:"type:varchar(50);index" json:"user_role"`
	ProductID           *uuid.UUID       `gorm:"type:uuid;index" json:"product_id"`
	ProductCategory     *string          `gorm:"type:varchar(50);index" json:"product_category"`
	CommissionType      string           `gorm:"type:varchar(20);not null" json:"commission_type"` // percentage, fixed
	CommissionValue     decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"commission_value"`
	MinOrderAmount      *decimal.Decimal `gorm:"type:decimal(18,4)" json:"min_order_amount"`
	MaxCommissionAmount *decimal.Decimal `gorm:"type:decimal(18,4)" json:"max_commission_amount"`
	Priority            int              `gorm:"not null;default:0" json:"priority"`
	EffectiveFrom       time.Time        `gorm:"not null;index" json:"effective_from"`
	EffectiveUntil      *time.Time       `gorm:"index" json:"effective_until"` // Nullable = open-ended
	Active              bool             `gorm:"not null;default:true;index" json:"active"`
	UsageCount          int64            `gorm:"not null;default:0" json:"usage_count"`
	TotalCommissionPaid decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"total_commission_paid"`
	CreatedBy           *uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	CreatedAt           time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func (r *CommissionRule) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Scope classifies the rule's scope fields into a single specificity class.
// A set user_id dominates everything, then product_id, then product_category,
// then user_role; a rule with none set is general.
func (r *CommissionRule) Scope() RuleScope {
	switch {
	case r.UserID != nil:
		return ScopeUser
	case r.ProductID != nil:
		return ScopeProduct
	case r.ProductCategory != nil:
		return ScopeCategory
	case r.UserRole != nil:
		return ScopeRole
	default:
		return ScopeGeneral
	}
}

// CommissionEarning records the commission owed to a user for one order item.
// Created once at calculation time and mutated only by status transitions.
type CommissionEarning struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User             *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	RuleID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"rule_id"`
	Rule             *CommissionRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"`
	OrderAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"order_amount"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"commission_amount"`
	CommissionRate   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"commission_rate"`
	CommissionType   string          `gorm:"type:varchar(20);not null" json:"commission_type"`
	Status           string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ApprovedBy       *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt       *time.Time      `json:"approved_at"`
	PaidAt           *time.Time      `json:"paid_at"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (e *CommissionEarning) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// ValidEarningTransition reports whether an earning may move from one status
// to another. Approve and cancel act on pending earnings; pay on approved.
func ValidEarningTransition(from, to string) bool {
	switch from {
	case EarningPending:
		return to == EarningApproved || to == EarningCancelled
	case EarningApproved:
		return to == EarningPaid
	default:
		return false
	}
}

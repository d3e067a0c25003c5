package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRuleScopeClassification(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	role := RoleSalesperson
	category := "gifts"

	tests := []struct {
		name string
		rule CommissionRule
		want RuleScope
	}{
		{"no scope fields", CommissionRule{}, ScopeGeneral},
		{"category only", CommissionRule{ProductCategory: &category}, ScopeCategory},
		{"role only", CommissionRule{UserRole: &role}, ScopeRole},
		{"product beats category", CommissionRule{ProductID: &productID, ProductCategory: &category}, ScopeProduct},
		{"product beats role", CommissionRule{UserRole: &role, ProductID: &productID}, ScopeProduct},
		{"user beats everything", CommissionRule{UserID: &userID, UserRole: &role, ProductID: &productID, ProductCategory: &category}, ScopeUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Scope())
		})
	}
}

func TestValidEarningTransition(t *testing.T) {
	valid := [][2]string{
		{EarningPending, EarningApproved},
		{EarningPending, EarningCancelled},
		{EarningApproved, EarningPaid},
	}
	for _, tr := range valid {
		assert.True(t, ValidEarningTransition(tr[0], tr[1]), "%s -> %s should be allowed", tr[0], tr[1])
	}

	invalid := [][2]string{
		{EarningPending, EarningPaid},
		{EarningApproved, EarningCancelled},
		{EarningPaid, EarningCancelled},
		{EarningPaid, EarningApproved},
		{EarningCancelled, EarningApproved},
		{EarningCancelled, EarningPending},
	}
	for _, tr := range invalid {
		assert.False(t, ValidEarningTransition(tr[0], tr[1]), "%s -> %s should be rejected", tr[0], tr[1])
	}
}

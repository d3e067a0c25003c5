package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceMetric aggregates sales activity for one assigned product over
// the analysis window. PerformanceScore is derived, never stored.
type PerformanceMetric struct {
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	AssignedTo       string          `json:"assigned_to"`
	SalesCount       int64           `json:"sales_count"`
	Revenue          decimal.Decimal `json:"revenue"`
	CommissionEarned decimal.Decimal `json:"commission_earned"`
	DaysSinceUpdate  int64           `json:"days_since_update"`
	PerformanceScore decimal.Decimal `json:"performance_score"`
}

// ReallocationCandidate is one advisory row of the reallocation report:
// a product the operator should consider reassigning, and why.
type ReallocationCandidate struct {
	ProductID       string            `json:"product_id"`
	ProductName     string            `json:"product_name"`
	CurrentAssignee string            `json:"current_assignee"`
	Reason          string            `json:"reason"`
	Metrics         PerformanceMetric `json:"metrics"`
	PriorityScore   decimal.Decimal   `json:"priority_score"`
}

// ReallocationReport wraps the ranked candidate list with its parameters
type ReallocationReport struct {
	WindowDays  int                     `json:"window_days"`
	GeneratedAt time.Time               `json:"generated_at"`
	Candidates  []ReallocationCandidate `json:"candidates"`
}

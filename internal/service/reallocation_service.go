package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"giftshop/internal/model"
	"giftshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReallocationCriteria tunes the recommendation thresholds. Zero values fall
// back to the defaults below.
type ReallocationCriteria struct {
	WindowDays                int `json:"window_days"`
	MaxDaysInactive           int `json:"max_days_inactive"`
	MinPerformanceScore       int `json:"min_performance_score"`
	HighPerformerRotationDays int `json:"high_performer_rotation_days"`
}

const (
	defaultWindowDays        = 90
	defaultMaxDaysInactive   = 30
	defaultMinScore          = 50
	defaultRotationDays      = 90
	highPerformerScoreCutoff = 150
)

func (c *ReallocationCriteria) applyDefaults() {
	if c.WindowDays <= 0 {
		c.WindowDays = defaultWindowDays
	}
	if c.MaxDaysInactive <= 0 {
		c.MaxDaysInactive = defaultMaxDaysInactive
	}
	if c.MinPerformanceScore <= 0 {
		c.MinPerformanceScore = defaultMinScore
	}
	if c.HighPerformerRotationDays <= 0 {
		c.HighPerformerRotationDays = defaultRotationDays
	}
}

type ReallocationService interface {
	AnalyzePerformance(ctx context.Context, windowDays int) ([]model.PerformanceMetric, error)
	GetRecommendations(ctx context.Context, criteria ReallocationCriteria) (model.ReallocationReport, error)
}

type reallocationService struct {
	productRepo     repository.ProductRepository
	performanceRepo repository.PerformanceRepository
}

func NewReallocationService(
	productRepo repository.ProductRepository,
	performanceRepo repository.PerformanceRepository,
) ReallocationService {
	return &reallocationService{
		productRepo:     productRepo,
		performanceRepo: performanceRepo,
	}
}

// AnalyzePerformance builds one metric per currently-assigned product from
// completed sales and recorded commissions within the window. Advisory data,
// no point-in-time consistency is attempted across the three reads.
func (s *reallocationService) AnalyzePerformance(ctx context.Context, windowDays int) ([]model.PerformanceMetric, error) {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	since := time.Now().AddDate(0, 0, -windowDays)

	products, err := s.productRepo.ListAssigned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned products: %w", err)
	}

	salesRows, err := s.performanceRepo.GetSalesByProduct(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}
	commissionRows, err := s.performanceRepo.GetCommissionByProduct(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate commissions: %w", err)
	}

	salesByProduct := make(map[uuid.UUID]repository.ProductSalesRow, len(salesRows))
	for _, row := range salesRows {
		salesByProduct[row.ProductID] = row
	}
	commissionByProduct := make(map[uuid.UUID]decimal.Decimal, len(commissionRows))
	for _, row := range commissionRows {
		if amount, parseErr := decimal.NewFromString(row.CommissionEarned); parseErr == nil {
			commissionByProduct[row.ProductID] = amount
		}
	}

	now := time.Now()
	metrics := make([]model.PerformanceMetric, 0, len(products))
	for _, product := range products {
		if product.AssignedTo == nil {
			continue
		}

		metric := model.PerformanceMetric{
			ProductID:       product.ID.String(),
			ProductName:     product.Name,
			AssignedTo:      product.AssignedTo.String(),
			Revenue:         decimal.Zero,
			DaysSinceUpdate: int64(now.Sub(product.UpdatedAt).Hours() / 24),
		}
		if row, ok := salesByProduct[product.ID]; ok {
			metric.SalesCount = row.SalesCount
			if revenue, parseErr := decimal.NewFromString(row.Revenue); parseErr == nil {
				metric.Revenue = revenue
			}
		}
		if commission, ok := commissionByProduct[product.ID]; ok {
			metric.CommissionEarned = commission
		}
		metric.PerformanceScore = computePerformanceScore(metric.SalesCount, metric.Revenue, metric.CommissionEarned)

		metrics = append(metrics, metric)
	}

	return metrics, nil
}

// GetRecommendations classifies every metric and returns the candidates the
// operator should look at, highest priority first. Read-only: reassignment
// stays a manual call.
func (s *reallocationService) GetRecommendations(ctx context.Context, criteria ReallocationCriteria) (model.ReallocationReport, error) {
	criteria.applyDefaults()

	metrics, err := s.AnalyzePerformance(ctx, criteria.WindowDays)
	if err != nil {
		return model.ReallocationReport{}, err
	}

	candidates := make([]model.ReallocationCandidate, 0, len(metrics))
	for _, metric := range metrics {
		reason, priority, ok := classifyMetric(metric, criteria)
		if !ok {
			continue
		}
		candidates = append(candidates, model.ReallocationCandidate{
			ProductID:       metric.ProductID,
			ProductName:     metric.ProductName,
			CurrentAssignee: metric.AssignedTo,
			Reason:          reason,
			Metrics:         metric,
			PriorityScore:   priority,
		})
	}

	sortCandidatesByPriority(candidates)

	return model.ReallocationReport{
		WindowDays:  criteria.WindowDays,
		GeneratedAt: time.Now(),
		Candidates:  candidates,
	}, nil
}

// computePerformanceScore weighs sales volume most, then revenue, then the
// commission already paid out on the product. Fixed weights, stable across
// report runs so scores are comparable over time.
func computePerformanceScore(salesCount int64, revenue, commission decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	score := decimal.NewFromInt(salesCount).Mul(decimal.NewFromInt(10))
	score = score.Add(revenue.Div(hundred))
	score = score.Add(commission.Div(hundred).Mul(decimal.NewFromInt(5)))
	return score
}

// classifyMetric applies the reallocation rules in order, first match wins:
// staleness before weak performance before high-performer rotation.
func classifyMetric(metric model.PerformanceMetric, criteria ReallocationCriteria) (string, decimal.Decimal, bool) {
	score := metric.PerformanceScore
	days := metric.DaysSinceUpdate

	switch {
	case days > int64(criteria.MaxDaysInactive):
		return model.ReasonTimeBased, decimal.NewFromInt(days).Mul(decimal.NewFromInt(2)), true
	case score.LessThan(decimal.NewFromInt(int64(criteria.MinPerformanceScore))):
		priority := decimal.NewFromInt(100).Sub(score).Mul(decimal.NewFromFloat(1.5))
		return model.ReasonPerformanceBased, priority, true
	case score.GreaterThan(decimal.NewFromInt(highPerformerScoreCutoff)) && days > int64(criteria.HighPerformerRotationDays):
		return model.ReasonHighPerformerRotation, score.Mul(decimal.NewFromFloat(0.5)), true
	default:
		return "", decimal.Zero, false
	}
}

func sortCandidatesByPriority(candidates []model.ReallocationCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PriorityScore.GreaterThan(candidates[j].PriorityScore)
	})
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"giftshop/internal/model"
	"giftshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateCommissionRuleRequest struct {
	UserID              string `json:"user_id"`
	UserRole            string `json:"user_role" binding:"omitempty,oneof=manager salesperson"`
	ProductID           string `json:"product_id"`
	ProductCategory     string `json:"product_category"`
	CommissionType      string `json:"commission_type" binding:"required,oneof=percentage fixed"`
	CommissionValue     string `json:"commission_value" binding:"required"`
	MinOrderAmount      string `json:"min_order_amount"`
	MaxCommissionAmount string `json:"max_commission_amount"`
	Priority            int    `json:"priority"`
	EffectiveFrom       string `json:"effective_from"` // YYYY-MM-DD, defaults to today
	EffectiveUntil      string `json:"effective_until"`
}

type ResolveCommissionRequest struct {
	UserID          string `json:"user_id" binding:"required"`
	UserRole        string `json:"user_role"`
	ProductID       string `json:"product_id" binding:"required"`
	ProductCategory string `json:"product_category"`
	OrderAmount     string `json:"order_amount" binding:"required"`
	At              string `json:"at"` // RFC3339, defaults to now
}

type CommissionRuleResponse struct {
	ID                  string  `json:"id"`
	Scope               string  `json:"scope"`
	UserID              *string `json:"user_id"`
	UserRole            *string `json:"user_role"`
	ProductID           *string `json:"product_id"`
	ProductCategory     *string `json:"product_category"`
	CommissionType      string  `json:"commission_type"`
	CommissionValue     string  `json:"commission_value"`
	MinOrderAmount      *string `json:"min_order_amount"`
	MaxCommissionAmount *string `json:"max_commission_amount"`
	Priority            int     `json:"priority"`
	EffectiveFrom       string  `json:"effective_from"`
	EffectiveUntil      *string `json:"effective_until"`
	Active              bool    `json:"active"`
	UsageCount          int64   `json:"usage_count"`
	TotalCommissionPaid string  `json:"total_commission_paid"`
	CreatedAt           string  `json:"created_at"`
}

type ResolveCommissionResponse struct {
	Matched          bool                    `json:"matched"`
	Rule             *CommissionRuleResponse `json:"rule,omitempty"`
	CommissionAmount string                  `json:"commission_amount,omitempty"`
}

// EarningDraft is a computed, not-yet-persisted commission earning
type EarningDraft struct {
	UserID           string `json:"user_id"`
	OrderID          string `json:"order_id"`
	ProductID        string `json:"product_id"`
	RuleID           string `json:"rule_id"`
	OrderAmount      string `json:"order_amount"`
	CommissionAmount string `json:"commission_amount"`
	CommissionRate   string `json:"commission_rate"`
	CommissionType   string `json:"commission_type"`
}

type EarningResponse struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	Username         string `json:"username,omitempty"`
	OrderID          string `json:"order_id"`
	ProductID        string `json:"product_id"`
	RuleID           string `json:"rule_id"`
	OrderAmount      string `json:"order_amount"`
	CommissionAmount string `json:"commission_amount"`
	CommissionRate   string `json:"commission_rate"`
	CommissionType   string `json:"commission_type"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
}

type EarningStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=approved paid cancelled"`
}

type EarningFilter struct {
	UserID string
	Status string
	Page   int
	Limit  int
}

// --- Errors ---

var (
	ErrRuleNotFound             = errors.New("commission rule not found")
	ErrEarningNotFound          = errors.New("commission earning not found")
	ErrInvalidEarningTransition = errors.New("invalid earning status transition")
)

// --- Interface ---

type CommissionService interface {
	CreateRule(ctx context.Context, req CreateCommissionRuleRequest, actorID string) (CommissionRuleResponse, error)
	ListRules(ctx context.Context, page, limit int, activeOnly bool) ([]CommissionRuleResponse, int64, error)
	DeactivateRule(ctx context.Context, id string, actorID string) error
	Resolve(ctx context.Context, req ResolveCommissionRequest) (ResolveCommissionResponse, error)
	CalculateForOrder(ctx context.Context, orderID string) ([]EarningDraft, error)
	ConfirmOrderCommissions(ctx context.Context, orderID string, actorID string) ([]EarningResponse, error)
	UpdateEarningStatus(ctx context.Context, id string, req EarningStatusRequest, actorID string) (EarningResponse, error)
	ListEarnings(ctx context.Context, filter EarningFilter) ([]EarningResponse, int64, error)
	GetSummary(ctx context.Context, groupBy, startDate, endDate string) ([]repository.EarningSummaryRow, error)
}

type commissionService struct {
	ruleRepo    repository.CommissionRuleRepository
	earningRepo repository.CommissionEarningRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewCommissionService(
	ruleRepo repository.CommissionRuleRepository,
	earningRepo repository.CommissionEarningRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CommissionService {
	return &commissionService{
		ruleRepo:    ruleRepo,
		earningRepo: earningRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

// --- Rule management ---

func (s *commissionService) CreateRule(ctx context.Context, req CreateCommissionRuleRequest, actorID string) (CommissionRuleResponse, error) {
	rule, err := buildRuleFromRequest(req)
	if err != nil {
		return CommissionRuleResponse{}, err
	}

	var actor *uuid.UUID
	if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
		actor = &parsed
		rule.CreatedBy = actor
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.ruleRepo.Create(txCtx, rule); createErr != nil {
			return fmt.Errorf("failed to create commission rule: %w", createErr)
		}

		details, _ := json.Marshal(req)
		_ = s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionCreateCommissionRule,
			EntityID:   rule.ID.String(),
			EntityName: rule.Scope().String() + " " + rule.CommissionType,
			Details:    string(details),
		})
		return nil
	})
	if err != nil {
		return CommissionRuleResponse{}, err
	}

	return toRuleResponse(*rule), nil
}

func (s *commissionService) ListRules(ctx context.Context, page, limit int, activeOnly bool) ([]CommissionRuleResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	rules, total, err := s.ruleRepo.List(ctx, page, limit, activeOnly)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list commission rules: %w", err)
	}

	res := make([]CommissionRuleResponse, 0, len(rules))
	for _, rule := range rules {
		res = append(res, toRuleResponse(rule))
	}
	return res, total, nil
}

// DeactivateRule soft-disables a rule; earning history keeps referencing it
func (s *commissionService) DeactivateRule(ctx context.Context, id string, actorID string) error {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid rule id: %w", err)
	}

	rule, err := s.ruleRepo.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRuleNotFound
		}
		return fmt.Errorf("failed to fetch commission rule: %w", err)
	}

	var actor *uuid.UUID
	if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
		actor = &parsed
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ruleRepo.Deactivate(txCtx, ruleID); err != nil {
			return fmt.Errorf("failed to deactivate commission rule: %w", err)
		}
		_ = s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionDeactivateCommissionRule,
			EntityID:   ruleID.String(),
			EntityName: rule.Scope().String() + " " + rule.CommissionType,
			Details:    `{"deactivated_id":"` + id + `"}`,
		})
		return nil
	})
}

// --- Resolution ---

// Resolve previews which rule would apply for a sale and what it would pay
func (s *commissionService) Resolve(ctx context.Context, req ResolveCommissionRequest) (ResolveCommissionResponse, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return ResolveCommissionResponse{}, fmt.Errorf("invalid user_id: %w", err)
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return ResolveCommissionResponse{}, fmt.Errorf("invalid product_id: %w", err)
	}
	amount, err := decimal.NewFromString(req.OrderAmount)
	if err != nil {
		return ResolveCommissionResponse{}, fmt.Errorf("invalid order_amount: %w", err)
	}
	if amount.IsNegative() {
		return ResolveCommissionResponse{}, errors.New("order_amount must not be negative")
	}

	at := time.Now()
	if req.At != "" {
		parsed, parseErr := time.Parse(time.RFC3339, req.At)
		if parseErr != nil {
			return ResolveCommissionResponse{}, fmt.Errorf("invalid at timestamp (expected RFC3339): %w", parseErr)
		}
		at = parsed
	}

	userRole := req.UserRole
	if userRole == "" {
		if user, userErr := s.userRepo.GetByID(ctx, req.UserID); userErr == nil {
			userRole = user.Role
		}
	}

	candidates, err := s.ruleRepo.ListEligible(ctx, at, amount)
	if err != nil {
		return ResolveCommissionResponse{}, fmt.Errorf("failed to query eligible rules: %w", err)
	}

	rule := resolveRule(candidates, ruleQuery{
		UserID:          userID,
		UserRole:        userRole,
		ProductID:       productID,
		ProductCategory: req.ProductCategory,
		OrderAmount:     amount,
		At:              at,
	})
	if rule == nil {
		return ResolveCommissionResponse{Matched: false}, nil
	}

	resp := toRuleResponse(*rule)
	return ResolveCommissionResponse{
		Matched:          true,
		Rule:             &resp,
		CommissionAmount: computeCommission(rule, amount).StringFixed(2),
	}, nil
}

// CalculateForOrder resolves and computes commission per order item without
// persisting anything. Items with no assignee or no applicable rule produce
// no draft.
func (s *commissionService) CalculateForOrder(ctx context.Context, orderID string) ([]EarningDraft, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}

	order, err := s.orderRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("order not found")
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	drafts := make([]EarningDraft, 0, len(order.Items))
	for _, item := range order.Items {
		draft, ok, draftErr := s.draftForItem(ctx, order, item)
		if draftErr != nil {
			return nil, draftErr
		}
		if ok {
			drafts = append(drafts, draft)
		}
	}
	return drafts, nil
}

// ConfirmOrderCommissions persists the drafts for an order as pending
// earnings. Items that already have an earning for this order are skipped, so
// the call is safe to repeat.
func (s *commissionService) ConfirmOrderCommissions(ctx context.Context, orderID string, actorID string) ([]EarningResponse, error) {
	drafts, err := s.CalculateForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var actor *uuid.UUID
	if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
		actor = &parsed
	}

	res := make([]EarningResponse, 0, len(drafts))
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, draft := range drafts {
			earning, persistErr := s.persistDraft(txCtx, draft)
			if persistErr != nil {
				return persistErr
			}
			if earning == nil {
				continue // already recorded
			}
			res = append(res, toEarningResponse(*earning))
		}

		if len(res) > 0 {
			details, _ := json.Marshal(map[string]interface{}{"order_id": orderID, "earnings": len(res)})
			_ = s.auditRepo.Log(txCtx, &model.AuditLog{
				UserID:   actor,
				Action:   model.ActionCalculateOrderCommission,
				EntityID: orderID,
				Details:  string(details),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (s *commissionService) UpdateEarningStatus(ctx context.Context, id string, req EarningStatusRequest, actorID string) (EarningResponse, error) {
	earningID, err := uuid.Parse(id)
	if err != nil {
		return EarningResponse{}, fmt.Errorf("invalid earning id: %w", err)
	}

	earning, err := s.earningRepo.FindByID(ctx, earningID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EarningResponse{}, ErrEarningNotFound
		}
		return EarningResponse{}, fmt.Errorf("failed to fetch earning: %w", err)
	}

	if !model.ValidEarningTransition(earning.Status, req.Status) {
		return EarningResponse{}, fmt.Errorf("%w: %s -> %s", ErrInvalidEarningTransition, earning.Status, req.Status)
	}

	var actor *uuid.UUID
	if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
		actor = &parsed
	}

	now := time.Now()
	action := model.ActionApproveEarning
	switch req.Status {
	case model.EarningApproved:
		earning.ApprovedBy = actor
		earning.ApprovedAt = &now
	case model.EarningPaid:
		earning.PaidAt = &now
		action = model.ActionPayEarning
	case model.EarningCancelled:
		action = model.ActionCancelEarning
	}
	earning.Status = req.Status

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.earningRepo.Update(txCtx, earning); updateErr != nil {
			return fmt.Errorf("failed to update earning: %w", updateErr)
		}

		// Rule lifetime totals only count commissions actually paid out
		if req.Status == model.EarningPaid {
			if usageErr := s.ruleRepo.RecordUsage(txCtx, earning.RuleID, earning.CommissionAmount); usageErr != nil {
				return fmt.Errorf("failed to record rule usage: %w", usageErr)
			}
		}

		details, _ := json.Marshal(map[string]string{"status": req.Status})
		_ = s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:   actor,
			Action:   action,
			EntityID: earning.ID.String(),
			Details:  string(details),
		})
		return nil
	})
	if err != nil {
		return EarningResponse{}, err
	}

	return toEarningResponse(*earning), nil
}

func (s *commissionService) ListEarnings(ctx context.Context, filter EarningFilter) ([]EarningResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	var userID *uuid.UUID
	if filter.UserID != "" {
		parsed, err := uuid.Parse(filter.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid user_id filter: %w", err)
		}
		userID = &parsed
	}

	earnings, total, err := s.earningRepo.List(ctx, userID, filter.Status, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list earnings: %w", err)
	}

	res := make([]EarningResponse, 0, len(earnings))
	for _, earning := range earnings {
		res = append(res, toEarningResponse(earning))
	}
	return res, total, nil
}

func (s *commissionService) GetSummary(ctx context.Context, groupBy, startDate, endDate string) ([]repository.EarningSummaryRow, error) {
	switch groupBy {
	case "day", "week", "month":
	default:
		return nil, fmt.Errorf("invalid group_by '%s' (expected day, week or month)", groupBy)
	}
	return s.earningRepo.GetSummary(ctx, groupBy, startDate, endDate)
}

// --- Rule resolution core ---

// ruleQuery is the (salesperson, product, amount, time) tuple a rule is
// resolved against
type ruleQuery struct {
	UserID          uuid.UUID
	UserRole        string
	ProductID       uuid.UUID
	ProductCategory string
	OrderAmount     decimal.Decimal
	At              time.Time
}

// ruleMatches reports whether every scope field the rule sets agrees with the
// query, and re-checks eligibility so the function is usable on unfiltered
// rule sets.
func ruleMatches(rule *model.CommissionRule, q ruleQuery) bool {
	if !rule.Active {
		return false
	}
	if rule.EffectiveFrom.After(q.At) {
		return false
	}
	if rule.EffectiveUntil != nil && rule.EffectiveUntil.Before(q.At) {
		return false
	}
	if rule.MinOrderAmount != nil && q.OrderAmount.LessThan(*rule.MinOrderAmount) {
		return false
	}

	if rule.UserID != nil && *rule.UserID != q.UserID {
		return false
	}
	if rule.UserRole != nil && *rule.UserRole != q.UserRole {
		return false
	}
	if rule.ProductID != nil && *rule.ProductID != q.ProductID {
		return false
	}
	if rule.ProductCategory != nil && *rule.ProductCategory != q.ProductCategory {
		return false
	}
	return true
}

// resolveRule picks the single applicable rule: highest specificity class
// first, then highest priority, then most recently created. Returns nil when
// nothing matches. The ordering is the documented contract, not an accident
// of sort order.
func resolveRule(rules []model.CommissionRule, q ruleQuery) *model.CommissionRule {
	matched := make([]*model.CommissionRule, 0, len(rules))
	for i := range rules {
		if ruleMatches(&rules[i], q) {
			matched = append(matched, &rules[i])
		}
	}
	if len(matched) == 0 {
		return nil
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Scope() != matched[j].Scope() {
			return matched[i].Scope() > matched[j].Scope()
		}
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return matched[0]
}

// computeCommission turns a resolved rule and item total into a clamped,
// non-negative amount. Percentage commissions never exceed the item total;
// fixed commissions deliberately may.
func computeCommission(rule *model.CommissionRule, itemTotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch rule.CommissionType {
	case model.CommissionTypePercentage:
		amount = itemTotal.Mul(rule.CommissionValue).Div(decimal.NewFromInt(100))
		if amount.GreaterThan(itemTotal) {
			amount = itemTotal
		}
	default: // fixed
		amount = rule.CommissionValue
	}

	if rule.MaxCommissionAmount != nil && amount.GreaterThan(*rule.MaxCommissionAmount) {
		amount = *rule.MaxCommissionAmount
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return round2(amount)
}

// --- Helpers ---

func (s *commissionService) draftForItem(ctx context.Context, order *model.Order, item model.OrderItem) (EarningDraft, bool, error) {
	product, err := s.productRepo.FindByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EarningDraft{}, false, nil
		}
		return EarningDraft{}, false, fmt.Errorf("failed to fetch product %s: %w", item.ProductID, err)
	}

	assignee := product.CommissionAssignee()
	if assignee == nil {
		return EarningDraft{}, false, nil
	}

	userRole := ""
	if user, userErr := s.userRepo.GetByID(ctx, assignee.String()); userErr == nil {
		userRole = user.Role
	}

	itemTotal := item.TotalAmount()
	at := order.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}

	candidates, err := s.ruleRepo.ListEligible(ctx, at, itemTotal)
	if err != nil {
		return EarningDraft{}, false, fmt.Errorf("failed to query eligible rules: %w", err)
	}

	rule := resolveRule(candidates, ruleQuery{
		UserID:          *assignee,
		UserRole:        userRole,
		ProductID:       product.ID,
		ProductCategory: product.Category,
		OrderAmount:     itemTotal,
		At:              at,
	})
	if rule == nil {
		return EarningDraft{}, false, nil
	}

	return EarningDraft{
		UserID:           assignee.String(),
		OrderID:          order.ID.String(),
		ProductID:        product.ID.String(),
		RuleID:           rule.ID.String(),
		OrderAmount:      round2(itemTotal).StringFixed(2),
		CommissionAmount: computeCommission(rule, itemTotal).StringFixed(2),
		CommissionRate:   rule.CommissionValue.String(),
		CommissionType:   rule.CommissionType,
	}, true, nil
}

// persistDraft inserts one draft as a pending earning, returning nil when an
// earning already exists for the same order item.
func (s *commissionService) persistDraft(ctx context.Context, draft EarningDraft) (*model.CommissionEarning, error) {
	orderID := uuid.MustParse(draft.OrderID)
	productID := uuid.MustParse(draft.ProductID)

	exists, err := s.earningRepo.ExistsForOrderItem(ctx, orderID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing earnings: %w", err)
	}
	if exists {
		return nil, nil
	}

	orderAmount, _ := decimal.NewFromString(draft.OrderAmount)
	commissionAmount, _ := decimal.NewFromString(draft.CommissionAmount)
	commissionRate, _ := decimal.NewFromString(draft.CommissionRate)

	earning := &model.CommissionEarning{
		UserID:           uuid.MustParse(draft.UserID),
		OrderID:          orderID,
		ProductID:        productID,
		RuleID:           uuid.MustParse(draft.RuleID),
		OrderAmount:      orderAmount,
		CommissionAmount: commissionAmount,
		CommissionRate:   commissionRate,
		CommissionType:   draft.CommissionType,
		Status:           model.EarningPending,
	}

	if err := s.earningRepo.Create(ctx, earning); err != nil {
		return nil, fmt.Errorf("failed to create earning: %w", err)
	}
	return earning, nil
}

func buildRuleFromRequest(req CreateCommissionRuleRequest) (*model.CommissionRule, error) {
	value, err := decimal.NewFromString(req.CommissionValue)
	if err != nil {
		return nil, fmt.Errorf("invalid commission_value: %w", err)
	}
	if value.IsNegative() {
		return nil, errors.New("commission_value must not be negative")
	}
	if req.CommissionType == model.CommissionTypePercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errors.New("percentage commission_value must not exceed 100")
	}

	rule := &model.CommissionRule{
		CommissionType:      req.CommissionType,
		CommissionValue:     value,
		Priority:            req.Priority,
		EffectiveFrom:       time.Now(),
		Active:              true,
		TotalCommissionPaid: decimal.Zero,
	}

	if req.UserID != "" {
		id, parseErr := uuid.Parse(req.UserID)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid user_id: %w", parseErr)
		}
		rule.UserID = &id
	}
	if req.UserRole != "" {
		role := req.UserRole
		rule.UserRole = &role
	}
	if req.ProductID != "" {
		id, parseErr := uuid.Parse(req.ProductID)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid product_id: %w", parseErr)
		}
		rule.ProductID = &id
	}
	if req.ProductCategory != "" {
		category := req.ProductCategory
		rule.ProductCategory = &category
	}
	if req.MinOrderAmount != "" {
		min, parseErr := decimal.NewFromString(req.MinOrderAmount)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid min_order_amount: %w", parseErr)
		}
		rule.MinOrderAmount = &min
	}
	if req.MaxCommissionAmount != "" {
		max, parseErr := decimal.NewFromString(req.MaxCommissionAmount)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid max_commission_amount: %w", parseErr)
		}
		rule.MaxCommissionAmount = &max
	}
	if req.EffectiveFrom != "" {
		from, parseErr := time.Parse("2006-01-02", req.EffectiveFrom)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid effective_from date format (expected YYYY-MM-DD): %w", parseErr)
		}
		rule.EffectiveFrom = from
	}
	if req.EffectiveUntil != "" {
		until, parseErr := time.Parse("2006-01-02", req.EffectiveUntil)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid effective_until date format (expected YYYY-MM-DD): %w", parseErr)
		}
		if until.Before(rule.EffectiveFrom) {
			return nil, errors.New("effective_until must not precede effective_from")
		}
		rule.EffectiveUntil = &until
	}

	return rule, nil
}

func toRuleResponse(rule model.CommissionRule) CommissionRuleResponse {
	resp := CommissionRuleResponse{
		ID:                  rule.ID.String(),
		Scope:               rule.Scope().String(),
		UserRole:            rule.UserRole,
		ProductCategory:     rule.ProductCategory,
		CommissionType:      rule.CommissionType,
		CommissionValue:     rule.CommissionValue.String(),
		Priority:            rule.Priority,
		EffectiveFrom:       rule.EffectiveFrom.Format("2006-01-02"),
		Active:              rule.Active,
		UsageCount:          rule.UsageCount,
		TotalCommissionPaid: rule.TotalCommissionPaid.StringFixed(2),
		CreatedAt:           rule.CreatedAt.Format(time.RFC3339),
	}
	if rule.UserID != nil {
		id := rule.UserID.String()
		resp.UserID = &id
	}
	if rule.ProductID != nil {
		id := rule.ProductID.String()
		resp.ProductID = &id
	}
	if rule.MinOrderAmount != nil {
		v := rule.MinOrderAmount.StringFixed(2)
		resp.MinOrderAmount = &v
	}
	if rule.MaxCommissionAmount != nil {
		v := rule.MaxCommissionAmount.StringFixed(2)
		resp.MaxCommissionAmount = &v
	}
	if rule.EffectiveUntil != nil {
		v := rule.EffectiveUntil.Format("2006-01-02")
		resp.EffectiveUntil = &v
	}
	return resp
}

func toEarningResponse(earning model.CommissionEarning) EarningResponse {
	resp := EarningResponse{
		ID:               earning.ID.String(),
		UserID:           earning.UserID.String(),
		OrderID:          earning.OrderID.String(),
		ProductID:        earning.ProductID.String(),
		RuleID:           earning.RuleID.String(),
		OrderAmount:      earning.OrderAmount.StringFixed(2),
		CommissionAmount: earning.CommissionAmount.StringFixed(2),
		CommissionRate:   earning.CommissionRate.String(),
		CommissionType:   earning.CommissionType,
		Status:           earning.Status,
		CreatedAt:        earning.CreatedAt.Format(time.RFC3339),
	}
	if earning.User != nil {
		resp.Username = earning.User.Username
	}
	return resp
}

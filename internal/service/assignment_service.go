package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"giftshop/internal/model"
	"giftshop/internal/repository"
	ws "giftshop/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type AssignProductRequest struct {
	ProductID  string `json:"product_id" binding:"required"`
	AssignedTo string `json:"assigned_to" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
	Notes      string `json:"notes"`
}

type ReassignProductRequest struct {
	NewAssignee string `json:"new_assignee" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
	Notes       string `json:"notes"`
}

type AssignmentResponse struct {
	ID                 string  `json:"id"`
	ProductID          string  `json:"product_id"`
	AssignedTo         string  `json:"assigned_to"`
	AssigneeName       string  `json:"assignee_name,omitempty"`
	AssignedBy         *string `json:"assigned_by"`
	Reason             string  `json:"reason"`
	Status             string  `json:"status"`
	Notes              string  `json:"notes,omitempty"`
	StartDate          string  `json:"start_date"`
	EndDate            *string `json:"end_date"`
	SnapshotSalesCount int64   `json:"snapshot_sales_count"`
	SnapshotRevenue    string  `json:"snapshot_revenue"`
}

// AssigneeOption is one candidate for the reassignment picker
type AssigneeOption struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// --- Errors ---

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrAssigneeNotFound    = errors.New("assignee not found")
	ErrInvalidAssigneeRole = errors.New("assignee role cannot carry product assignments")
	ErrAssignmentConflict  = errors.New("concurrent assignment detected, retry the operation")
	ErrAssignmentNotFound  = errors.New("assignment not found")
)

// --- Interface ---

type AssignmentService interface {
	Assign(ctx context.Context, req AssignProductRequest, actorID string) (AssignmentResponse, error)
	Reassign(ctx context.Context, productID string, req ReassignProductRequest, actorID string) (AssignmentResponse, error)
	Revoke(ctx context.Context, productID string, actorID string) error
	GetActive(ctx context.Context, productID string) (AssignmentResponse, error)
	GetHistory(ctx context.Context, productID string) ([]AssignmentResponse, error)
	ListAssignableUsers(ctx context.Context) ([]AssigneeOption, error)
}

type assignmentService struct {
	assignmentRepo  repository.AssignmentRepository
	productRepo     repository.ProductRepository
	userRepo        repository.UserRepository
	performanceRepo repository.PerformanceRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
	hub             *ws.Hub

	// One mutex per product id so concurrent transfers of the same product
	// serialize in-process; the assignment_version CAS covers other processes.
	productLocks sync.Map
}

func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	performanceRepo repository.PerformanceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) AssignmentService {
	return &assignmentService{
		assignmentRepo:  assignmentRepo,
		productRepo:     productRepo,
		userRepo:        userRepo,
		performanceRepo: performanceRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
		hub:             hub,
	}
}

func (s *assignmentService) lockProduct(productID uuid.UUID) func() {
	value, _ := s.productLocks.LoadOrStore(productID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Assign gives a product to a user, closing any currently active assignment
// first so at most one assignment per product is ever active.
func (s *assignmentService) Assign(ctx context.Context, req AssignProductRequest, actorID string) (AssignmentResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return AssignmentResponse{}, fmt.Errorf("invalid product_id: %w", err)
	}
	assigneeID, err := uuid.Parse(req.AssignedTo)
	if err != nil {
		return AssignmentResponse{}, fmt.Errorf("invalid assigned_to: %w", err)
	}
	if !model.IsValidAssignmentReason(req.Reason) {
		return AssignmentResponse{}, fmt.Errorf("invalid assignment reason '%s'", req.Reason)
	}

	assignee, err := s.userRepo.GetByID(ctx, assigneeID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AssignmentResponse{}, ErrAssigneeNotFound
		}
		return AssignmentResponse{}, fmt.Errorf("failed to fetch assignee: %w", err)
	}
	if !model.IsSalesCapableRole(assignee.Role) {
		return AssignmentResponse{}, fmt.Errorf("%w: %s", ErrInvalidAssigneeRole, assignee.Role)
	}

	unlock := s.lockProduct(productID)
	defer unlock()

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AssignmentResponse{}, ErrProductNotFound
		}
		return AssignmentResponse{}, fmt.Errorf("failed to fetch product: %w", err)
	}

	assignment, err := s.transfer(ctx, product, &assigneeID, req.Reason, req.Notes, actorID)
	if err != nil {
		return AssignmentResponse{}, err
	}

	s.broadcastAssignmentEvent(product, assignment)

	resp := toAssignmentResponse(*assignment)
	resp.AssigneeName = assignee.Username
	return resp, nil
}

// Reassign moves the product from its current assignee to a new one
func (s *assignmentService) Reassign(ctx context.Context, productID string, req ReassignProductRequest, actorID string) (AssignmentResponse, error) {
	return s.Assign(ctx, AssignProductRequest{
		ProductID:  productID,
		AssignedTo: req.NewAssignee,
		Reason:     req.Reason,
		Notes:      req.Notes,
	}, actorID)
}

// Revoke ends the active assignment without naming a successor
func (s *assignmentService) Revoke(ctx context.Context, productID string, actorID string) error {
	id, err := uuid.Parse(productID)
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}

	unlock := s.lockProduct(id)
	defer unlock()

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to fetch product: %w", err)
	}

	if _, err := s.transfer(ctx, product, nil, model.ReasonManualAdmin, "", actorID); err != nil {
		return err
	}

	s.broadcastAssignmentEvent(product, nil)
	return nil
}

func (s *assignmentService) GetActive(ctx context.Context, productID string) (AssignmentResponse, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return AssignmentResponse{}, fmt.Errorf("invalid product id: %w", err)
	}

	assignment, err := s.assignmentRepo.FindActiveByProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AssignmentResponse{}, ErrAssignmentNotFound
		}
		return AssignmentResponse{}, fmt.Errorf("failed to fetch active assignment: %w", err)
	}
	return toAssignmentResponse(*assignment), nil
}

func (s *assignmentService) GetHistory(ctx context.Context, productID string) ([]AssignmentResponse, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", err)
	}

	assignments, err := s.assignmentRepo.ListByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	res := make([]AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		resp := toAssignmentResponse(a)
		if a.Assignee != nil {
			resp.AssigneeName = a.Assignee.Username
		}
		res = append(res, resp)
	}
	return res, nil
}

// ListAssignableUsers returns every user who may carry product assignments
func (s *assignmentService) ListAssignableUsers(ctx context.Context) ([]AssigneeOption, error) {
	users, err := s.userRepo.ListByRole(ctx, model.RoleManager, model.RoleSalesperson)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignable users: %w", err)
	}

	options := make([]AssigneeOption, 0, len(users))
	for _, u := range users {
		options = append(options, AssigneeOption{
			ID:       u.ID.String(),
			Username: u.Username,
			Role:     u.Role,
		})
	}
	return options, nil
}

// transfer closes the active assignment (if any), records the new one, and
// flips the product's assignee under an optimistic version check. A nil
// newAssignee revokes. Runs as one transaction so a failed CAS leaves no
// partial history row behind.
func (s *assignmentService) transfer(ctx context.Context, product *model.Product, newAssignee *uuid.UUID, reason, notes, actorID string) (*model.ProductAssignment, error) {
	var actor *uuid.UUID
	if parsed, err := uuid.Parse(actorID); err == nil {
		actor = &parsed
	}

	salesCount, revenue := s.snapshotPerformance(ctx, product.ID)

	var created *model.ProductAssignment
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		now := time.Now()

		closeStatus := model.AssignmentReassigned
		action := model.ActionReassignProduct
		if newAssignee == nil {
			closeStatus = model.AssignmentRevoked
			action = model.ActionRevokeAssignment
		}

		closed, closeErr := s.assignmentRepo.CloseActive(txCtx, product.ID, closeStatus, now)
		if closeErr != nil {
			return fmt.Errorf("failed to close active assignment: %w", closeErr)
		}
		if closed == 0 && newAssignee != nil {
			action = model.ActionCreateAssignment
		}
		if closed == 0 && newAssignee == nil {
			return ErrAssignmentNotFound
		}

		if newAssignee != nil {
			created = &model.ProductAssignment{
				ProductID:          product.ID,
				AssignedTo:         *newAssignee,
				AssignedBy:         actor,
				Reason:             reason,
				Status:             model.AssignmentActive,
				Notes:              notes,
				StartDate:          now,
				SnapshotSalesCount: salesCount,
				SnapshotRevenue:    revenue,
			}
			if createErr := s.assignmentRepo.Create(txCtx, created); createErr != nil {
				return fmt.Errorf("failed to create assignment: %w", createErr)
			}
		}

		affected, casErr := s.productRepo.UpdateAssignee(txCtx, product.ID, product.AssignmentVersion, newAssignee)
		if casErr != nil {
			return fmt.Errorf("failed to update product assignee: %w", casErr)
		}
		if affected == 0 {
			return ErrAssignmentConflict
		}

		details, _ := json.Marshal(map[string]interface{}{
			"product_id": product.ID.String(),
			"assignee":   uuidPtrString(newAssignee),
			"reason":     reason,
		})
		_ = s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     actor,
			Action:     action,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	product.AssignedTo = newAssignee
	product.AssignmentVersion++
	return created, nil
}

// snapshotPerformance captures the product's all-time sales figures at
// handover. Best effort: a metrics failure never blocks a transfer.
func (s *assignmentService) snapshotPerformance(ctx context.Context, productID uuid.UUID) (int64, decimal.Decimal) {
	rows, err := s.performanceRepo.GetSalesByProduct(ctx, time.Time{})
	if err != nil {
		return 0, decimal.Zero
	}
	for _, row := range rows {
		if row.ProductID == productID {
			revenue, parseErr := decimal.NewFromString(row.Revenue)
			if parseErr != nil {
				revenue = decimal.Zero
			}
			return row.SalesCount, revenue
		}
	}
	return 0, decimal.Zero
}

func (s *assignmentService) broadcastAssignmentEvent(product *model.Product, assignment *model.ProductAssignment) {
	if s.hub == nil {
		return
	}
	data := map[string]string{
		"product_id": product.ID.String(),
		"sku":        product.SKU,
	}
	if assignment != nil {
		data["assigned_to"] = assignment.AssignedTo.String()
		data["reason"] = assignment.Reason
	}
	s.hub.Notify("assignment_changed", data)
}

func toAssignmentResponse(a model.ProductAssignment) AssignmentResponse {
	resp := AssignmentResponse{
		ID:                 a.ID.String(),
		ProductID:          a.ProductID.String(),
		AssignedTo:         a.AssignedTo.String(),
		Reason:             a.Reason,
		Status:             a.Status,
		Notes:              a.Notes,
		StartDate:          a.StartDate.Format(time.RFC3339),
		SnapshotSalesCount: a.SnapshotSalesCount,
		SnapshotRevenue:    a.SnapshotRevenue.StringFixed(2),
	}
	if a.AssignedBy != nil {
		v := a.AssignedBy.String()
		resp.AssignedBy = &v
	}
	if a.EndDate != nil {
		v := a.EndDate.Format(time.RFC3339)
		resp.EndDate = &v
	}
	return resp
}

func uuidPtrString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"giftshop/internal/model"
	"giftshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateProductRequest struct {
	SKU             string `json:"sku" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Price           string `json:"price" binding:"required"`
	Category        string `json:"category" binding:"required"`
	TaxCategory     string `json:"tax_category"`
	TaxCalcOverride string `json:"tax_calc_override" binding:"omitempty,oneof=inclusive exclusive"`
}

type UpdateProductRequest struct {
	SKU             string `json:"sku" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Price           string `json:"price" binding:"required"`
	Category        string `json:"category" binding:"required"`
	TaxCategory     string `json:"tax_category"`
	TaxCalcOverride string `json:"tax_calc_override" binding:"omitempty,oneof=inclusive exclusive"`
}

type ProductResponse struct {
	ID              string  `json:"id"`
	SKU             string  `json:"sku"`
	Name            string  `json:"name"`
	Price           string  `json:"price"`
	Category        string  `json:"category"`
	TaxCategory     *string `json:"tax_category"`
	TaxCalcOverride *string `json:"tax_calc_override"`
	AssignedTo      *string `json:"assigned_to"`
}

type CreateOrderItemRequest struct {
	ProductID       string `json:"product_id" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice       string `json:"unit_price"` // Optional: defaults to the catalog price
	TaxCategory     string `json:"tax_category"`
	TaxCalcOverride string `json:"tax_calc_override" binding:"omitempty,oneof=inclusive exclusive"`
}

type CreateOrderRequest struct {
	OrderCode     string                   `json:"order_code" binding:"required"`
	CustomerState string                   `json:"customer_state" binding:"required"`
	SellerState   string                   `json:"seller_state" binding:"required"`
	Note          string                   `json:"note"`
	Items         []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	OrderCode     string              `json:"order_code"`
	CustomerState string              `json:"customer_state"`
	SellerState   string              `json:"seller_state"`
	Status        string              `json:"status"`
	Note          string              `json:"note,omitempty"`
	Items         []OrderItemResponse `json:"items,omitempty"`
	Tax           *OrderTaxBreakdown  `json:"tax,omitempty"`
}

type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
}

type OrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=COMPLETED CANCELLED"`
}

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotPending   = errors.New("only pending orders can change status")
	ErrDuplicateSKU      = errors.New("a product with this SKU already exists")
	ErrUnknownTaxCat     = errors.New("unknown tax category")
	ErrDuplicateOrderRef = errors.New("order code already used")
)

// CatalogService owns product CRUD plus order intake and lifecycle. Completing
// an order is what turns its items into commission earnings.
type CatalogService interface {
	GetProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
	CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, userID string, id string) error
	CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (OrderResponse, error)
	GetOrder(ctx context.Context, id string) (OrderResponse, error)
	ListOrders(ctx context.Context, page, limit int) ([]OrderResponse, int64, error)
	UpdateOrderStatus(ctx context.Context, userID string, id string, req OrderStatusRequest) (OrderResponse, error)
}

type catalogService struct {
	productRepo       repository.ProductRepository
	orderRepo         repository.OrderRepository
	auditRepo         repository.AuditRepository
	txManager         repository.TransactionManager
	taxService        TaxService
	commissionService CommissionService
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	taxService TaxService,
	commissionService CommissionService,
) CatalogService {
	return &catalogService{
		productRepo:       productRepo,
		orderRepo:         orderRepo,
		auditRepo:         auditRepo,
		txManager:         txManager,
		taxService:        taxService,
		commissionService: commissionService,
	}
}

func (s *catalogService) GetProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}

	return res, total, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (ProductResponse, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid price: %w", err)
	}
	if price.IsNegative() {
		return ProductResponse{}, errors.New("price must not be negative")
	}
	if req.TaxCategory != "" && !model.IsValidTaxCategory(req.TaxCategory) {
		return ProductResponse{}, fmt.Errorf("%w: %s", ErrUnknownTaxCat, req.TaxCategory)
	}

	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return ProductResponse{}, ErrDuplicateSKU
	}

	var uid *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		uid = &parsed
	}

	product := model.Product{
		SKU:        req.SKU,
		Name:       req.Name,
		Price:      price,
		Category:   req.Category,
		UploadedBy: uid,
	}
	if req.TaxCategory != "" {
		product.TaxCategory = &req.TaxCategory
	}
	if req.TaxCalcOverride != "" {
		product.TaxCalcOverride = &req.TaxCalcOverride
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionCreateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		return nil
	})

	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(product), nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid product id: %w", err)
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid price: %w", err)
	}
	if req.TaxCategory != "" && !model.IsValidTaxCategory(req.TaxCategory) {
		return ProductResponse{}, fmt.Errorf("%w: %s", ErrUnknownTaxCat, req.TaxCategory)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, ErrProductNotFound
		}
		return ProductResponse{}, fmt.Errorf("database error: %w", err)
	}

	product.SKU = req.SKU
	product.Name = req.Name
	product.Price = price
	product.Category = req.Category
	product.TaxCategory = nil
	if req.TaxCategory != "" {
		product.TaxCategory = &req.TaxCategory
	}
	product.TaxCalcOverride = nil
	if req.TaxCalcOverride != "" {
		product.TaxCalcOverride = &req.TaxCalcOverride
	}

	var uid *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		uid = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionUpdateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})

	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(*product), nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, userID string, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}

	var uid *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		uid = &parsed
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, productID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionDeleteProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

func (s *catalogService) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (OrderResponse, error) {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	var order model.Order
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var productNames []string
		items := make([]model.OrderItem, 0, len(req.Items))

		for _, itemReq := range req.Items {
			pid, parseErr := uuid.Parse(itemReq.ProductID)
			if parseErr != nil {
				return fmt.Errorf("invalid product_id: %w", parseErr)
			}
			product, findErr := s.productRepo.FindByID(txCtx, pid)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product not found: %s", itemReq.ProductID)
				}
				return fmt.Errorf("failed to find product %s: %w", itemReq.ProductID, findErr)
			}

			unitPrice := product.Price
			if itemReq.UnitPrice != "" {
				parsed, priceErr := decimal.NewFromString(itemReq.UnitPrice)
				if priceErr != nil {
					return fmt.Errorf("invalid unit_price for %s: %w", itemReq.ProductID, priceErr)
				}
				unitPrice = parsed
			}

			item := model.OrderItem{
				ProductID: pid,
				Quantity:  itemReq.Quantity,
				UnitPrice: unitPrice,
			}
			if itemReq.TaxCategory != "" {
				if !model.IsValidTaxCategory(itemReq.TaxCategory) {
					return fmt.Errorf("%w: %s", ErrUnknownTaxCat, itemReq.TaxCategory)
				}
				category := itemReq.TaxCategory
				item.TaxCategory = &category
			}
			if itemReq.TaxCalcOverride != "" {
				mode := itemReq.TaxCalcOverride
				item.TaxCalcOverride = &mode
			}

			productNames = append(productNames, product.Name)
			items = append(items, item)
		}

		order = model.Order{
			OrderCode:     req.OrderCode,
			CustomerState: req.CustomerState,
			SellerState:   req.SellerState,
			Note:          req.Note,
			Status:        model.OrderStatusPending,
		}
		if err := s.orderRepo.Create(txCtx, &order); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique") {
				return ErrDuplicateOrderRef
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
			if err := s.orderRepo.CreateItem(txCtx, &items[i]); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}
		order.Items = items

		details, _ := json.Marshal(map[string]interface{}{
			"order_code":     req.OrderCode,
			"customer_state": req.CustomerState,
			"seller_state":   req.SellerState,
			"items":          len(items),
		})
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionCreateOrder,
			EntityID:   order.ID.String(),
			EntityName: strings.Join(productNames, ", "),
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to record audit transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	resp := toOrderResponse(order)

	// Best-effort tax quote attached for checkout display
	if tax, taxErr := s.quoteOrderTax(ctx, order); taxErr == nil {
		resp.Tax = tax
	}

	return resp, nil
}

func (s *catalogService) GetOrder(ctx context.Context, id string) (OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("invalid order id: %w", err)
	}

	order, err := s.orderRepo.FindByIDWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderResponse{}, ErrOrderNotFound
		}
		return OrderResponse{}, fmt.Errorf("failed to fetch order: %w", err)
	}

	resp := toOrderResponse(*order)
	if tax, taxErr := s.quoteOrderTax(ctx, *order); taxErr == nil {
		resp.Tax = tax
	}
	return resp, nil
}

func (s *catalogService) ListOrders(ctx context.Context, page, limit int) ([]OrderResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	orders, total, err := s.orderRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	res := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		res = append(res, toOrderResponse(order))
	}
	return res, total, nil
}

// UpdateOrderStatus transitions a pending order. Completion also records the
// pending commission earnings for the order's items.
func (s *catalogService) UpdateOrderStatus(ctx context.Context, userID string, id string, req OrderStatusRequest) (OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("invalid order id: %w", err)
	}

	order, err := s.orderRepo.FindByIDWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderResponse{}, ErrOrderNotFound
		}
		return OrderResponse{}, fmt.Errorf("failed to fetch order: %w", err)
	}
	if order.Status != model.OrderStatusPending {
		return OrderResponse{}, ErrOrderNotPending
	}

	var uid *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		uid = &parsed
	}

	action := model.ActionCompleteOrder
	if req.Status == model.OrderStatusCancelled {
		action = model.ActionCancelOrder
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.UpdateStatus(txCtx, orderID, req.Status); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		audit := &model.AuditLog{
			UserID:     uid,
			Action:     action,
			EntityID:   order.ID.String(),
			EntityName: order.OrderCode,
			Details:    `{"status":"` + req.Status + `"}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}
	order.Status = req.Status

	// Completed orders immediately earn commission for their assignees
	if req.Status == model.OrderStatusCompleted {
		if _, commErr := s.commissionService.ConfirmOrderCommissions(ctx, orderID.String(), userID); commErr != nil {
			return OrderResponse{}, fmt.Errorf("order completed but commission calculation failed: %w", commErr)
		}
	}

	return toOrderResponse(*order), nil
}

// quoteOrderTax runs the tax calculator over the order's stored items
func (s *catalogService) quoteOrderTax(ctx context.Context, order model.Order) (*OrderTaxBreakdown, error) {
	if len(order.Items) == 0 {
		return nil, errors.New("no items")
	}

	taxReq := CalculateOrderTaxRequest{
		CustomerState: order.CustomerState,
		SellerState:   order.SellerState,
	}
	for _, item := range order.Items {
		lineReq := TaxLineItemRequest{
			ProductID: item.ProductID.String(),
			UnitPrice: item.UnitPrice.String(),
			Quantity:  item.Quantity,
		}
		if item.TaxCategory != nil {
			lineReq.TaxCategory = *item.TaxCategory
		}
		if item.TaxCalcOverride != nil {
			lineReq.CalculationType = *item.TaxCalcOverride
		}
		taxReq.Items = append(taxReq.Items, lineReq)
	}

	breakdown, err := s.taxService.CalculateOrderTax(ctx, taxReq)
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}

func toProductResponse(p model.Product) ProductResponse {
	resp := ProductResponse{
		ID:              p.ID.String(),
		SKU:             p.SKU,
		Name:            p.Name,
		Price:           p.Price.StringFixed(2),
		Category:        p.Category,
		TaxCategory:     p.TaxCategory,
		TaxCalcOverride: p.TaxCalcOverride,
	}
	if p.AssignedTo != nil {
		v := p.AssignedTo.String()
		resp.AssignedTo = &v
	}
	return resp
}

func toOrderResponse(order model.Order) OrderResponse {
	resp := OrderResponse{
		ID:            order.ID.String(),
		OrderCode:     order.OrderCode,
		CustomerState: order.CustomerState,
		SellerState:   order.SellerState,
		Status:        order.Status,
		Note:          order.Note,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Total:     round2(item.TotalAmount()).StringFixed(2),
		})
	}
	return resp
}

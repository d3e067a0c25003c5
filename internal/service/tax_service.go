package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"giftshop/internal/model"
	"giftshop/internal/repository"
	ws "giftshop/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type TaxLineItemRequest struct {
	ProductID       string `json:"product_id"`
	UnitPrice       string `json:"unit_price" binding:"required"` // Decimal string, e.g. "1000.00"
	Quantity        int    `json:"quantity" binding:"required,gt=0"`
	TaxCategory     string `json:"tax_category"`     // Optional override
	CalculationType string `json:"calculation_type"` // Optional override: inclusive, exclusive
}

type CalculateOrderTaxRequest struct {
	Items         []TaxLineItemRequest `json:"items" binding:"required,min=1,dive"`
	CustomerState string               `json:"customer_state" binding:"required"`
	SellerState   string               `json:"seller_state" binding:"required"`
}

// TaxBreakdown is the per-line result. CGST+SGST+IGST always equals TotalTax.
type TaxBreakdown struct {
	ProductID       string          `json:"product_id,omitempty"`
	TaxCategory     string          `json:"tax_category,omitempty"`
	CalculationType string          `json:"calculation_type"`
	TaxType         string          `json:"tax_type"` // CGST_SGST or IGST
	BaseAmount      decimal.Decimal `json:"base_amount"`
	CGST            decimal.Decimal `json:"cgst"`
	SGST            decimal.Decimal `json:"sgst"`
	IGST            decimal.Decimal `json:"igst"`
	TotalTax        decimal.Decimal `json:"total_tax"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
}

type OrderTaxBreakdown struct {
	CustomerState  string          `json:"customer_state"`
	SellerState    string          `json:"seller_state"`
	IsInterState   bool            `json:"is_inter_state"`
	Items          []TaxBreakdown  `json:"items"`
	SubtotalBefore decimal.Decimal `json:"subtotal_before_tax"`
	TotalTaxAmount decimal.Decimal `json:"total_tax_amount"`
	TotalCGST      decimal.Decimal `json:"total_cgst"`
	TotalSGST      decimal.Decimal `json:"total_sgst"`
	TotalIGST      decimal.Decimal `json:"total_igst"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

type TaxSlabResponse struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	TaxRate     string `json:"tax_rate"`
	CGSTRate    string `json:"cgst_rate"`
	SGSTRate    string `json:"sgst_rate"`
	IGSTRate    string `json:"igst_rate"`
	Description string `json:"description"`
}

type UpsertTaxConfigRequest struct {
	CalculationType string `json:"calculation_type" binding:"required,oneof=inclusive exclusive"`
	Notes           string `json:"notes"`
}

type TaxConfigResponse struct {
	ID              string `json:"id"`
	Category        string `json:"category"`
	CalculationType string `json:"calculation_type"`
	Notes           string `json:"notes"`
	UpdatedBy       string `json:"updated_by,omitempty"`
	UpdatedAt       string `json:"updated_at"`
}

// --- Interface ---

type TaxService interface {
	CalculateOrderTax(ctx context.Context, req CalculateOrderTaxRequest) (OrderTaxBreakdown, error)
	GetTaxSlab(ctx context.Context, category string) (*TaxSlabResponse, error)
	ListTaxSlabs(ctx context.Context) ([]TaxSlabResponse, error)
	UpsertTaxConfiguration(ctx context.Context, category string, req UpsertTaxConfigRequest, actorID string) (TaxConfigResponse, error)
	ListTaxConfigurations(ctx context.Context) ([]TaxConfigResponse, error)
}

type taxService struct {
	slabRepo    repository.TaxSlabRepository
	configRepo  repository.TaxConfigurationRepository
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	hub         *ws.Hub
}

func NewTaxService(
	slabRepo repository.TaxSlabRepository,
	configRepo repository.TaxConfigurationRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) TaxService {
	return &taxService{
		slabRepo:    slabRepo,
		configRepo:  configRepo,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		hub:         hub,
	}
}

// --- Implementation ---

// CalculateOrderTax computes the full GST breakdown for a set of line items.
// Items whose category has no active slab pass through untaxed.
func (s *taxService) CalculateOrderTax(ctx context.Context, req CalculateOrderTaxRequest) (OrderTaxBreakdown, error) {
	interState := isInterState(req.CustomerState, req.SellerState)

	result := OrderTaxBreakdown{
		CustomerState:  req.CustomerState,
		SellerState:    req.SellerState,
		IsInterState:   interState,
		Items:          make([]TaxBreakdown, 0, len(req.Items)),
		SubtotalBefore: decimal.Zero,
		TotalTaxAmount: decimal.Zero,
		TotalCGST:      decimal.Zero,
		TotalSGST:      decimal.Zero,
		TotalIGST:      decimal.Zero,
	}

	for i, item := range req.Items {
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return OrderTaxBreakdown{}, fmt.Errorf("item %d: invalid unit_price: %w", i, err)
		}
		if unitPrice.IsNegative() {
			return OrderTaxBreakdown{}, fmt.Errorf("item %d: unit_price must not be negative", i)
		}
		if item.Quantity <= 0 {
			return OrderTaxBreakdown{}, fmt.Errorf("item %d: quantity must be positive", i)
		}

		listed := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

		product, err := s.lookupProduct(ctx, item)
		if err != nil {
			return OrderTaxBreakdown{}, err
		}

		category, err := resolveTaxCategory(item, product)
		if err != nil {
			return OrderTaxBreakdown{}, err
		}

		var slab *model.TaxSlab
		if category != "" {
			slab, err = s.findActiveSlab(ctx, category)
			if err != nil {
				return OrderTaxBreakdown{}, err
			}
		}

		var breakdown TaxBreakdown
		if slab == nil {
			// No category or no active slab: untaxed passthrough, not an error
			breakdown = zeroTaxBreakdown(listed, interState)
		} else {
			mode, err := s.resolveCalculationMode(ctx, item, product, category)
			if err != nil {
				return OrderTaxBreakdown{}, err
			}
			breakdown = calculateTaxBreakdown(listed, slab, interState, mode)
		}
		breakdown.ProductID = item.ProductID
		breakdown.TaxCategory = category

		result.Items = append(result.Items, breakdown)
		result.SubtotalBefore = result.SubtotalBefore.Add(breakdown.BaseAmount)
		result.TotalTaxAmount = result.TotalTaxAmount.Add(breakdown.TotalTax)
		result.TotalCGST = result.TotalCGST.Add(breakdown.CGST)
		result.TotalSGST = result.TotalSGST.Add(breakdown.SGST)
		result.TotalIGST = result.TotalIGST.Add(breakdown.IGST)
	}

	result.FinalAmount = result.SubtotalBefore.Add(result.TotalTaxAmount)
	return result, nil
}

func (s *taxService) GetTaxSlab(ctx context.Context, category string) (*TaxSlabResponse, error) {
	if !model.IsValidTaxCategory(category) {
		return nil, fmt.Errorf("unknown tax category '%s'", category)
	}

	slab, err := s.slabRepo.FindActiveByCategory(ctx, category)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No active slab, not an error
		}
		return nil, fmt.Errorf("failed to fetch tax slab: %w", err)
	}

	resp := toTaxSlabResponse(*slab)
	return &resp, nil
}

func (s *taxService) ListTaxSlabs(ctx context.Context) ([]TaxSlabResponse, error) {
	slabs, err := s.slabRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tax slabs: %w", err)
	}

	res := make([]TaxSlabResponse, 0, len(slabs))
	for _, slab := range slabs {
		res = append(res, toTaxSlabResponse(slab))
	}
	return res, nil
}

// UpsertTaxConfiguration replaces the active calculation mode for a category.
// Deactivate-then-insert inside one transaction keeps exactly one active row.
func (s *taxService) UpsertTaxConfiguration(ctx context.Context, category string, req UpsertTaxConfigRequest, actorID string) (TaxConfigResponse, error) {
	if !model.IsValidTaxCategory(category) {
		return TaxConfigResponse{}, fmt.Errorf("unknown tax category '%s'", category)
	}

	var actor *uuid.UUID
	if parsed, err := uuid.Parse(actorID); err == nil {
		actor = &parsed
	}

	config := model.TaxConfiguration{
		Category:        category,
		CalculationType: req.CalculationType,
		UpdatedBy:       actor,
		Notes:           req.Notes,
		Active:          true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.configRepo.DeactivateByCategory(txCtx, category); err != nil {
			return fmt.Errorf("failed to deactivate previous configuration: %w", err)
		}
		if err := s.configRepo.Create(txCtx, &config); err != nil {
			return fmt.Errorf("failed to create tax configuration: %w", err)
		}

		details, _ := json.Marshal(req)
		_ = s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionUpdateTaxConfig,
			EntityID:   config.ID.String(),
			EntityName: category + " " + req.CalculationType,
			Details:    string(details),
		})
		return nil
	})
	if err != nil {
		return TaxConfigResponse{}, err
	}

	s.broadcastTaxEvent("tax_config_updated", category, req.CalculationType)

	return toTaxConfigResponse(config), nil
}

func (s *taxService) ListTaxConfigurations(ctx context.Context) ([]TaxConfigResponse, error) {
	configs, err := s.configRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tax configurations: %w", err)
	}

	res := make([]TaxConfigResponse, 0, len(configs))
	for _, config := range configs {
		res = append(res, toTaxConfigResponse(config))
	}
	return res, nil
}

// --- Helpers ---

// isInterState compares state names case-insensitively
func isInterState(customerState, sellerState string) bool {
	return !strings.EqualFold(strings.TrimSpace(customerState), strings.TrimSpace(sellerState))
}

// round2 rounds to 2 decimal places, half to even, so per-item rounding does
// not drift pennies across large orders.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// calculateTaxBreakdown computes one line's GST split.
//
// Exclusive: tax is added on top of the listed amount.
// Inclusive: the listed amount already contains tax; the base is backed out
// so that base + tax round-trips to the listed amount exactly.
// Inter-state: the whole tax is IGST. Intra-state: split evenly into
// CGST+SGST, with any odd cent landing on SGST so components always sum.
func calculateTaxBreakdown(listed decimal.Decimal, slab *model.TaxSlab, interState bool, mode string) TaxBreakdown {
	rate := slab.TaxRate.Div(decimal.NewFromInt(100))

	var base, tax decimal.Decimal
	switch mode {
	case model.CalculationInclusive:
		base = round2(listed.Div(decimal.NewFromInt(1).Add(rate)))
		tax = round2(listed).Sub(base)
	default: // exclusive
		base = round2(listed)
		tax = round2(base.Mul(rate))
	}

	breakdown := TaxBreakdown{
		CalculationType: mode,
		BaseAmount:      base,
		CGST:            decimal.Zero,
		SGST:            decimal.Zero,
		IGST:            decimal.Zero,
		TotalTax:        tax,
		TotalAmount:     base.Add(tax),
		TaxRate:         slab.TaxRate,
	}

	if interState {
		breakdown.TaxType = model.TaxTypeIGST
		breakdown.IGST = tax
	} else {
		breakdown.TaxType = model.TaxTypeCGSTSGST
		breakdown.CGST = round2(tax.Div(decimal.NewFromInt(2)))
		breakdown.SGST = tax.Sub(breakdown.CGST)
	}

	return breakdown
}

// zeroTaxBreakdown emits the untaxed passthrough line used when no slab applies
func zeroTaxBreakdown(listed decimal.Decimal, interState bool) TaxBreakdown {
	taxType := model.TaxTypeCGSTSGST
	if interState {
		taxType = model.TaxTypeIGST
	}
	base := round2(listed)
	return TaxBreakdown{
		CalculationType: model.CalculationExclusive,
		TaxType:         taxType,
		BaseAmount:      base,
		CGST:            decimal.Zero,
		SGST:            decimal.Zero,
		IGST:            decimal.Zero,
		TotalTax:        decimal.Zero,
		TotalAmount:     base,
		TaxRate:         decimal.Zero,
	}
}

// lookupProduct fetches the catalog row an item references, once per item, so
// both category and mode resolution can fall back to it. Returns nil when the
// item carries no product id or the product no longer exists.
func (s *taxService) lookupProduct(ctx context.Context, item TaxLineItemRequest) (*model.Product, error) {
	if item.ProductID == "" {
		return nil, nil
	}
	productID, err := uuid.Parse(item.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id '%s': %w", item.ProductID, err)
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return product, nil
}

// resolveTaxCategory picks the item override, else the product's category,
// else empty (untaxed).
func resolveTaxCategory(item TaxLineItemRequest, product *model.Product) (string, error) {
	if item.TaxCategory != "" {
		if !model.IsValidTaxCategory(item.TaxCategory) {
			return "", fmt.Errorf("unknown tax category '%s'", item.TaxCategory)
		}
		return item.TaxCategory, nil
	}
	if product != nil && product.TaxCategory != nil {
		return *product.TaxCategory, nil
	}
	return "", nil
}

// resolveCalculationMode picks the item override, else the product's stored
// override, else the category's active configuration, else exclusive.
func (s *taxService) resolveCalculationMode(ctx context.Context, item TaxLineItemRequest, product *model.Product, category string) (string, error) {
	if item.CalculationType != "" {
		if item.CalculationType != model.CalculationInclusive && item.CalculationType != model.CalculationExclusive {
			return "", fmt.Errorf("unknown calculation_type '%s'", item.CalculationType)
		}
		return item.CalculationType, nil
	}

	if product != nil && product.TaxCalcOverride != nil {
		switch *product.TaxCalcOverride {
		case model.CalculationInclusive, model.CalculationExclusive:
			return *product.TaxCalcOverride, nil
		}
	}

	config, err := s.configRepo.FindActiveByCategory(ctx, category)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.CalculationExclusive, nil
		}
		return "", fmt.Errorf("failed to fetch tax configuration: %w", err)
	}
	return config.CalculationType, nil
}

func (s *taxService) findActiveSlab(ctx context.Context, category string) (*model.TaxSlab, error) {
	slab, err := s.slabRepo.FindActiveByCategory(ctx, category)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch tax slab: %w", err)
	}
	return slab, nil
}

func (s *taxService) broadcastTaxEvent(event, category, calcType string) {
	if s.hub == nil {
		return
	}
	s.hub.Notify(event, map[string]string{
		"category":         category,
		"calculation_type": calcType,
	})
}

func toTaxSlabResponse(slab model.TaxSlab) TaxSlabResponse {
	return TaxSlabResponse{
		ID:          slab.ID.String(),
		Category:    slab.Category,
		TaxRate:     slab.TaxRate.StringFixed(2),
		CGSTRate:    slab.CGSTRate.StringFixed(2),
		SGSTRate:    slab.SGSTRate.StringFixed(2),
		IGSTRate:    slab.IGSTRate.StringFixed(2),
		Description: slab.Description,
	}
}

func toTaxConfigResponse(config model.TaxConfiguration) TaxConfigResponse {
	resp := TaxConfigResponse{
		ID:              config.ID.String(),
		Category:        config.Category,
		CalculationType: config.CalculationType,
		Notes:           config.Notes,
		UpdatedAt:       config.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if config.UpdatedBy != nil {
		resp.UpdatedBy = config.UpdatedBy.String()
	}
	return resp
}

package service

import (
	"context"
	"testing"

	"giftshop/internal/database"
	"giftshop/internal/model"
	"giftshop/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func slabWithRate(rate string) *model.TaxSlab {
	r := dec(rate)
	return &model.TaxSlab{
		Category: model.TaxCategoryStandardGifts,
		TaxRate:  r,
		CGSTRate: r.Div(decimal.NewFromInt(2)),
		SGSTRate: r.Div(decimal.NewFromInt(2)),
		IGSTRate: r,
		Active:   true,
	}
}

func TestIsInterState(t *testing.T) {
	tests := []struct {
		name     string
		customer string
		seller   string
		want     bool
	}{
		{"same state", "Karnataka", "Karnataka", false},
		{"different state", "Karnataka", "Maharashtra", true},
		{"case insensitive", "karnataka", "KARNATAKA", false},
		{"surrounding whitespace", " Karnataka ", "Karnataka", false},
		{"empty vs set", "", "Karnataka", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isInterState(tt.customer, tt.seller))
		})
	}
}

func TestCalculateTaxBreakdown(t *testing.T) {
	tests := []struct {
		name       string
		listed     string
		rate       string
		interState bool
		mode       string
		wantBase   string
		wantCGST   string
		wantSGST   string
		wantIGST   string
		wantTax    string
		wantTotal  string
	}{
		{
			name:   "exclusive 12 percent intra-state",
			listed: "1000", rate: "12", interState: false, mode: model.CalculationExclusive,
			wantBase: "1000.00", wantCGST: "60.00", wantSGST: "60.00", wantIGST: "0",
			wantTax: "120.00", wantTotal: "1120.00",
		},
		{
			name:   "exclusive 18 percent inter-state",
			listed: "1000", rate: "18", interState: true, mode: model.CalculationExclusive,
			wantBase: "1000.00", wantCGST: "0", wantSGST: "0", wantIGST: "180.00",
			wantTax: "180.00", wantTotal: "1180.00",
		},
		{
			name:   "inclusive 18 percent backs out base",
			listed: "118", rate: "18", interState: false, mode: model.CalculationInclusive,
			wantBase: "100.00", wantCGST: "9.00", wantSGST: "9.00", wantIGST: "0",
			wantTax: "18.00", wantTotal: "118.00",
		},
		{
			name:   "odd cent lands on SGST",
			listed: "0.83", rate: "18", interState: false, mode: model.CalculationExclusive,
			wantBase: "0.83", wantCGST: "0.08", wantSGST: "0.07", wantIGST: "0",
			wantTax: "0.15", wantTotal: "0.98",
		},
		{
			name:   "half-even rounding on the tax amount",
			listed: "6.25", rate: "18", interState: true, mode: model.CalculationExclusive,
			wantBase: "6.25", wantCGST: "0", wantSGST: "0", wantIGST: "1.12",
			wantTax: "1.12", wantTotal: "7.37",
		},
		{
			name:   "28 percent premium rate",
			listed: "2500", rate: "28", interState: true, mode: model.CalculationExclusive,
			wantBase: "2500.00", wantCGST: "0", wantSGST: "0", wantIGST: "700.00",
			wantTax: "700.00", wantTotal: "3200.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateTaxBreakdown(dec(tt.listed), slabWithRate(tt.rate), tt.interState, tt.mode)

			assert.True(t, dec(tt.wantBase).Equal(got.BaseAmount), "base: want %s got %s", tt.wantBase, got.BaseAmount)
			assert.True(t, dec(tt.wantCGST).Equal(got.CGST), "cgst: want %s got %s", tt.wantCGST, got.CGST)
			assert.True(t, dec(tt.wantSGST).Equal(got.SGST), "sgst: want %s got %s", tt.wantSGST, got.SGST)
			assert.True(t, dec(tt.wantIGST).Equal(got.IGST), "igst: want %s got %s", tt.wantIGST, got.IGST)
			assert.True(t, dec(tt.wantTax).Equal(got.TotalTax), "tax: want %s got %s", tt.wantTax, got.TotalTax)
			assert.True(t, dec(tt.wantTotal).Equal(got.TotalAmount), "total: want %s got %s", tt.wantTotal, got.TotalAmount)

			if tt.interState {
				assert.Equal(t, model.TaxTypeIGST, got.TaxType)
			} else {
				assert.Equal(t, model.TaxTypeCGSTSGST, got.TaxType)
			}
		})
	}
}

// The components must sum to the total tax regardless of amount, rate, split
// or mode, and inclusive lines must round-trip to the listed amount.
func TestTaxBreakdownInvariants(t *testing.T) {
	amounts := []string{"0.01", "0.83", "9.99", "118", "1000", "12345.67", "99999.99"}
	rates := []string{"5", "12", "18", "28"}

	for _, amount := range amounts {
		for _, rate := range rates {
			for _, interState := range []bool{true, false} {
				for _, mode := range []string{model.CalculationExclusive, model.CalculationInclusive} {
					got := calculateTaxBreakdown(dec(amount), slabWithRate(rate), interState, mode)

					sum := got.CGST.Add(got.SGST).Add(got.IGST)
					assert.True(t, sum.Equal(got.TotalTax),
						"amount=%s rate=%s inter=%v mode=%s: components %s != total %s",
						amount, rate, interState, mode, sum, got.TotalTax)

					assert.False(t, got.TotalTax.IsNegative())
					assert.True(t, got.TotalAmount.Equal(got.BaseAmount.Add(got.TotalTax)))

					if mode == model.CalculationInclusive {
						assert.True(t, got.TotalAmount.Equal(round2(dec(amount))),
							"inclusive round-trip failed for amount=%s rate=%s", amount, rate)
					}
				}
			}
		}
	}
}

func TestZeroTaxBreakdown(t *testing.T) {
	got := zeroTaxBreakdown(dec("250.456"), false)

	assert.True(t, dec("250.46").Equal(got.BaseAmount))
	assert.True(t, got.TotalTax.IsZero())
	assert.True(t, got.TaxRate.IsZero())
	assert.True(t, got.TotalAmount.Equal(got.BaseAmount))
	assert.Equal(t, model.TaxTypeCGSTSGST, got.TaxType)

	inter := zeroTaxBreakdown(dec("10"), true)
	assert.Equal(t, model.TaxTypeIGST, inter.TaxType)
}

// --- sqlite-backed order calculation ---

func setupTaxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.TaxSlab{},
		&model.TaxConfiguration{},
		&model.AuditLog{},
	))
	require.NoError(t, database.SeedTaxSlabs(db))
	return db
}

func newTaxServiceForTest(db *gorm.DB) TaxService {
	return NewTaxService(
		repository.NewTaxSlabRepository(db),
		repository.NewTaxConfigurationRepository(db),
		repository.NewProductRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		nil,
	)
}

func TestCalculateOrderTax(t *testing.T) {
	db := setupTaxTestDB(t)
	svc := newTaxServiceForTest(db)
	ctx := context.Background()

	t.Run("intra-state order aggregates CGST and SGST", func(t *testing.T) {
		res, err := svc.CalculateOrderTax(ctx, CalculateOrderTaxRequest{
			CustomerState: "Karnataka",
			SellerState:   "Karnataka",
			Items: []TaxLineItemRequest{
				{UnitPrice: "500", Quantity: 2, TaxCategory: model.TaxCategoryStandardGifts}, // 12%
				{UnitPrice: "100", Quantity: 1, TaxCategory: model.TaxCategoryEcoFriendlyGifts}, // 5%
			},
		})
		require.NoError(t, err)

		assert.False(t, res.IsInterState)
		require.Len(t, res.Items, 2)
		assert.True(t, dec("1100.00").Equal(res.SubtotalBefore))
		assert.True(t, dec("125.00").Equal(res.TotalTaxAmount)) // 120 + 5
		assert.True(t, dec("62.50").Equal(res.TotalCGST))
		assert.True(t, dec("62.50").Equal(res.TotalSGST))
		assert.True(t, res.TotalIGST.IsZero())
		assert.True(t, dec("1225.00").Equal(res.FinalAmount))
	})

	t.Run("inter-state order carries IGST only", func(t *testing.T) {
		res, err := svc.CalculateOrderTax(ctx, CalculateOrderTaxRequest{
			CustomerState: "Karnataka",
			SellerState:   "Maharashtra",
			Items: []TaxLineItemRequest{
				{UnitPrice: "1000", Quantity: 1, TaxCategory: model.TaxCategoryLuxuryGifts}, // 18%
			},
		})
		require.NoError(t, err)

		assert.True(t, res.IsInterState)
		assert.True(t, dec("180.00").Equal(res.TotalIGST))
		assert.True(t, res.TotalCGST.IsZero())
		assert.True(t, res.TotalSGST.IsZero())
		assert.True(t, dec("1180.00").Equal(res.FinalAmount))
	})

	t.Run("category configured inclusive backs tax out of the listed price", func(t *testing.T) {
		_, err := svc.UpsertTaxConfiguration(ctx, model.TaxCategoryLuxuryGifts, UpsertTaxConfigRequest{
			CalculationType: model.CalculationInclusive,
		}, "")
		require.NoError(t, err)

		res, err := svc.CalculateOrderTax(ctx, CalculateOrderTaxRequest{
			CustomerState: "Karnataka",
			SellerState:   "Karnataka",
			Items: []TaxLineItemRequest{
				{UnitPrice: "118", Quantity: 1, TaxCategory: model.TaxCategoryLuxuryGifts},
			},
		})
		require.NoError(t, err)

		require.Len(t, res.Items, 1)
		assert.Equal(t, model.CalculationInclusive, res.Items[0].CalculationType)
		assert.True(t, dec("100.00").Equal(res.Items[0].BaseAmount))
		assert.True(t, dec("18.00").Equal(res.Items[0].TotalTax))
		assert.True(t, dec("118.00").Equal(res.FinalAmount))
	})

	t.Run("item override beats category configuration", func(t *testing.T) {
		// luxury_gifts is configured inclusive above; the item forces exclusive
		res, err := svc.CalculateOrderTax(ctx, CalculateOrderTaxRequest{
			CustomerState: "Karnataka",
			SellerState:   "Karnataka",
			Items: []TaxLineItemRequest{
				{UnitPrice: "100", Quantity: 1, TaxCategory: model.TaxCategoryLuxuryGifts, CalculationType: model.CalculationExclusive},
			},
		})
		require.NoError(t, err)
		assert.True(t, dec("118.00").Equal(res.FinalAmount))
	})

	t.Run("item without category passes through untaxed", func(t *testing.T) {
		res, err := svc.CalculateOrderTax(ctx, CalculateOrderTaxRequest{
			CustomerState: "Karnataka",
			SellerState:   "Karnataka",
			Items: []TaxLineItemRequest{
				{UnitPrice: "49.99", Quantity: 3},
			},
		})
		require.NoError(t, err)

		require.Len(t, res.Items, 1)
		assert.True(t, res.TotalTaxAmount.IsZero())
		assert.True(t, dec("149.97").Equal(res.FinalAmount))
	})

	t.Run("product tax category applies when the item has no override", func(t *testing.T) {
		category := model.TaxCategoryEducationalToys // 12%
		product := model.Product{
			SKU:         "EDU-001",
			Name:        "Wooden Puzzle",
			Price:       dec("200"),
			Category:    "toys",
			TaxCategory: &category,
		}
		require.NoError(t, db.Create(&product).Error)

		res, err := svc.CalculateOrderTax(ctx, CalculateOrderTaxRequest{
			CustomerState: "Karnataka",
			SellerState:   "Karnataka",
			Items: []TaxLineItemRequest{
				{ProductID: product.ID.String(), UnitPrice: "200", Quantity: 1},
			},
		})
		require.NoError(t, err)

		require.Len(t, res.Items, 1)
		assert.Equal(t, category, res.Items[0].TaxCategory)
		assert.True(t, dec("24.00").Equal(res.TotalTaxAmount))
	})

	t.Run("product calc override applies when the item has none", func(t *testing.T) {
		category := model.TaxCategoryEducationalToys // 12%
		inclusive := model.CalculationInclusive
		product := model.Product{
			SKU:             "EDU-002",
			Name:            "Abacus",
			Price:           dec("112"),
			Category:        "toys",
			TaxCategory:     &category,
			TaxCalcOverride: &inclusive,
		}
		require.NoError(t, db.Create(&product).Error)

		res, err := svc.CalculateOrderTax(ctx, CalculateOrderTaxRequest{
			CustomerState: "Karnataka",
			SellerState:   "Karnataka",
			Items: []TaxLineItemRequest{
				{ProductID: product.ID.String(), UnitPrice: "112", Quantity: 1},
			},
		})
		require.NoError(t, err)

		require.Len(t, res.Items, 1)
		assert.Equal(t, model.CalculationInclusive, res.Items[0].CalculationType)
		assert.True(t, dec("100.00").Equal(res.SubtotalBefore))
		assert.True(t, dec("12.00").Equal(res.TotalTaxAmount))
		assert.True(t, dec("112.00").Equal(res.FinalAmount))

		// An explicit item mode still wins over the stored override
		res, err = svc.CalculateOrderTax(ctx, CalculateOrderTaxRequest{
			CustomerState: "Karnataka",
			SellerState:   "Karnataka",
			Items: []TaxLineItemRequest{
				{ProductID: product.ID.String(), UnitPrice: "112", Quantity: 1, CalculationType: model.CalculationExclusive},
			},
		})
		require.NoError(t, err)
		assert.True(t, dec("13.44").Equal(res.TotalTaxAmount))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := svc.CalculateOrderTax(ctx, CalculateOrderTaxRequest{
			CustomerState: "Karnataka",
			SellerState:   "Karnataka",
			Items:         []TaxLineItemRequest{{UnitPrice: "-5", Quantity: 1}},
		})
		assert.Error(t, err)

		_, err = svc.CalculateOrderTax(ctx, CalculateOrderTaxRequest{
			CustomerState: "Karnataka",
			SellerState:   "Karnataka",
			Items:         []TaxLineItemRequest{{UnitPrice: "5", Quantity: 0}},
		})
		assert.Error(t, err)

		_, err = svc.CalculateOrderTax(ctx, CalculateOrderTaxRequest{
			CustomerState: "Karnataka",
			SellerState:   "Karnataka",
			Items:         []TaxLineItemRequest{{UnitPrice: "5", Quantity: 1, TaxCategory: "no_such_category"}},
		})
		assert.Error(t, err)
	})
}

func TestUpsertTaxConfigurationKeepsOneActive(t *testing.T) {
	db := setupTaxTestDB(t)
	svc := newTaxServiceForTest(db)
	ctx := context.Background()

	_, err := svc.UpsertTaxConfiguration(ctx, model.TaxCategoryNoveltyToys, UpsertTaxConfigRequest{
		CalculationType: model.CalculationInclusive,
	}, "")
	require.NoError(t, err)

	_, err = svc.UpsertTaxConfiguration(ctx, model.TaxCategoryNoveltyToys, UpsertTaxConfigRequest{
		CalculationType: model.CalculationExclusive,
		Notes:           "reverted after audit",
	}, "")
	require.NoError(t, err)

	var active int64
	require.NoError(t, db.Model(&model.TaxConfiguration{}).
		Where("category = ? AND active = ?", model.TaxCategoryNoveltyToys, true).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)

	configs, err := svc.ListTaxConfigurations(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, model.CalculationExclusive, configs[0].CalculationType)
}

package service

import (
	"context"
	"testing"
	"time"

	"giftshop/internal/model"
	"giftshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

func baseQuery() ruleQuery {
	return ruleQuery{
		UserID:          uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		UserRole:        model.RoleSalesperson,
		ProductID:       uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		ProductCategory: "toys",
		OrderAmount:     dec("1000"),
		At:              time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func generalRule() model.CommissionRule {
	return model.CommissionRule{
		ID:              uuid.New(),
		CommissionType:  model.CommissionTypePercentage,
		CommissionValue: dec("5"),
		EffectiveFrom:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:          true,
	}
}

func TestRuleMatches(t *testing.T) {
	q := baseQuery()

	tests := []struct {
		name   string
		mutate func(r *model.CommissionRule)
		want   bool
	}{
		{"wildcard rule matches anything", func(r *model.CommissionRule) {}, true},
		{"inactive rule never matches", func(r *model.CommissionRule) { r.Active = false }, false},
		{"not yet effective", func(r *model.CommissionRule) {
			r.EffectiveFrom = q.At.Add(time.Hour)
		}, false},
		{"expired window", func(r *model.CommissionRule) {
			until := q.At.Add(-time.Hour)
			r.EffectiveUntil = &until
		}, false},
		{"window closing later still matches", func(r *model.CommissionRule) {
			until := q.At.Add(time.Hour)
			r.EffectiveUntil = &until
		}, true},
		{"min order amount met", func(r *model.CommissionRule) { r.MinOrderAmount = decPtr("1000") }, true},
		{"min order amount unmet", func(r *model.CommissionRule) { r.MinOrderAmount = decPtr("1000.01") }, false},
		{"matching user", func(r *model.CommissionRule) { r.UserID = uuidPtr(q.UserID) }, true},
		{"other user", func(r *model.CommissionRule) { r.UserID = uuidPtr(uuid.New()) }, false},
		{"matching role", func(r *model.CommissionRule) { r.UserRole = strPtr(model.RoleSalesperson) }, true},
		{"other role", func(r *model.CommissionRule) { r.UserRole = strPtr(model.RoleManager) }, false},
		{"matching product", func(r *model.CommissionRule) { r.ProductID = uuidPtr(q.ProductID) }, true},
		{"other product", func(r *model.CommissionRule) { r.ProductID = uuidPtr(uuid.New()) }, false},
		{"matching category", func(r *model.CommissionRule) { r.ProductCategory = strPtr("toys") }, true},
		{"other category", func(r *model.CommissionRule) { r.ProductCategory = strPtr("stationery") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := generalRule()
			tt.mutate(&rule)
			assert.Equal(t, tt.want, ruleMatches(&rule, q))
		})
	}
}

func TestResolveRule(t *testing.T) {
	q := baseQuery()

	t.Run("no candidates resolves to nil", func(t *testing.T) {
		assert.Nil(t, resolveRule(nil, q))

		inactive := generalRule()
		inactive.Active = false
		assert.Nil(t, resolveRule([]model.CommissionRule{inactive}, q))
	})

	t.Run("specificity beats priority", func(t *testing.T) {
		general := generalRule()
		general.Priority = 100

		userScoped := generalRule()
		userScoped.UserID = uuidPtr(q.UserID)
		userScoped.Priority = 0

		got := resolveRule([]model.CommissionRule{general, userScoped}, q)
		require.NotNil(t, got)
		assert.Equal(t, userScoped.ID, got.ID)
	})

	t.Run("scope ladder orders user over product over category over role", func(t *testing.T) {
		role := generalRule()
		role.UserRole = strPtr(model.RoleSalesperson)

		category := generalRule()
		category.ProductCategory = strPtr("toys")

		product := generalRule()
		product.ProductID = uuidPtr(q.ProductID)

		user := generalRule()
		user.UserID = uuidPtr(q.UserID)

		got := resolveRule([]model.CommissionRule{role, category, product, user}, q)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)

		got = resolveRule([]model.CommissionRule{role, category, product}, q)
		require.NotNil(t, got)
		assert.Equal(t, product.ID, got.ID)

		got = resolveRule([]model.CommissionRule{role, category}, q)
		require.NotNil(t, got)
		assert.Equal(t, category.ID, got.ID)
	})

	t.Run("product rule beats role rule at equal priority", func(t *testing.T) {
		roleRule := generalRule()
		roleRule.UserRole = strPtr(model.RoleSalesperson)
		roleRule.CommissionValue = dec("5")
		roleRule.Priority = 1

		productRule := generalRule()
		productRule.ProductID = uuidPtr(q.ProductID)
		productRule.CommissionValue = dec("8")
		productRule.Priority = 1

		got := resolveRule([]model.CommissionRule{roleRule, productRule}, q)
		require.NotNil(t, got)
		assert.Equal(t, productRule.ID, got.ID)
		assert.True(t, got.CommissionValue.Equal(dec("8")))
	})

	t.Run("priority breaks scope ties", func(t *testing.T) {
		low := generalRule()
		low.Priority = 1

		high := generalRule()
		high.Priority = 10

		got := resolveRule([]model.CommissionRule{low, high}, q)
		require.NotNil(t, got)
		assert.Equal(t, high.ID, got.ID)
	})

	t.Run("recency breaks full ties", func(t *testing.T) {
		older := generalRule()
		older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		newer := generalRule()
		newer.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

		got := resolveRule([]model.CommissionRule{older, newer}, q)
		require.NotNil(t, got)
		assert.Equal(t, newer.ID, got.ID)
	})
}

func TestComputeCommission(t *testing.T) {
	tests := []struct {
		name  string
		rule  model.CommissionRule
		total string
		want  string
	}{
		{
			name: "percentage of the item total",
			rule: model.CommissionRule{CommissionType: model.CommissionTypePercentage, CommissionValue: dec("5")},
			total: "1000", want: "50.00",
		},
		{
			name: "percentage result is rounded",
			rule: model.CommissionRule{CommissionType: model.CommissionTypePercentage, CommissionValue: dec("7.5")},
			total: "99.99", want: "7.50",
		},
		{
			name: "percentage above 100 caps at the item total",
			rule: model.CommissionRule{CommissionType: model.CommissionTypePercentage, CommissionValue: dec("150")},
			total: "200", want: "200.00",
		},
		{
			name: "fixed amount may exceed the item total",
			rule: model.CommissionRule{CommissionType: model.CommissionTypeFixed, CommissionValue: dec("50")},
			total: "20", want: "50.00",
		},
		{
			name: "max commission clamps percentage",
			rule: model.CommissionRule{
				CommissionType:      model.CommissionTypePercentage,
				CommissionValue:     dec("10"),
				MaxCommissionAmount: decPtr("75"),
			},
			total: "1000", want: "75.00",
		},
		{
			name: "max commission clamps fixed",
			rule: model.CommissionRule{
				CommissionType:      model.CommissionTypeFixed,
				CommissionValue:     dec("500"),
				MaxCommissionAmount: decPtr("100"),
			},
			total: "1000", want: "100.00",
		},
		{
			name: "never goes negative",
			rule: model.CommissionRule{CommissionType: model.CommissionTypeFixed, CommissionValue: dec("-10")},
			total: "1000", want: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeCommission(&tt.rule, dec(tt.total))
			assert.True(t, dec(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestBuildRuleFromRequest(t *testing.T) {
	t.Run("valid percentage rule", func(t *testing.T) {
		rule, err := buildRuleFromRequest(CreateCommissionRuleRequest{
			CommissionType:  model.CommissionTypePercentage,
			CommissionValue: "7.5",
			ProductCategory: "toys",
			Priority:        3,
			EffectiveFrom:   "2026-01-01",
			EffectiveUntil:  "2026-12-31",
			MinOrderAmount:  "100",
		})
		require.NoError(t, err)
		assert.True(t, dec("7.5").Equal(rule.CommissionValue))
		assert.Equal(t, model.ScopeCategory, rule.Scope())
		require.NotNil(t, rule.MinOrderAmount)
		assert.True(t, dec("100").Equal(*rule.MinOrderAmount))
		assert.True(t, rule.Active)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		cases := []CreateCommissionRuleRequest{
			{CommissionType: model.CommissionTypePercentage, CommissionValue: "abc"},
			{CommissionType: model.CommissionTypePercentage, CommissionValue: "-1"},
			{CommissionType: model.CommissionTypePercentage, CommissionValue: "101"},
			{CommissionType: model.CommissionTypeFixed, CommissionValue: "10", EffectiveFrom: "01/02/2026"},
			{CommissionType: model.CommissionTypeFixed, CommissionValue: "10", EffectiveFrom: "2026-06-01", EffectiveUntil: "2026-05-01"},
			{CommissionType: model.CommissionTypeFixed, CommissionValue: "10", UserID: "not-a-uuid"},
		}
		for _, req := range cases {
			_, err := buildRuleFromRequest(req)
			assert.Error(t, err, "request %+v should be rejected", req)
		}
	})

	t.Run("fixed value above 100 is allowed", func(t *testing.T) {
		rule, err := buildRuleFromRequest(CreateCommissionRuleRequest{
			CommissionType:  model.CommissionTypeFixed,
			CommissionValue: "250",
		})
		require.NoError(t, err)
		assert.True(t, dec("250").Equal(rule.CommissionValue))
	})
}

// --- sqlite-backed earning lifecycle ---

func setupCommissionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.CommissionRule{},
		&model.CommissionEarning{},
		&model.AuditLog{},
	))
	return db
}

func newCommissionServiceForTest(db *gorm.DB) CommissionService {
	return NewCommissionService(
		repository.NewCommissionRuleRepository(db),
		repository.NewCommissionEarningRepository(db),
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewUserRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
	)
}

func TestConfirmOrderCommissionsLifecycle(t *testing.T) {
	db := setupCommissionTestDB(t)
	svc := newCommissionServiceForTest(db)
	ctx := context.Background()

	seller := model.User{Username: "asha", Email: "asha@example.com", Phone: "9000000001", Password: "x", Role: model.RoleSalesperson}
	require.NoError(t, db.Create(&seller).Error)

	product := model.Product{
		SKU:        "GFT-100",
		Name:       "Scented Candle Set",
		Price:      dec("500"),
		Category:   "gifts",
		AssignedTo: &seller.ID,
	}
	require.NoError(t, db.Create(&product).Error)

	// A loud general rule and a quiet user rule; the user rule must win.
	general := generalRule()
	general.CommissionValue = dec("10")
	general.Priority = 100
	require.NoError(t, db.Create(&general).Error)

	userRule := generalRule()
	userRule.UserID = &seller.ID
	userRule.CommissionValue = dec("2")
	require.NoError(t, db.Create(&userRule).Error)

	order := model.Order{
		OrderCode:     "ORD-2026-0001",
		CustomerState: "Karnataka",
		SellerState:   "Karnataka",
		Status:        model.OrderStatusPending,
		CreatedAt:     time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&order).Error)
	item := model.OrderItem{OrderID: order.ID, ProductID: product.ID, Quantity: 2, UnitPrice: dec("500")}
	require.NoError(t, db.Create(&item).Error)

	earnings, err := svc.ConfirmOrderCommissions(ctx, order.ID.String(), seller.ID.String())
	require.NoError(t, err)
	require.Len(t, earnings, 1)
	assert.Equal(t, model.EarningPending, earnings[0].Status)
	assert.Equal(t, "20.00", earnings[0].CommissionAmount) // 2% of 1000
	assert.Equal(t, seller.ID.String(), earnings[0].UserID)

	t.Run("recalculation does not duplicate earnings", func(t *testing.T) {
		again, err := svc.ConfirmOrderCommissions(ctx, order.ID.String(), seller.ID.String())
		require.NoError(t, err)
		assert.Empty(t, again)

		var count int64
		require.NoError(t, db.Model(&model.CommissionEarning{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	earningID := earnings[0].ID

	t.Run("pending cannot be paid directly", func(t *testing.T) {
		_, err := svc.UpdateEarningStatus(ctx, earningID, EarningStatusRequest{Status: model.EarningPaid}, seller.ID.String())
		assert.ErrorIs(t, err, ErrInvalidEarningTransition)
	})

	t.Run("approve then pay records rule usage", func(t *testing.T) {
		approved, err := svc.UpdateEarningStatus(ctx, earningID, EarningStatusRequest{Status: model.EarningApproved}, seller.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.EarningApproved, approved.Status)

		paid, err := svc.UpdateEarningStatus(ctx, earningID, EarningStatusRequest{Status: model.EarningPaid}, seller.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.EarningPaid, paid.Status)

		var stored model.CommissionEarning
		require.NoError(t, db.First(&stored, "id = ?", earningID).Error)
		assert.NotNil(t, stored.PaidAt)

		var rule model.CommissionRule
		require.NoError(t, db.First(&rule, "id = ?", userRule.ID).Error)
		assert.Equal(t, int64(1), rule.UsageCount)
		assert.True(t, dec("20").Equal(rule.TotalCommissionPaid))

		// Paid is terminal
		_, err = svc.UpdateEarningStatus(ctx, earningID, EarningStatusRequest{Status: model.EarningCancelled}, seller.ID.String())
		assert.ErrorIs(t, err, ErrInvalidEarningTransition)
	})

	t.Run("unknown earning id maps to not found", func(t *testing.T) {
		_, err := svc.UpdateEarningStatus(ctx, uuid.NewString(), EarningStatusRequest{Status: model.EarningApproved}, seller.ID.String())
		assert.ErrorIs(t, err, ErrEarningNotFound)
	})

	t.Run("salesperson filter scopes the listing", func(t *testing.T) {
		listed, total, err := svc.ListEarnings(ctx, EarningFilter{UserID: seller.ID.String()})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, listed, 1)

		listed, total, err = svc.ListEarnings(ctx, EarningFilter{UserID: uuid.NewString()})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Empty(t, listed)
	})
}

func TestCalculateForOrderSkipsUnassignedItems(t *testing.T) {
	db := setupCommissionTestDB(t)
	svc := newCommissionServiceForTest(db)
	ctx := context.Background()

	product := model.Product{SKU: "GFT-200", Name: "Mug", Price: dec("150"), Category: "gifts"}
	require.NoError(t, db.Create(&product).Error)

	rule := generalRule()
	require.NoError(t, db.Create(&rule).Error)

	order := model.Order{OrderCode: "ORD-2026-0002", CustomerState: "Kerala", SellerState: "Kerala"}
	require.NoError(t, db.Create(&order).Error)
	item := model.OrderItem{OrderID: order.ID, ProductID: product.ID, Quantity: 1, UnitPrice: dec("150")}
	require.NoError(t, db.Create(&item).Error)

	drafts, err := svc.CalculateForOrder(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

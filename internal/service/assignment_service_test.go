package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"giftshop/internal/model"
	"giftshop/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAssignmentTestDB(t *testing.T) *gorm.DB {
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
		&model.ProductAssignment{},
		&model.AuditLog{},
	))
	return db
}

func newAssignmentServiceForTest(db *gorm.DB) AssignmentService {
	return NewAssignmentService(
		repository.NewAssignmentRepository(db),
		repository.NewProductRepository(db),
		repository.NewUserRepository(db),
		repository.NewPerformanceRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		nil,
	)
}

func createSalesperson(t *testing.T, db *gorm.DB, username string) model.User {
	t.Helper()
	user := model.User{
		Username: username,
		Email:    username + "@example.com",
		Phone:    "9000000000",
		Password: "x",
		Role:     model.RoleSalesperson,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, sku string) model.Product {
	t.Helper()
	product := model.Product{SKU: sku, Name: "Gift Box", Price: dec("250"), Category: "gifts"}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestAssignAndReassign(t *testing.T) {
	db := setupAssignmentTestDB(t)
	svc := newAssignmentServiceForTest(db)
	ctx := context.Background()

	admin := model.User{Username: "admin", Email: "admin@example.com", Phone: "9000000009", Password: "x", Role: model.RoleAdmin}
	require.NoError(t, db.Create(&admin).Error)
	first := createSalesperson(t, db, "first")
	second := createSalesperson(t, db, "second")
	product := createTestProduct(t, db, "GFT-300")

	res, err := svc.Assign(ctx, AssignProductRequest{
		ProductID:  product.ID.String(),
		AssignedTo: first.ID.String(),
		Reason:     model.ReasonManualAdmin,
		Notes:      "initial coverage",
	}, admin.ID.String())
	require.NoError(t, err)
	assert.Equal(t, first.ID.String(), res.AssignedTo)
	assert.Equal(t, model.AssignmentActive, res.Status)

	var stored model.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, first.ID, *stored.AssignedTo)
	assert.Equal(t, int64(1), stored.AssignmentVersion)

	t.Run("reassign closes the previous assignment", func(t *testing.T) {
		res, err := svc.Reassign(ctx, product.ID.String(), ReassignProductRequest{
			NewAssignee: second.ID.String(),
			Reason:      model.ReasonManualAdmin,
		}, admin.ID.String())
		require.NoError(t, err)
		assert.Equal(t, second.ID.String(), res.AssignedTo)

		var active int64
		require.NoError(t, db.Model(&model.ProductAssignment{}).
			Where("product_id = ? AND status = ?", product.ID, model.AssignmentActive).
			Count(&active).Error)
		assert.Equal(t, int64(1), active)

		var previous model.ProductAssignment
		require.NoError(t, db.Where("product_id = ? AND assigned_to = ?", product.ID, first.ID).First(&previous).Error)
		assert.Equal(t, model.AssignmentReassigned, previous.Status)
		assert.NotNil(t, previous.EndDate)
	})

	t.Run("history lists both assignments", func(t *testing.T) {
		history, err := svc.GetHistory(ctx, product.ID.String())
		require.NoError(t, err)
		require.Len(t, history, 2)
	})

	t.Run("active assignment is the latest one", func(t *testing.T) {
		active, err := svc.GetActive(ctx, product.ID.String())
		require.NoError(t, err)
		assert.Equal(t, second.ID.String(), active.AssignedTo)
	})

	t.Run("revoke closes the active assignment", func(t *testing.T) {
		require.NoError(t, svc.Revoke(ctx, product.ID.String(), admin.ID.String()))

		var stored model.Product
		require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
		assert.Nil(t, stored.AssignedTo)

		_, err := svc.GetActive(ctx, product.ID.String())
		assert.ErrorIs(t, err, ErrAssignmentNotFound)
	})

	t.Run("revoking again reports not found", func(t *testing.T) {
		err := svc.Revoke(ctx, product.ID.String(), admin.ID.String())
		assert.ErrorIs(t, err, ErrAssignmentNotFound)
	})
}

func TestAssignValidation(t *testing.T) {
	db := setupAssignmentTestDB(t)
	svc := newAssignmentServiceForTest(db)
	ctx := context.Background()

	seller := createSalesperson(t, db, "seller")
	product := createTestProduct(t, db, "GFT-301")

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.Assign(ctx, AssignProductRequest{
			ProductID:  uuid.NewString(),
			AssignedTo: seller.ID.String(),
			Reason:     model.ReasonManualAdmin,
		}, "")
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("unknown assignee", func(t *testing.T) {
		_, err := svc.Assign(ctx, AssignProductRequest{
			ProductID:  product.ID.String(),
			AssignedTo: uuid.NewString(),
			Reason:     model.ReasonManualAdmin,
		}, "")
		assert.ErrorIs(t, err, ErrAssigneeNotFound)
	})

	t.Run("admins cannot hold assignments", func(t *testing.T) {
		admin := model.User{Username: "root", Email: "root@example.com", Phone: "9000000008", Password: "x", Role: model.RoleAdmin}
		require.NoError(t, db.Create(&admin).Error)

		_, err := svc.Assign(ctx, AssignProductRequest{
			ProductID:  product.ID.String(),
			AssignedTo: admin.ID.String(),
			Reason:     model.ReasonManualAdmin,
		}, "")
		assert.ErrorIs(t, err, ErrInvalidAssigneeRole)
	})

	t.Run("unknown reason", func(t *testing.T) {
		_, err := svc.Assign(ctx, AssignProductRequest{
			ProductID:  product.ID.String(),
			AssignedTo: seller.ID.String(),
			Reason:     "because",
		}, "")
		assert.Error(t, err)
	})
}

// Stale version writes must not win: the guarded update matches zero rows
// once the version has moved on.
func TestUpdateAssigneeVersionGuard(t *testing.T) {
	db := setupAssignmentTestDB(t)
	ctx := context.Background()
	productRepo := repository.NewProductRepository(db)

	seller := createSalesperson(t, db, "seller")
	product := createTestProduct(t, db, "GFT-302")

	affected, err := productRepo.UpdateAssignee(ctx, product.ID, 0, &seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Same expected version again: someone else already bumped it
	affected, err = productRepo.UpdateAssignee(ctx, product.ID, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	affected, err = productRepo.UpdateAssignee(ctx, product.ID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	var stored model.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Nil(t, stored.AssignedTo)
	assert.Equal(t, int64(2), stored.AssignmentVersion)
}

func TestConcurrentReassignments(t *testing.T) {
	db := setupAssignmentTestDB(t)
	svc := newAssignmentServiceForTest(db)
	ctx := context.Background()

	product := createTestProduct(t, db, "GFT-303")
	sellers := make([]model.User, 8)
	for i := range sellers {
		sellers[i] = createSalesperson(t, db, fmt.Sprintf("seller%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(sellers))
	for i := range sellers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Assign(ctx, AssignProductRequest{
				ProductID:  product.ID.String(),
				AssignedTo: sellers[i].ID.String(),
				Reason:     model.ReasonManualAdmin,
			}, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrAssignmentConflict)
		}
	}
	assert.Greater(t, succeeded, 0)

	// However the transfers interleaved, exactly one assignment survives
	// active and the version count matches the successful transfers.
	var active int64
	require.NoError(t, db.Model(&model.ProductAssignment{}).
		Where("product_id = ? AND status = ?", product.ID, model.AssignmentActive).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)

	var stored model.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, int64(succeeded), stored.AssignmentVersion)
	require.NotNil(t, stored.AssignedTo)
}

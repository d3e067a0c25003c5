package service

import (
	"context"
	"testing"
	"time"

	"giftshop/internal/middleware"
	"giftshop/internal/model"
	"giftshop/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupUserTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))
	return db
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupUserTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))

	created, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "asha",
		Email:    "asha@example.com",
		Phone:    "9000000001",
		Password: "secret123",
		Role:     model.RoleSalesperson,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleSalesperson, created.Role)

	t.Run("rejects duplicates and bad roles", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserRequest{
			Username: "asha", Email: "other@example.com", Phone: "9", Password: "secret123", Role: model.RoleManager,
		})
		assert.ErrorIs(t, err, ErrDuplicateUsername)

		_, err = svc.CreateUser(ctx, CreateUserRequest{
			Username: "other", Email: "asha@example.com", Phone: "9", Password: "secret123", Role: model.RoleManager,
		})
		assert.ErrorIs(t, err, ErrDuplicateEmail)

		_, err = svc.CreateUser(ctx, CreateUserRequest{
			Username: "other", Email: "other@example.com", Phone: "9", Password: "secret123", Role: "superuser",
		})
		assert.ErrorIs(t, err, ErrInvalidUserRole)
	})

	t.Run("login issues an expiring token with role claim", func(t *testing.T) {
		res, err := svc.Login(ctx, LoginUserRequest{Email: "asha@example.com", Password: "secret123"})
		require.NoError(t, err)

		token, err := jwt.Parse(res.Token, func(*jwt.Token) (interface{}, error) {
			return middleware.GetJWTSecret(), nil
		})
		require.NoError(t, err)
		claims, ok := token.Claims.(jwt.MapClaims)
		require.True(t, ok)
		assert.Equal(t, created.ID.String(), claims["sub"])
		assert.Equal(t, model.RoleSalesperson, claims["role"])

		exp, err := claims.GetExpirationTime()
		require.NoError(t, err)
		assert.True(t, exp.After(time.Now()))
	})

	t.Run("login failures are indistinguishable", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginUserRequest{Email: "asha@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = svc.Login(ctx, LoginUserRequest{Email: "nobody@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("update validates role and uniqueness", func(t *testing.T) {
		_, err := svc.UpdateUser(ctx, created.ID.String(), UpdateUserRequest{Role: "root"})
		assert.ErrorIs(t, err, ErrInvalidUserRole)

		updated, err := svc.UpdateUser(ctx, created.ID.String(), UpdateUserRequest{Role: model.RoleManager, Phone: "9000000002"})
		require.NoError(t, err)
		assert.Equal(t, model.RoleManager, updated.Role)
		assert.Equal(t, "9000000002", updated.Phone)
	})

	t.Run("delete then lookups fail", func(t *testing.T) {
		require.NoError(t, svc.DeleteUser(ctx, created.ID.String()))
		_, err := svc.GetUserByID(ctx, created.ID.String())
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.ErrorIs(t, svc.DeleteUser(ctx, created.ID.String()), ErrUserNotFound)
	})
}

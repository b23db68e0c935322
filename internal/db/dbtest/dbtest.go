// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/shop_orders/internal/db"
	"github.com/Skotchmaster/shop_orders/internal/models"
)

func New(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(context.Background(), gdb))
	return gdb
}

func Customer(t testing.TB, gdb *gorm.DB, email string, kind models.CustomerKind) models.Customer {
	t.Helper()

	c := models.Customer{
		Kind:         kind,
		Name:         email,
		Email:        email,
		PasswordHash: "x",
		Role:         models.RoleUser,
	}
	require.NoError(t, gdb.Create(&c).Error)
	return c
}

func Product(t testing.TB, gdb *gorm.DB, name, price string) models.Product {
	t.Helper()

	author := "Test Author"
	pages := 100
	p := models.Product{
		Name:      name,
		Category:  models.CategoryBooks,
		Price:     decimal.RequireFromString(price),
		Author:    &author,
		PageCount: &pages,
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

// ProductWithID inserts a product with a fixed primary key.
func ProductWithID(t testing.TB, gdb *gorm.DB, id uint, name, price string) models.Product {
	t.Helper()

	author := "Test Author"
	pages := 100
	p := models.Product{
		ID:        id,
		Name:      name,
		Category:  models.CategoryBooks,
		Price:     decimal.RequireFromString(price),
		Author:    &author,
		PageCount: &pages,
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

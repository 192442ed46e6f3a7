// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/db"
)

// NewDB returns a migrated in-memory sqlite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	gdb, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func CreateUser(t *testing.T, gdb *gorm.DB, username string) models.User {
	t.Helper()

	u := models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func CreateProduct(t *testing.T, gdb *gorm.DB, owner uint, name, price string, stock int) models.Product {
	t.Helper()

	p := models.Product{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		CreatedBy: owner,
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStockConflict is returned when a conditional stock decrement matched no
// row, i.e. the product no longer has the requested quantity.
var ErrStockConflict = errors.New("stock changed concurrently")

type GormRepo struct {
	DB *gorm.DB
}

// Transaction runs fn against a repo bound to a single database transaction.
// Returning an error from fn (or panicking) rolls every write back.
func (r *GormRepo) Transaction(ctx context.Context, fn func(tx *GormRepo) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepo{DB: tx})
	})
}

// forUpdate adds SELECT ... FOR UPDATE where the dialect supports row locks.
// sqlite locks the whole database for a writing transaction instead.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

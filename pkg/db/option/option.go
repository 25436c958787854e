// Package option holds composable gorm query modifiers.
package option

import (
	"strings"

	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type QueryOptionFunc func(*gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// WithOrder sorts by a trusted column expression such as "id ASC".
func WithOrder(expr string) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			return db
		}
		return db.Order(expr)
	})
}

func WithWhere(query string, args ...any) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// WithPreload loads an association, optionally ordered by a trusted column expression.
func WithPreload(association, orderBy string) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if orderBy == "" {
			return db.Preload(association)
		}
		return db.Preload(association, func(db *gorm.DB) *gorm.DB {
			return db.Order(orderBy)
		})
	})
}

// Package store is the gorm-backed entity store shared by the admission,
// delivery and reconciliation components. Each method is one short
// transaction scoped to a single logical operation.
package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"zonarated-bot/internal/apperror"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func notFound(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource, id)
	}
	return fmt.Errorf("load %s %s: %w", resource, id, err)
}

package sql

import (
	"errors"

	"gorm.io/gorm"
)

// ErrHistoryEntryTerminal is returned when a terminal update targets an entry
// that already left the generating state.
var ErrHistoryEntryTerminal = errors.New("history entry already in a terminal state")

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// GormRepository implements Repository using GORM
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new repository instance
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// clampLimit normalises the page size for listing queries.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

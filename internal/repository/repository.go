// Package repository provides PostgreSQL persistence for the paper
// recommendation service.
//
// Repositories accept the DBTX interface so they work both against the
// connection pool and inside a transaction from database.DB. All
// methods return domain errors (domain.ErrNotFound and friends) wrapped
// with context; callers match with errors.Is.
//
// Typical wiring at startup:
//
//	db, _ := database.New(ctx, &cfg.Database, logger)
//	papers := repository.NewPgPaperRepository(db)
//	profiles := repository.NewPgProfileRepository(db)
package repository

import (
	"github.com/Midirushi/paper-recommendation-system/internal/database"
)

// DBTX is the database interface supporting both pool and transaction
// contexts.
type DBTX = database.DBTX

// Listing defaults and caps shared across repositories.
const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// clampLimit normalizes a listing limit to [1, maxListLimit].
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

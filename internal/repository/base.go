// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"hongdating/internal/database"
	"hongdating/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	pgUniqueViolation = "23505"
)

// readDB routes list queries to the replica when one is configured.
func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// forUpdate row-locks the next SELECT on postgres. sqlite serializes writers
// on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite reports "UNIQUE constraint failed: ...".
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// wrap converts infrastructure errors to AppError, passing AppErrors through.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

// excludeBlocked drops rows whose column names a user that userID blocked
// or that blocked userID.
func excludeBlocked(db *gorm.DB, column string, userID uint) *gorm.DB {
	return db.
		Where(column+" NOT IN (SELECT blocked_id FROM user_blocks WHERE blocker_id = ?)", userID).
		Where(column+" NOT IN (SELECT blocker_id FROM user_blocks WHERE blocked_id = ?)", userID)
}

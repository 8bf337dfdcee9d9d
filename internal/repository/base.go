// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"dreamio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// saveVersioned writes every column of value except omit and bumps its
// version. With expected > 0 the write only lands if the stored version still equals
// expected; otherwise a PRECONDITION_FAILED error carries the stored version.
// On failure *version is restored.
func saveVersioned(ctx context.Context, db *gorm.DB, table, resource string, id uint, value any, version *int, expected int, omit ...string) error {
	previous := *version
	base := previous
	if expected > 0 {
		base = expected
	}
	*version = base + 1

	q := db.WithContext(ctx).Model(value).Select("*").Omit(append([]string{"created_at", clause.Associations}, omit...)...)
	if expected > 0 {
		q = q.Where("version = ?", expected)
	}
	res := q.Updates(value)
	if res.Error != nil {
		*version = previous
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	*version = previous
	var row struct{ Version int }
	if err := db.WithContext(ctx).Table(table).Select("version").Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError(resource, id)
		}
		return models.NewInternalError(err)
	}
	return models.NewPreconditionFailedError(resource, row.Version)
}

// creatorColumns limits preloaded users to their public fields.
func creatorColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email", "role", "profile_image")
}

package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)))

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"}
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgErr)))
	assert.Equal(t, "idx_users_email", ConstraintName(pgErr))

	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.Equal(t, "", ConstraintName(errors.New("x")))
}

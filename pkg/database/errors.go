package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation postgres 唯一约束冲突错误码
const pgUniqueViolation = "23505"

// IsUniqueViolation 判断是否唯一索引冲突
// 兼容 TranslateError 之后的 gorm.ErrDuplicatedKey 以及未翻译的 pgconn.PgError
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// ConstraintName 返回冲突的约束名，非 postgres 错误返回空串
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

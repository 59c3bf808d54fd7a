package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE
const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
)

// IsExclusionViolation 是否违反排他约束（排课时间段重叠）
func IsExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeExclusionViolation
}

// IsUniqueViolation 是否违反唯一约束
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

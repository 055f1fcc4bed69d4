package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLState extracts the PostgreSQL SQLSTATE from either a pgx or a
// lib/pq error. Empty when err carries no server error.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

// ConditionName maps the SQLSTATE of err to its condition name
// ("unique_violation", "serialization_failure", ...).
func ConditionName(err error) string {
	code := SQLState(err)
	if code == "" {
		return ""
	}
	return pq.ErrorCode(code).Name()
}

// IsUniqueViolation reports SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	return ConditionName(err) == "unique_violation"
}

// IsForeignKeyViolation reports SQLSTATE 23503.
func IsForeignKeyViolation(err error) bool {
	return ConditionName(err) == "foreign_key_violation"
}

// IsSerializationFailure reports SQLSTATE 40001 and deadlocks (40P01),
// both of which are safe to retry.
func IsSerializationFailure(err error) bool {
	switch ConditionName(err) {
	case "serialization_failure", "deadlock_detected":
		return true
	}
	return false
}

// ConstraintName returns the violated constraint, if any.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}

	return ""
}

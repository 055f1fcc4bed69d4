package model

import (
	"bikeshop-backend/pkg/apperror"
)

const (
	ErrCodeRequestNotFound          apperror.ErrorCode = "REQUEST_NOT_FOUND"
	ErrCodeRequestInvalidTransition apperror.ErrorCode = "REQUEST_INVALID_TRANSITION"
	ErrCodeRequestExpired           apperror.ErrorCode = "REQUEST_EXPIRED"
)

var (
	ErrRequestNotFound = apperror.New(apperror.KindNotFound, ErrCodeRequestNotFound,
		"request not found", 0)

	ErrInvalidTransition = apperror.New(apperror.KindInvalidTransition, ErrCodeRequestInvalidTransition,
		"status transition is not allowed", 0)

	// ErrRequestExpired is an InvalidTransition raised when the request's
	// window closed before the transition was attempted.
	ErrRequestExpired = apperror.New(apperror.KindInvalidTransition, ErrCodeRequestExpired,
		"request has expired", 0)
)

// InvalidTransition describes the rejected move.
func InvalidTransition(from, to Status) error {
	return ErrInvalidTransition.WithDetails(map[string]interface{}{
		"from": from,
		"to":   to,
	})
}

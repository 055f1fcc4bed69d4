package apperror

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Kind groups error codes by how the caller is expected to react.
type Kind string

const (
	KindValidation          Kind = "validation"           // client input, no retry
	KindCoupon              Kind = "coupon"               // business rejection of a coupon
	KindInvalidTransition   Kind = "invalid_transition"   // state machine violation
	KindConcurrencyConflict Kind = "concurrency_conflict" // lost a race, retry once
	KindPersistence         Kind = "persistence"          // infrastructure failure
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
)

// ErrorCode is the stable machine-readable code returned to API clients.
type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VAL_INVALID_INPUT"
	ErrCodeConcurrencyConflict ErrorCode = "SYS_CONCURRENCY_CONFLICT"
	ErrCodePersistence         ErrorCode = "SYS_PERSISTENCE_ERROR"
	ErrCodeForbidden           ErrorCode = "AUTH_FORBIDDEN"
)

var defaultStatus = map[Kind]int{
	KindValidation:          http.StatusBadRequest,
	KindCoupon:              http.StatusUnprocessableEntity,
	KindInvalidTransition:   http.StatusConflict,
	KindConcurrencyConflict: http.StatusConflict,
	KindPersistence:         http.StatusInternalServerError,
	KindNotFound:            http.StatusNotFound,
	KindForbidden:           http.StatusForbidden,
}

// AppError is the single error type crossing service boundaries.
// Two AppErrors match under errors.Is when their codes are equal, so
// predefined values can be compared even after WithDetails/Wrap copies.
type AppError struct {
	Kind       Kind                   `json:"-"`
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy carrying the given details.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Wrap returns a copy with err attached as the cause.
func (e *AppError) Wrap(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New builds an AppError; httpStatus 0 means the default status of kind.
func New(kind Kind, code ErrorCode, message string, httpStatus int) *AppError {
	if httpStatus == 0 {
		httpStatus = defaultStatus[kind]
	}
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// -------------------------------------------------------------------
// CONSTRUCTORS
// -------------------------------------------------------------------

func Validation(message string, details map[string]interface{}) *AppError {
	return New(KindValidation, ErrCodeValidationFailed, message, 0).WithDetails(details)
}

// FromValidation converts an ozzo-validation result into a Validation error.
// Internal errors raised by rules are treated as persistence failures.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}

	var internal validation.InternalError
	if errors.As(err, &internal) {
		return Persistence("validate request", err)
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]interface{}, len(fieldErrs))
		for field, fe := range fieldErrs {
			details[field] = fe.Error()
		}
		return Validation("request validation failed", details)
	}

	return Validation(err.Error(), nil)
}

func ConcurrencyConflict(err error) *AppError {
	return New(KindConcurrencyConflict, ErrCodeConcurrencyConflict,
		"the resource was modified concurrently, please retry", 0).Wrap(err)
}

func Persistence(op string, err error) *AppError {
	return New(KindPersistence, ErrCodePersistence, op+" failed", 0).Wrap(err)
}

func Forbidden(message string) *AppError {
	return New(KindForbidden, ErrCodeForbidden, message, 0)
}

// -------------------------------------------------------------------
// INSPECTION
// -------------------------------------------------------------------

// As extracts the outermost AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err; unknown errors count as persistence failures.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindPersistence
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatusOf resolves the response status for err.
func HTTPStatusOf(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	if status, ok := defaultStatus[appErr.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

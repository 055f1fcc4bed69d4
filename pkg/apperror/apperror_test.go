package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSample = New(KindCoupon, "COUPON_SAMPLE", "sample", 0)

func TestAppError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("evaluate: %w", errSample.WithDetails(map[string]interface{}{"code": "X"}))

	assert.True(t, errors.Is(wrapped, errSample))
	assert.False(t, errors.Is(wrapped, New(KindCoupon, "OTHER", "other", 0)))
}

func TestAppError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("insert request", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert request failed: connection reset", err.Error())
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusOf(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindCoupon, KindOf(fmt.Errorf("x: %w", errSample)))
	assert.Equal(t, KindPersistence, KindOf(errors.New("plain")))
	assert.True(t, IsKind(ConcurrencyConflict(nil), KindConcurrencyConflict))
	assert.False(t, IsKind(nil, KindPersistence))
}

func TestHTTPStatusOf_DefaultsPerKind(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatusOf(errSample))
	assert.Equal(t, http.StatusConflict, HTTPStatusOf(ConcurrencyConflict(nil)))
	assert.Equal(t, http.StatusForbidden, HTTPStatusOf(Forbidden("no")))
	assert.Equal(t, http.StatusTeapot, HTTPStatusOf(New(KindValidation, "TEA", "tea", http.StatusTeapot)))
}

func TestFromValidation(t *testing.T) {
	err := validation.Errors{
		"code": errors.New("cannot be blank"),
	}

	got := FromValidation(err)
	appErr, ok := As(got)
	require.True(t, ok)
	assert.Equal(t, KindValidation, appErr.Kind)
	assert.Equal(t, ErrCodeValidationFailed, appErr.Code)
	assert.Equal(t, "cannot be blank", appErr.Details["code"])

	assert.NoError(t, FromValidation(nil))
}

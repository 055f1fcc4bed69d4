package model

import (
	"bikeshop-backend/pkg/apperror"
)

const (
	ErrCodeUnknownItem apperror.ErrorCode = "BOOKING_UNKNOWN_ITEM"
)

var (
	ErrUnknownItem = apperror.New(apperror.KindValidation, ErrCodeUnknownItem,
		"item is not in the catalog for this request type", 0)
)

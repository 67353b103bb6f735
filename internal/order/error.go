package order

import "foodhub-be/internal/apperror"

var (
	ErrOrderNotFound    = apperror.New(apperror.ErrNotFound, "order not found")
	ErrEmptyOrder       = apperror.New(apperror.ErrValidation, "order must contain at least one item")
	ErrInvalidQuantity  = apperror.New(apperror.ErrValidation, "quantity must be at least 1")
	ErrInvalidShipping  = apperror.New(apperror.ErrValidation, "shipping fee must not be negative")
	ErrInvalidStatus    = apperror.New(apperror.ErrValidation, "unknown order status")
	ErrInvalidPayMethod = apperror.New(apperror.ErrValidation, "unknown payment method")
	ErrOptionMismatch   = apperror.New(apperror.ErrValidation, "option group does not belong to menu item")
	ErrAdminOnly        = apperror.New(apperror.ErrForbidden, "admin role required")
	ErrUnauthenticated  = apperror.New(apperror.ErrUnauthorized, "authentication required")
)

package rating

import "foodhub-be/internal/apperror"

var (
	ErrOrderItemNotFound = apperror.New(apperror.ErrNotFound, "order item not found")
	ErrNotDelivered      = apperror.New(apperror.ErrInvalidState, "only delivered orders can be rated")
	ErrAlreadyRated      = apperror.New(apperror.ErrInvalidState, "order item is already rated")
	ErrMenuItemMismatch  = apperror.New(apperror.ErrValidation, "menu item does not match order item")
	ErrInvalidRating     = apperror.New(apperror.ErrValidation, "rating must be between 1 and 5")
	ErrInvalidContent    = apperror.New(apperror.ErrValidation, "content must be 10 to 500 characters")
	ErrInvalidImage      = apperror.New(apperror.ErrValidation, "images must be absolute URLs of at most 500 characters")
	ErrInvalidFilter     = apperror.New(apperror.ErrValidation, "invalid rating filter")
	ErrUnauthenticated   = apperror.New(apperror.ErrUnauthorized, "authentication required")
)

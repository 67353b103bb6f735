package catalog

import "foodhub-be/internal/apperror"

var (
	ErrMenuItemNotFound    = apperror.New(apperror.ErrNotFound, "menu item not found")
	ErrOptionGroupNotFound = apperror.New(apperror.ErrNotFound, "option group not found")
	ErrOptionNotFound      = apperror.New(apperror.ErrNotFound, "item option not found")
)

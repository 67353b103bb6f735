package address

import "foodhub-be/internal/apperror"

var ErrAddressNotFound = apperror.New(apperror.ErrNotFound, "address not found")

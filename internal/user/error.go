package user

import "foodhub-be/internal/apperror"

var ErrUserNotFound = apperror.New(apperror.ErrNotFound, "user not found")

package payment

import "foodhub-be/internal/apperror"

var (
	ErrPaymentNotFound   = apperror.New(apperror.ErrNotFound, "payment not found")
	ErrAlreadyPaid       = apperror.New(apperror.ErrInvalidState, "order is already paid")
	ErrInvalidSignature  = apperror.New(apperror.ErrInvalidState, "invalid webhook signature")
	ErrInvalidPayload    = apperror.New(apperror.ErrInvalidState, "invalid webhook payload")
	ErrGateway           = apperror.New(apperror.ErrUpstream, "payment gateway unavailable")
	ErrInvalidFilter     = apperror.New(apperror.ErrValidation, "invalid payment filter")
	ErrAdminOnly         = apperror.New(apperror.ErrForbidden, "admin role required")
	ErrUnauthenticated   = apperror.New(apperror.ErrUnauthorized, "authentication required")
	ErrMissingStripeKey  = apperror.New(apperror.ErrValidation, "stripe secret key is not configured")
	ErrMissingWebhookKey = apperror.New(apperror.ErrValidation, "stripe webhook secret is not configured")
)

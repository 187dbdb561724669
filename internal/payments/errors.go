package payments

import "tripenjoy/internal/shared/apperror"

var (
	ErrPaymentNotFound      = apperror.NotFound("PAYMENT_NOT_FOUND", "payment not found")
	ErrMissingTransactionID = apperror.NotFound("PAYMENT_MISSING_TRANSACTION_ID", "missing transaction id")
	ErrInvalidAmount        = apperror.Validation("PAYMENT_INVALID_AMOUNT", "payment amount must be greater than zero")
	ErrUnsupportedMethod    = apperror.Validation("PAYMENT_UNSUPPORTED_METHOD", "unsupported payment method")
	ErrEmptyTransactionID   = apperror.Validation("PAYMENT_EMPTY_TRANSACTION_ID", "transaction id must not be empty")
	ErrInvalidSignature     = apperror.Validation("PAYMENT_INVALID_SIGNATURE", "callback signature is invalid")
	ErrInvalidCallback      = apperror.Validation("PAYMENT_INVALID_CALLBACK", "callback payload is malformed")
	ErrInvalidPaymentState  = apperror.Conflict("PAYMENT_INVALID_STATE", "payment is not in a state that allows this operation")
	ErrPaymentInProgress    = apperror.Conflict("PAYMENT_IN_PROGRESS", "booking already has a payment in progress")
	ErrBookingNotPayable    = apperror.Conflict("PAYMENT_BOOKING_NOT_PAYABLE", "only pending bookings can be paid")
	ErrNotPaymentOwner      = apperror.Forbidden("PAYMENT_NOT_OWNER", "payment belongs to another user")
	ErrRefundForbidden      = apperror.Forbidden("PAYMENT_REFUND_FORBIDDEN", "only admins can refund payments")
	ErrGatewayFailure       = apperror.Failure("PAYMENT_GATEWAY_FAILURE", "payment gateway call failed", nil)
)

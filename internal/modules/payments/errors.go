package payments

import "errors"

var (
	ErrActivePaymentExists   = errors.New("an active payment already exists for this order")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrMethodDisabled        = errors.New("payment method is not enabled")
	ErrNotRefundable         = errors.New("payment is not refundable")
	ErrRefundExceedsBalance  = errors.New("refund amount exceeds available balance")
	ErrIllegalTransition     = errors.New("illegal payment status transition")
	ErrStaleTransition       = errors.New("payment status changed concurrently")
	ErrTxNotMined            = errors.New("transaction not yet mined")
	ErrUnknownWebhookPayload = errors.New("unrecognized webhook payload")
)

package handlers

import (
	"errors"

	"gorm.io/gorm"

	"github.com/rhonaldomaster/gshop-sub000/internal/modules/payments"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/providers"
	"github.com/rhonaldomaster/gshop-sub000/internal/shared/apperr"
)

// mapPaymentErr translates module errors into the apperr taxonomy the
// error-handler middleware renders. Anything unknown becomes a 500.
func mapPaymentErr(err error) error {
	var pErr *providers.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFoundErr("Payment not found.")
	case errors.Is(err, payments.ErrActivePaymentExists):
		return apperr.ConflictErr("An active payment already exists for this order.")
	case errors.Is(err, payments.ErrMethodDisabled):
		return apperr.InvalidErr("This payment method is not available.", nil)
	case errors.Is(err, payments.ErrInvalidAmount):
		return apperr.InvalidErr("Amount must be positive.", nil)
	case errors.Is(err, payments.ErrNotRefundable):
		return apperr.InvalidErr("This payment cannot be refunded.", nil)
	case errors.Is(err, payments.ErrRefundExceedsBalance):
		return apperr.InvalidErr("Refund amount exceeds the refundable balance.", nil)
	case errors.Is(err, payments.ErrIllegalTransition):
		return apperr.ConflictErr("The payment is not in a state that allows this action.")
	case errors.Is(err, payments.ErrStaleTransition):
		return apperr.ConflictErr("The payment changed concurrently; reload and retry.")
	case errors.As(err, &pErr):
		return apperr.ProviderErr("The payment provider rejected the request.", err)
	default:
		return apperr.Wrap(err)
	}
}

// Package providers wraps the external payment rails (card processor,
// local aggregator, chain RPC) behind uniform result shapes. No remote
// error type or provider status string escapes this package.
package providers

import (
	"context"
	"fmt"
)

// Error is the normalized remote failure: provider name plus the remote
// message, nothing transport-specific.
type Error struct {
	Provider string
	Status   int // remote HTTP status, 0 when unreachable
	Message  string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Card processor result statuses, already normalized.
const (
	CardSucceeded      = "succeeded"
	CardRequiresAction = "requires_action"
	CardFailed         = "failed"
)

type CardIntentRequest struct {
	Amount         float64
	Currency       string
	IdempotencyKey string
	Description    string
	ReturnURL      string
}

type CardChargeRequest struct {
	IntentID       string
	Amount         float64
	Currency       string
	MethodToken    string
	IdempotencyKey string
	ReturnURL      string
}

type CardResult struct {
	Status     string
	ExternalID string
}

type RefundResult struct {
	ExternalID string
}

type CardProvider interface {
	CreateIntent(ctx context.Context, req CardIntentRequest) (CardResult, error)
	Charge(ctx context.Context, req CardChargeRequest) (CardResult, error)
	Refund(ctx context.Context, externalID string, amount float64) (RefundResult, error)
}

type PreferenceItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem
	SuccessURL        string
	FailureURL        string
	PendingURL        string
	ExternalReference string
	NotificationURL   string
}

type Preference struct {
	ID        string
	InitPoint string // hosted-checkout launch URL
}

type DirectPaymentRequest struct {
	Amount          float64
	PaymentMethodID string
	PayerEmail      string
	Installments    int
	Token           string
	IdempotencyKey  string
}

// AggregatorPayment is the remote payment as re-fetched after a
// webhook. Status stays in the aggregator's vocabulary until the
// orchestrator maps it.
type AggregatorPayment struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	TransactionAmount float64
}

type AggregatorProvider interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error)
	CreateDirectPayment(ctx context.Context, req DirectPaymentRequest) (AggregatorPayment, error)
	GetPayment(ctx context.Context, id string) (AggregatorPayment, error)
	Refund(ctx context.Context, id string, amount float64) (RefundResult, error)
}

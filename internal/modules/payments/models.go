package payments

import (
	"time"

	"gorm.io/datatypes"
)

// Canonical payment statuses. Providers speak their own vocabularies;
// adapters map into these and nothing else reaches the ledger.
const (
	StatusPending           = "pending"
	StatusProcessing        = "processing"
	StatusCompleted         = "completed"
	StatusFailed            = "failed"
	StatusCancelled         = "cancelled"
	StatusRefunded          = "refunded"
	StatusPartiallyRefunded = "partially_refunded"

	// StatusRequiresReview holds payments whose remote outcome is unknown
	// (e.g. a timed-out provider call). Resolved by ops, not by retry.
	StatusRequiresReview = "requires_review"
)

const (
	MethodCard         = "card"
	MethodAggregator   = "aggregator"
	MethodCrypto       = "crypto"
	MethodWalletCredit = "wallet_credit"
)

// activeStatuses are the non-terminal states counted by the
// one-active-payment-per-order invariant.
var activeStatuses = []string{StatusPending, StatusProcessing, StatusRequiresReview}

// transitions is the full legal state machine. Anything not listed is
// rejected before a write happens.
var transitions = map[string][]string{
	StatusPending:           {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled, StatusRequiresReview},
	StatusProcessing:        {StatusPending, StatusCompleted, StatusFailed, StatusRequiresReview},
	StatusRequiresReview:    {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:         {StatusRefunded, StatusPartiallyRefunded},
	StatusPartiallyRefunded: {StatusRefunded, StatusPartiallyRefunded},
}

func CanTransition(from, to string) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func IsActive(status string) bool {
	for _, s := range activeStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Payment struct {
	ID       string  `gorm:"type:char(36);primaryKey"`
	OrderID  string  `gorm:"type:char(36);not null;index:ix_payments_order_id"`
	UserID   string  `gorm:"type:char(36);not null;index:ix_payments_user_id"`
	Method   string  `gorm:"type:varchar(32);not null"`
	Status   string  `gorm:"type:varchar(32);not null"`
	Amount   float64 `gorm:"type:decimal(15,2);not null"`
	Currency string  `gorm:"type:char(3);not null"`

	CryptoAmount   *float64 `gorm:"type:decimal(15,8)"`
	CryptoCurrency *string  `gorm:"type:varchar(10)"`

	// External references, one column per rail.
	CardIntentID        *string `gorm:"type:varchar(128);index:ix_payments_card_intent"`
	PreferenceID        *string `gorm:"type:varchar(128);index:ix_payments_preference"`
	AggregatorPaymentID *string `gorm:"type:varchar(128);index:ix_payments_agg_payment"`
	ChainTxHash         *string `gorm:"type:varchar(80);index:ix_payments_tx_hash"`

	ProcessingFee  float64 `gorm:"type:decimal(8,2);not null;default:0"`
	PlatformFee    float64 `gorm:"type:decimal(8,2);not null;default:0"`
	RefundedAmount float64 `gorm:"type:decimal(15,2);not null;default:0"`

	FailureReason *string `gorm:"type:varchar(255)"`

	ExpiresAt   *time.Time `gorm:"type:datetime"`
	ProcessedAt *time.Time `gorm:"type:datetime"`
	RefundedAt  *time.Time `gorm:"type:datetime"`

	CreatedAt time.Time `gorm:"type:datetime;not null"`
	UpdatedAt time.Time `gorm:"type:datetime;not null"`
}

func (Payment) TableName() string { return "payments" }

// Remaining is the refundable balance.
func (p Payment) Remaining() float64 { return p.Amount - p.RefundedAmount }

type CryptoTransaction struct {
	ID          string  `gorm:"type:char(36);primaryKey"`
	PaymentID   string  `gorm:"type:char(36);not null;index:ix_crypto_tx_payment_id"`
	TxHash      string  `gorm:"type:varchar(80);not null;index:ix_crypto_tx_hash"`
	FromAddress string  `gorm:"type:varchar(64);not null"`
	ToAddress   string  `gorm:"type:varchar(64);not null"`
	Amount      float64 `gorm:"type:decimal(15,8);not null"`
	Currency    string  `gorm:"type:varchar(10);not null"`

	BlockNumber   uint64  `gorm:"not null;default:0"`
	Confirmations uint64  `gorm:"not null;default:0"`
	GasFee        float64 `gorm:"type:decimal(15,8);not null;default:0"`

	Status      string     `gorm:"type:varchar(32);not null"`
	ConfirmedAt *time.Time `gorm:"type:datetime"`

	CreatedAt time.Time `gorm:"type:datetime;not null"`
	UpdatedAt time.Time `gorm:"type:datetime;not null"`
}

func (CryptoTransaction) TableName() string { return "crypto_transactions" }

type PaymentMethod struct {
	ID     string `gorm:"type:char(36);primaryKey"`
	UserID string `gorm:"type:char(36);not null;index:ix_payment_methods_user_id"`
	Type   string `gorm:"type:varchar(32);not null"`

	DisplayName    string  `gorm:"type:varchar(128);not null"`
	LastFourDigits *string `gorm:"type:char(4)"`
	Brand          *string `gorm:"type:varchar(32)"`
	ChainAddress   *string `gorm:"type:varchar(64)"`
	ExpiryMonth    *int
	ExpiryYear     *int

	IsDefault bool `gorm:"not null;default:false"`
	IsActive  bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"type:datetime;not null"`
	UpdatedAt time.Time `gorm:"type:datetime;not null"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

// ProviderEvent is the webhook dedupe/audit row. The unique
// (provider,event_id) pair is what makes at-least-once delivery safe.
type ProviderEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Provider    string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_provider_events_provider_event,priority:1"`
	EventID     string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_provider_events_provider_event,priority:2"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`

	ReceivedAt   time.Time  `gorm:"type:datetime;not null"`
	ProcessedAt  *time.Time `gorm:"type:datetime"`
	ProcessError *string    `gorm:"type:varchar(255)"`
}

func (ProviderEvent) TableName() string { return "provider_events" }

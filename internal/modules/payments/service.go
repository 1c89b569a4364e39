package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"log/slog"

	"github.com/rhonaldomaster/gshop-sub000/internal/modules/orders"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/providers"
)

// Options is the orchestrator's slice of the process-wide config,
// parsed once at startup and injected.
type Options struct {
	EnabledMethods  map[string]bool
	PlatformFeeRate float64
	CardFeeRate     float64
	CardFeeFixed    float64
	BaseURL         string
	PaymentTTL      time.Duration
	ProviderTimeout time.Duration
}

// Service is the payment orchestrator: it creates payments, invokes the
// matching adapter and applies guarded status transitions. Errors from
// initiation and processing never propagate past this boundary — they
// become durable FAILED (or requires_review) rows.
type Service struct {
	ledger   *Ledger
	orders   *orders.Repo
	card     providers.CardProvider
	agg      providers.AggregatorProvider
	verifier *Verifier
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(ledger *Ledger, ordersRepo *orders.Repo, card providers.CardProvider, agg providers.AggregatorProvider, verifier *Verifier, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PaymentTTL <= 0 {
		opts.PaymentTTL = 30 * time.Minute
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 5 * time.Second
	}
	return &Service{
		ledger:   ledger,
		orders:   ordersRepo,
		card:     card,
		agg:      agg,
		verifier: verifier,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

type CreatePaymentInput struct {
	OrderID     string
	UserID      string
	Method      string
	Amount      float64
	Currency    string
	Description string
	PayerEmail  string
}

// CreatePayment persists a PENDING payment with a 30-minute expiry and
// dispatches initiation to the matching adapter. Initiation failure is
// recorded as FAILED with the remote reason; the caller always receives
// the durable record.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (Payment, error) {
	if !s.opts.EnabledMethods[in.Method] {
		return Payment{}, ErrMethodDisabled
	}
	if in.Amount <= 0 {
		return Payment{}, ErrInvalidAmount
	}

	now := s.now()
	expires := now.Add(s.opts.PaymentTTL)
	p := Payment{
		ID:            uuid.NewString(),
		OrderID:       in.OrderID,
		UserID:        in.UserID,
		Method:        in.Method,
		Status:        StatusPending,
		Amount:        in.Amount,
		Currency:      in.Currency,
		ProcessingFee: s.processingFee(in.Method, in.Amount),
		PlatformFee:   round2(in.Amount * s.opts.PlatformFeeRate),
		ExpiresAt:     &expires,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.ledger.Create(ctx, &p); err != nil {
		return Payment{}, err
	}

	s.logger.Info("payment created", "payment_id", p.ID, "order_id", p.OrderID, "method", p.Method, "amount", p.Amount, "currency", p.Currency)

	switch in.Method {
	case MethodAggregator:
		s.initAggregator(ctx, &p, in)
	case MethodCard:
		s.initCard(ctx, &p, in)
	}
	// crypto and wallet_credit have no remote call at creation time.

	return s.ledger.FindByID(ctx, p.ID)
}

func (s *Service) initAggregator(ctx context.Context, p *Payment, in CreatePaymentInput) {
	title := in.Description
	if title == "" {
		title = "Order " + in.OrderID
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	pref, err := s.agg.CreatePreference(cctx, providers.PreferenceRequest{
		Items: []providers.PreferenceItem{{
			ID:        in.OrderID,
			Title:     title,
			Quantity:  1,
			UnitPrice: in.Amount,
		}},
		SuccessURL:        s.opts.BaseURL + "/api/payments/callback/success",
		FailureURL:        s.opts.BaseURL + "/api/payments/callback/failure",
		PendingURL:        s.opts.BaseURL + "/api/payments/callback/pending",
		ExternalReference: p.ID,
		NotificationURL:   s.opts.BaseURL + "/webhooks/aggregator",
	})
	if err != nil {
		s.recordInitiationFailure(ctx, p, err)
		return
	}

	if err := s.ledger.DB().WithContext(ctx).Model(&Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{"preference_id": pref.ID, "updated_at": s.now()}).Error; err != nil {
		s.logger.Error("failed to store preference id", "payment_id", p.ID, "err", err)
	}
}

func (s *Service) initCard(ctx context.Context, p *Payment, in CreatePaymentInput) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	res, err := s.card.CreateIntent(cctx, providers.CardIntentRequest{
		Amount:         in.Amount,
		Currency:       in.Currency,
		IdempotencyKey: p.ID,
		Description:    in.Description,
	})
	if err != nil {
		s.recordInitiationFailure(ctx, p, err)
		return
	}

	if err := s.ledger.DB().WithContext(ctx).Model(&Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{"card_intent_id": res.ExternalID, "updated_at": s.now()}).Error; err != nil {
		s.logger.Error("failed to store card intent id", "payment_id", p.ID, "err", err)
	}
}

// recordInitiationFailure converts an adapter error into a terminal row
// instead of raising: a timed-out call whose remote outcome is unknown
// lands in requires_review, anything else in failed.
func (s *Service) recordInitiationFailure(ctx context.Context, p *Payment, err error) {
	next := StatusFailed
	if errors.Is(err, context.DeadlineExceeded) {
		next = StatusRequiresReview
	}

	reason := truncate(err.Error(), 250)
	if terr := s.ledger.TransitionFrom(ctx, p.ID, StatusPending, next, map[string]any{
		"failure_reason": reason,
	}); terr != nil {
		s.logger.Error("failed to record initiation failure", "payment_id", p.ID, "err", terr)
	}
	s.logger.Error("payment initiation failed", "payment_id", p.ID, "method", p.Method, "status", next, "reason", reason)
}

// ProcessCardPayment charges the stored intent with idempotency key =
// payment id, guaranteeing at-most-once charge creation under retry.
func (s *Service) ProcessCardPayment(ctx context.Context, paymentID, methodToken string) (Payment, error) {
	p, err := s.ledger.FindByID(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	if p.Method != MethodCard {
		return Payment{}, fmt.Errorf("%w: payment method is %s", ErrIllegalTransition, p.Method)
	}
	if err := s.ledger.TransitionFrom(ctx, p.ID, StatusPending, StatusProcessing, nil); err != nil {
		return Payment{}, err
	}

	intentID := ""
	if p.CardIntentID != nil {
		intentID = *p.CardIntentID
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	res, perr := s.card.Charge(cctx, providers.CardChargeRequest{
		IntentID:       intentID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		MethodToken:    methodToken,
		IdempotencyKey: p.ID,
		ReturnURL:      s.opts.BaseURL + "/payment/complete",
	})

	now := s.now()
	switch {
	case perr != nil && errors.Is(perr, context.DeadlineExceeded):
		err = s.ledger.TransitionFrom(ctx, p.ID, StatusProcessing, StatusRequiresReview, map[string]any{
			"failure_reason": "card provider call timed out; remote outcome unknown",
		})
	case perr != nil:
		err = s.ledger.TransitionFrom(ctx, p.ID, StatusProcessing, StatusFailed, map[string]any{
			"failure_reason": truncate(perr.Error(), 250),
		})
	case res.Status == providers.CardSucceeded:
		err = s.ledger.TransitionFrom(ctx, p.ID, StatusProcessing, StatusCompleted, map[string]any{
			"card_intent_id": res.ExternalID,
			"processed_at":   &now,
			"failure_reason": nil,
		})
	case res.Status == providers.CardRequiresAction:
		// Client action outstanding: back to pending, expiry restored so
		// the reaper still closes the window.
		err = s.ledger.TransitionFrom(ctx, p.ID, StatusProcessing, StatusPending, map[string]any{
			"card_intent_id": res.ExternalID,
			"expires_at":     p.ExpiresAt,
		})
	default:
		err = s.ledger.TransitionFrom(ctx, p.ID, StatusProcessing, StatusFailed, map[string]any{
			"card_intent_id": res.ExternalID,
			"failure_reason": "payment failed at card processor",
		})
	}
	if err != nil {
		return Payment{}, err
	}

	return s.ledger.FindByID(ctx, p.ID)
}

type ProcessCryptoInput struct {
	TxHash      string
	FromAddress string
	ToAddress   string
	Amount      float64
}

// ProcessCryptoPayment records the submitted transfer and synchronously
// triggers on-chain verification. Submission alone proves nothing:
// correctness depends entirely on the verifier.
func (s *Service) ProcessCryptoPayment(ctx context.Context, paymentID string, in ProcessCryptoInput) (Payment, error) {
	p, err := s.ledger.FindByID(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	if p.Method != MethodCrypto {
		return Payment{}, fmt.Errorf("%w: payment method is %s", ErrIllegalTransition, p.Method)
	}

	now := s.now()
	cryptoTx := CryptoTransaction{
		ID:          uuid.NewString(),
		PaymentID:   p.ID,
		TxHash:      in.TxHash,
		FromAddress: in.FromAddress,
		ToAddress:   in.ToAddress,
		Amount:      in.Amount,
		Currency:    "USDC",
		Status:      StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.ledger.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.TransitionFromTx(ctx, tx, p.ID, StatusPending, StatusProcessing, map[string]any{
			"chain_tx_hash":   in.TxHash,
			"crypto_amount":   in.Amount,
			"crypto_currency": "USDC",
		}); err != nil {
			return err
		}
		return tx.WithContext(ctx).Create(&cryptoTx).Error
	})
	if err != nil {
		return Payment{}, err
	}

	if verr := s.verifier.Verify(ctx, cryptoTx.ID); verr != nil && !errors.Is(verr, ErrTxNotMined) {
		s.logger.Error("crypto verification errored", "payment_id", p.ID, "crypto_tx_id", cryptoTx.ID, "err", verr)
	}

	return s.ledger.FindByID(ctx, p.ID)
}

// ReverifyCrypto re-runs on-chain verification for a payment whose
// submitted transaction had not been mined at process time. A transfer
// still unmined is not an error: the payment simply stays processing.
func (s *Service) ReverifyCrypto(ctx context.Context, paymentID string) (Payment, error) {
	p, err := s.ledger.FindByID(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	if p.Method != MethodCrypto {
		return Payment{}, fmt.Errorf("%w: payment method is %s", ErrIllegalTransition, p.Method)
	}

	var cryptoTx CryptoTransaction
	if err := s.ledger.DB().WithContext(ctx).
		Where("payment_id = ?", p.ID).
		Order("created_at DESC").
		First(&cryptoTx).Error; err != nil {
		return Payment{}, err
	}

	if verr := s.verifier.Verify(ctx, cryptoTx.ID); verr != nil && !errors.Is(verr, ErrTxNotMined) {
		return Payment{}, verr
	}
	return s.ledger.FindByID(ctx, p.ID)
}

// Refund refunds part or all of a settled payment. Over-refunds are
// rejected with zero state mutation; a provider failure leaves the
// payment untouched (it legally cannot leave COMPLETED) and surfaces a
// displayable error.
func (s *Service) Refund(ctx context.Context, paymentID string, amount float64) (Payment, error) {
	p, err := s.ledger.FindByID(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}

	if p.Status != StatusCompleted && p.Status != StatusPartiallyRefunded {
		return Payment{}, ErrNotRefundable
	}

	remaining := p.Remaining()
	if amount <= 0 {
		amount = remaining
	}
	if amount > remaining {
		return Payment{}, ErrRefundExceedsBalance
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	switch p.Method {
	case MethodCard:
		if p.CardIntentID == nil {
			return Payment{}, fmt.Errorf("%w: no card reference on record", ErrNotRefundable)
		}
		if _, err := s.card.Refund(cctx, *p.CardIntentID, amount); err != nil {
			return Payment{}, err
		}
	case MethodAggregator:
		if p.AggregatorPaymentID == nil {
			return Payment{}, fmt.Errorf("%w: no aggregator reference on record", ErrNotRefundable)
		}
		if _, err := s.agg.Refund(cctx, *p.AggregatorPaymentID, amount); err != nil {
			return Payment{}, err
		}
	case MethodWalletCredit:
		// Internal balance, no remote side effect.
	default:
		return Payment{}, fmt.Errorf("%w: on-chain payments cannot be refunded automatically", ErrNotRefundable)
	}

	now := s.now()
	newRefunded := p.RefundedAmount + amount
	next := StatusPartiallyRefunded
	if newRefunded >= p.Amount {
		newRefunded = p.Amount
		next = StatusRefunded
	}

	if err := s.ledger.TransitionFrom(ctx, p.ID, p.Status, next, map[string]any{
		"refunded_amount": newRefunded,
		"refunded_at":     &now,
	}); err != nil {
		return Payment{}, err
	}

	s.logger.Info("payment refunded", "payment_id", p.ID, "amount", amount, "status", next)
	return s.ledger.FindByID(ctx, p.ID)
}

// ResolveReview settles a requires_review payment after manual ops
// investigation of the remote outcome.
func (s *Service) ResolveReview(ctx context.Context, paymentID, outcome, note string) (Payment, error) {
	if outcome != StatusCompleted && outcome != StatusFailed && outcome != StatusCancelled {
		return Payment{}, ErrIllegalTransition
	}

	now := s.now()
	updates := map[string]any{}
	if outcome == StatusCompleted {
		updates["processed_at"] = &now
		updates["failure_reason"] = nil
	} else if note != "" {
		updates["failure_reason"] = truncate(note, 250)
	}

	if err := s.ledger.TransitionFrom(ctx, paymentID, StatusRequiresReview, outcome, updates); err != nil {
		return Payment{}, err
	}
	return s.ledger.FindByID(ctx, paymentID)
}

func (s *Service) GetPayment(ctx context.Context, id string) (Payment, error) {
	return s.ledger.FindByID(ctx, id)
}

func (s *Service) GetUserPayments(ctx context.Context, userID string) ([]Payment, error) {
	return s.ledger.FindByUser(ctx, userID)
}

func (s *Service) processingFee(method string, amount float64) float64 {
	switch method {
	case MethodCard:
		return round2(amount*s.opts.CardFeeRate + s.opts.CardFeeFixed)
	default:
		return 0
	}
}

type MethodStats struct {
	Method string  `json:"method"`
	Count  int64   `json:"count"`
	Volume float64 `json:"volume"`
}

type Stats struct {
	TotalCount     int64         `json:"total_count"`
	TotalVolume    float64       `json:"total_volume"`
	ProcessingFees float64       `json:"processing_fees"`
	PlatformFees   float64       `json:"platform_fees"`
	RefundedVolume float64       `json:"refunded_volume"`
	ByMethod       []MethodStats `json:"by_method"`
}

// PaymentStats aggregates settled volume per method over [start, end).
func (s *Service) PaymentStats(ctx context.Context, start, end time.Time) (Stats, error) {
	db := s.ledger.DB().WithContext(ctx)

	var totals struct {
		Count          int64
		Volume         float64
		ProcessingFees float64
		PlatformFees   float64
		Refunded       float64
	}
	err := db.Model(&Payment{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount),0) AS volume, COALESCE(SUM(processing_fee),0) AS processing_fees, COALESCE(SUM(platform_fee),0) AS platform_fees, COALESCE(SUM(refunded_amount),0) AS refunded").
		Where("status IN ? AND created_at >= ? AND created_at < ?",
			[]string{StatusCompleted, StatusRefunded, StatusPartiallyRefunded}, start, end).
		Scan(&totals).Error
	if err != nil {
		return Stats{}, err
	}

	var byMethod []MethodStats
	err = db.Model(&Payment{}).
		Select("method, COUNT(*) AS count, COALESCE(SUM(amount),0) AS volume").
		Where("status IN ? AND created_at >= ? AND created_at < ?",
			[]string{StatusCompleted, StatusRefunded, StatusPartiallyRefunded}, start, end).
		Group("method").
		Order("method").
		Scan(&byMethod).Error
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalCount:     totals.Count,
		TotalVolume:    totals.Volume,
		ProcessingFees: totals.ProcessingFees,
		PlatformFees:   totals.PlatformFees,
		RefundedVolume: totals.Refunded,
		ByMethod:       byMethod,
	}, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"log/slog"

	"github.com/rhonaldomaster/gshop-sub000/internal/modules/orders"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/providers"
)

// WebhookService turns at-least-once provider notifications into
// exactly-once ledger effects. The audit row and the status change
// commit in one transaction: the unique (provider, event_id) index is
// the dedupe, and a failed apply rolls the row back so redelivery can
// retry. A 200 ack therefore always means the effect is durable.
type WebhookService struct {
	db     *gorm.DB
	orders *orders.Repo
	agg    providers.AggregatorProvider
	logger *slog.Logger
	now    func() time.Time
}

func NewWebhookService(ledger *Ledger, ordersRepo *orders.Repo, agg providers.AggregatorProvider, logger *slog.Logger) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{db: ledger.DB(), orders: ordersRepo, agg: agg, logger: logger, now: time.Now}
}

// flexID decodes an id the provider sends either as a JSON number or a
// string ("evt_abc123" and 9001 both occur in the wild).
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

// AggregatorEvent is the notification body the aggregator POSTs. Only
// the data id matters; the authoritative state is re-fetched.
type AggregatorEvent struct {
	ID     flexID `json:"id"`
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID flexID `json:"id"`
	} `json:"data"`
}

// CardEvent is the card processor's notification body.
type CardEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"object"`
	} `json:"data"`
}

// HandleAggregator processes one verified aggregator notification. A
// non-nil error means nothing was committed and the provider should
// redeliver; nil means safe to ack.
func (w *WebhookService) HandleAggregator(ctx context.Context, raw []byte) error {
	var ev AggregatorEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownWebhookPayload, err)
	}
	if ev.Data.ID.String() == "" {
		return fmt.Errorf("%w: missing data.id", ErrUnknownWebhookPayload)
	}

	eventID := ev.ID.String()
	if eventID == "" {
		// Some notification modes omit a top-level id; the data id plus
		// action still identifies the delivery.
		eventID = ev.Data.ID.String() + ":" + ev.Action
	}

	if w.alreadyProcessed(ctx, "aggregator", eventID) {
		w.logger.Info("duplicate webhook ignored", "provider", "aggregator", "event_id", eventID)
		return nil
	}

	// The notification body is untrusted even when signed; the remote
	// payment is re-fetched and its state is what gets applied.
	var next string
	var remote providers.AggregatorPayment
	if ev.Type == "" || ev.Type == "payment" {
		var err error
		remote, err = w.agg.GetPayment(ctx, ev.Data.ID.String())
		if err != nil {
			return fmt.Errorf("fetch remote payment %s: %w", ev.Data.ID, err)
		}
		next = mapAggregatorStatus(remote.Status)
	}

	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := w.record(ctx, tx, "aggregator", eventID, ev.Type, raw)
		if err != nil || dup {
			return err
		}
		if ev.Type != "" && ev.Type != "payment" {
			w.logger.Info("ignoring non-payment webhook", "provider", "aggregator", "type", ev.Type)
			return nil
		}

		p, err := w.resolveAggregatorPayment(ctx, tx, remote)
		if err != nil {
			return err
		}
		return w.applyRemoteStatus(ctx, tx, p, next, map[string]any{
			"aggregator_payment_id": remote.ID,
		})
	})
}

// HandleCard processes one verified card processor notification.
func (w *WebhookService) HandleCard(ctx context.Context, raw []byte) error {
	var ev CardEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownWebhookPayload, err)
	}
	if ev.ID == "" || ev.Data.Object.ID == "" {
		return fmt.Errorf("%w: missing event or object id", ErrUnknownWebhookPayload)
	}

	if w.alreadyProcessed(ctx, "card", ev.ID) {
		w.logger.Info("duplicate webhook ignored", "provider", "card", "event_id", ev.ID)
		return nil
	}

	// A canceled intent is a failed settlement attempt; cancelled is
	// reserved for the expiry reaper.
	var next string
	var extra map[string]any
	switch ev.Type {
	case "payment_intent.succeeded":
		next = StatusCompleted
	case "payment_intent.payment_failed":
		next = StatusFailed
	case "payment_intent.canceled":
		next = StatusFailed
		extra = map[string]any{"failure_reason": "payment canceled at card processor"}
	}

	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := w.record(ctx, tx, "card", ev.ID, ev.Type, raw)
		if err != nil || dup {
			return err
		}
		if next == "" {
			w.logger.Info("ignoring unhandled card event", "type", ev.Type)
			return nil
		}

		var p Payment
		if err := tx.WithContext(ctx).First(&p, "card_intent_id = ?", ev.Data.Object.ID).Error; err != nil {
			return fmt.Errorf("no payment for intent %s: %w", ev.Data.Object.ID, err)
		}
		return w.applyRemoteStatus(ctx, tx, p, next, extra)
	})
}

// alreadyProcessed short-circuits redeliveries of committed events
// before any remote call is made.
func (w *WebhookService) alreadyProcessed(ctx context.Context, provider, eventID string) bool {
	var cnt int64
	if err := w.db.WithContext(ctx).Model(&ProviderEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Count(&cnt).Error; err != nil {
		return false
	}
	return cnt > 0
}

// record inserts the audit row inside the caller's transaction; dup
// means another delivery committed first and this one should ack.
func (w *WebhookService) record(ctx context.Context, tx *gorm.DB, provider, eventID, eventType string, raw []byte) (bool, error) {
	now := w.now()
	rec := ProviderEvent{
		ID:          uuid.NewString(),
		Provider:    provider,
		EventID:     eventID,
		EventType:   eventType,
		PayloadJSON: datatypes.JSON(raw),
		ReceivedAt:  now,
		ProcessedAt: &now,
	}
	if err := tx.WithContext(ctx).Create(&rec).Error; err != nil {
		if isDuplicate(err) {
			w.logger.Info("duplicate webhook ignored", "provider", provider, "event_id", eventID)
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// resolveAggregatorPayment finds the local payment: the preference was
// created with external_reference = payment id, with the stored
// aggregator payment id as fallback for late redeliveries.
func (w *WebhookService) resolveAggregatorPayment(ctx context.Context, tx *gorm.DB, remote providers.AggregatorPayment) (Payment, error) {
	var p Payment
	if remote.ExternalReference != "" {
		err := tx.WithContext(ctx).First(&p, "id = ?", remote.ExternalReference).Error
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, err
		}
	}
	err := tx.WithContext(ctx).First(&p, "aggregator_payment_id = ? OR preference_id = ?", remote.ID, remote.ID).Error
	if err != nil {
		return Payment{}, fmt.Errorf("no payment for aggregator id %s: %w", remote.ID, err)
	}
	return p, nil
}

// applyRemoteStatus applies a guarded transition inside the event's
// transaction. An out-of-order or replayed status (illegal or stale
// edge) is logged and swallowed: the ledger already holds a later truth
// and the event should still be acked.
func (w *WebhookService) applyRemoteStatus(ctx context.Context, tx *gorm.DB, p Payment, next string, extra map[string]any) error {
	if next == "" {
		w.logger.Info("webhook status has no ledger mapping", "payment_id", p.ID)
		return nil
	}
	if next == p.Status {
		return nil
	}

	now := w.now()
	set := map[string]any{}
	for k, v := range extra {
		set[k] = v
	}
	switch next {
	case StatusCompleted:
		set["processed_at"] = &now
		set["failure_reason"] = nil
	case StatusFailed:
		if _, ok := set["failure_reason"]; !ok {
			set["failure_reason"] = "payment rejected by provider"
		}
	case StatusRefunded:
		set["refunded_amount"] = p.Amount
		set["refunded_at"] = &now
	}

	err := transitionFrom(ctx, tx, p.ID, p.Status, next, set)
	if errors.Is(err, ErrIllegalTransition) || errors.Is(err, ErrStaleTransition) {
		w.logger.Warn("webhook transition superseded by newer state",
			"payment_id", p.ID, "from", p.Status, "to", next, "err", err)
		return nil
	}
	if err != nil {
		return err
	}

	w.logger.Info("webhook applied", "payment_id", p.ID, "from", p.Status, "to", next)

	if next == StatusCompleted {
		w.confirmOrder(ctx, tx, p.OrderID)
	}
	return nil
}

// confirmOrder cascades settlement to the order. Best effort: a
// non-pending order (already confirmed, or cancelled by ops) is left
// alone.
func (w *WebhookService) confirmOrder(ctx context.Context, tx *gorm.DB, orderID string) {
	res := tx.WithContext(ctx).Model(&orders.Order{}).
		Where("id = ? AND status = ?", orderID, orders.StatusPending).
		Updates(map[string]any{"status": orders.StatusConfirmed, "updated_at": w.now()})
	if res.Error != nil {
		w.logger.Error("order confirmation failed", "order_id", orderID, "err", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		w.logger.Info("order confirmed", "order_id", orderID)
	}
}

// mapAggregatorStatus translates the aggregator's vocabulary into the
// canonical one. Unknown statuses map to "" and are ignored.
func mapAggregatorStatus(remote string) string {
	switch remote {
	case "approved":
		return StatusCompleted
	case "rejected", "cancelled":
		return StatusFailed
	case "pending", "in_process", "in_mediation", "authorized":
		return StatusProcessing
	case "refunded", "charged_back":
		return StatusRefunded
	default:
		return ""
	}
}

// isDuplicate detects a unique-key violation across drivers: gorm's
// translated error for the sqlite test database, the raw mysql error
// number in production.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mErr *mysql.MySQLError
	return errors.As(err, &mErr) && mErr.Number == 1062
}

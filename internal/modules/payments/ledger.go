package payments

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the persistence contract for payments. It owns the §3
// invariants: callers cannot create a second active payment for an
// order, and every status change is a conditional update guarded by
// the expected current status.
type Ledger struct{ db *gorm.DB }

func NewLedger(db *gorm.DB) *Ledger { return &Ledger{db: db} }

// DB exposes the underlying handle for services that need to compose
// ledger writes with other rows in one transaction.
func (l *Ledger) DB() *gorm.DB { return l.db }

// Create persists a new payment, rejecting it when another active
// (pending/processing/requires_review) payment exists for the order.
func (l *Ledger) Create(ctx context.Context, p *Payment) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.WithContext(ctx).Model(&Payment{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND status IN ?", p.OrderID, activeStatuses).
			Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return ErrActivePaymentExists
		}
		return tx.WithContext(ctx).Create(p).Error
	})
}

func (l *Ledger) FindByID(ctx context.Context, id string) (Payment, error) {
	var p Payment
	err := l.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return p, err
}

// FindByExternalRef resolves a provider-side reference (card intent id,
// preference id, aggregator payment id, or chain tx hash) to a payment.
func (l *Ledger) FindByExternalRef(ctx context.Context, ref string) (Payment, error) {
	var p Payment
	err := l.db.WithContext(ctx).
		Where("card_intent_id = ? OR preference_id = ? OR aggregator_payment_id = ? OR chain_tx_hash = ?",
			ref, ref, ref, ref).
		First(&p).Error
	return p, err
}

func (l *Ledger) FindByUser(ctx context.Context, userID string) ([]Payment, error) {
	var out []Payment
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (l *Ledger) FindExpiredPending(ctx context.Context, now time.Time) ([]Payment, error) {
	var out []Payment
	err := l.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", StatusPending, now).
		Order("expires_at ASC").
		Find(&out).Error
	return out, err
}

// TransitionFrom performs the check-and-set status change: the UPDATE
// only matches while the persisted status still equals expected, so two
// racing writers cannot both win. Extra column changes ride along in
// updates. Leaving pending always clears expires_at.
func (l *Ledger) TransitionFrom(ctx context.Context, id, expected, next string, updates map[string]any) error {
	return transitionFrom(ctx, l.db, id, expected, next, updates)
}

// TransitionFromTx is TransitionFrom inside a caller-owned transaction.
func (l *Ledger) TransitionFromTx(ctx context.Context, tx *gorm.DB, id, expected, next string, updates map[string]any) error {
	return transitionFrom(ctx, tx, id, expected, next, updates)
}

func transitionFrom(ctx context.Context, db *gorm.DB, id, expected, next string, updates map[string]any) error {
	if !CanTransition(expected, next) {
		return ErrIllegalTransition
	}

	set := map[string]any{
		"status":     next,
		"updated_at": time.Now(),
	}
	if next != StatusPending {
		set["expires_at"] = nil
	}
	for k, v := range updates {
		set[k] = v
	}

	res := db.WithContext(ctx).Model(&Payment{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

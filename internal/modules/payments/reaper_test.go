package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rhonaldomaster/gshop-sub000/internal/modules/orders"
)

func TestSweepCancelsExpiredPaymentAndOrder(t *testing.T) {
	db := newTestDB(t)
	o := seedOrder(t, db, orders.StatusPending)

	past := time.Now().Add(-time.Minute)
	p := seedPayment(t, db, func(p *Payment) {
		p.OrderID = o.ID
		p.ExpiresAt = &past
	})

	reaper := NewReaper(NewLedger(db), orders.NewRepo(db), time.Minute, nil)

	res, err := reaper.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.PaymentsCancelled)
	require.Equal(t, 1, res.OrdersCancelled)

	got, err := NewLedger(db).FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
	require.NotNil(t, got.FailureReason)
	require.Equal(t, "payment expired", *got.FailureReason)

	var gotOrder orders.Order
	require.NoError(t, db.First(&gotOrder, "id = ?", o.ID).Error)
	require.Equal(t, orders.StatusCancelled, gotOrder.Status)
}

func TestSweepLeavesUnexpiredPayments(t *testing.T) {
	db := newTestDB(t)
	o := seedOrder(t, db, orders.StatusPending)

	future := time.Now().Add(time.Hour)
	p := seedPayment(t, db, func(p *Payment) {
		p.OrderID = o.ID
		p.ExpiresAt = &future
	})

	reaper := NewReaper(NewLedger(db), orders.NewRepo(db), time.Minute, nil)

	res, err := reaper.Sweep(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.PaymentsCancelled)

	got, err := NewLedger(db).FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
}

func TestSweepDoesNotDowngradeShippedOrder(t *testing.T) {
	db := newTestDB(t)
	o := seedOrder(t, db, orders.StatusShipped)

	past := time.Now().Add(-time.Minute)
	seedPayment(t, db, func(p *Payment) {
		p.OrderID = o.ID
		p.ExpiresAt = &past
	})

	reaper := NewReaper(NewLedger(db), orders.NewRepo(db), time.Minute, nil)

	res, err := reaper.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.PaymentsCancelled)
	require.Zero(t, res.OrdersCancelled)

	var gotOrder orders.Order
	require.NoError(t, db.First(&gotOrder, "id = ?", o.ID).Error)
	require.Equal(t, orders.StatusShipped, gotOrder.Status)
}

func TestSweepSkipsPaymentCompletedMeanwhile(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	o := seedOrder(t, db, orders.StatusPending)

	past := time.Now().Add(-time.Minute)
	p := seedPayment(t, db, func(p *Payment) {
		p.OrderID = o.ID
		p.ExpiresAt = &past
	})

	reaper := NewReaper(ledger, orders.NewRepo(db), time.Minute, nil)
	// A webhook wins the race just before the sweep's write.
	reaper.now = func() time.Time {
		_ = ledger.TransitionFrom(context.Background(), p.ID, StatusPending, StatusCompleted, nil)
		return time.Now()
	}

	res, err := reaper.Sweep(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.PaymentsCancelled)

	got, err := ledger.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
}

package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLedgerCreateRejectsSecondActivePayment(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	first := seedPayment(t, db, nil)

	dup := first
	dup.ID = "different-id"
	err := ledger.Create(ctx, &dup)
	require.ErrorIs(t, err, ErrActivePaymentExists)
}

func TestLedgerCreateAllowsNewPaymentAfterTerminal(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	first := seedPayment(t, db, func(p *Payment) { p.Status = StatusFailed })

	second := first
	second.ID = "retry-id"
	second.Status = StatusPending
	require.NoError(t, ledger.Create(ctx, &second))
}

func TestLedgerCreateCountsRequiresReviewAsActive(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	first := seedPayment(t, db, func(p *Payment) { p.Status = StatusRequiresReview })

	second := first
	second.ID = "retry-id"
	second.Status = StatusPending
	err := ledger.Create(ctx, &second)
	require.ErrorIs(t, err, ErrActivePaymentExists)
}

func TestTransitionFromRejectsIllegalEdge(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	p := seedPayment(t, db, func(p *Payment) { p.Status = StatusCompleted })

	err := ledger.TransitionFrom(ctx, p.ID, StatusCompleted, StatusPending, nil)
	require.ErrorIs(t, err, ErrIllegalTransition)

	got, err := ledger.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
}

func TestTransitionFromDetectsStaleStatus(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	p := seedPayment(t, db, nil)

	require.NoError(t, ledger.TransitionFrom(ctx, p.ID, StatusPending, StatusProcessing, nil))

	// Second writer still believes the payment is pending.
	err := ledger.TransitionFrom(ctx, p.ID, StatusPending, StatusCancelled, nil)
	require.ErrorIs(t, err, ErrStaleTransition)

	got, err := ledger.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, got.Status)
}

func TestTransitionFromClearsExpiryWhenLeavingPending(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	exp := time.Now().Add(30 * time.Minute)
	p := seedPayment(t, db, func(p *Payment) { p.ExpiresAt = &exp })

	require.NoError(t, ledger.TransitionFrom(ctx, p.ID, StatusPending, StatusProcessing, nil))

	got, err := ledger.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, got.ExpiresAt)
}

func TestTransitionFromMergesExtraUpdates(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	p := seedPayment(t, db, nil)

	require.NoError(t, ledger.TransitionFrom(ctx, p.ID, StatusPending, StatusFailed, map[string]any{
		"failure_reason": "card declined",
	}))

	got, err := ledger.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	require.Equal(t, "card declined", *got.FailureReason)
}

func TestFindByExternalRefMatchesAnyRail(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	hash := "0xabc123"
	p := seedPayment(t, db, func(p *Payment) {
		p.Method = MethodCrypto
		p.ChainTxHash = &hash
	})

	got, err := ledger.FindByExternalRef(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
}

func TestFindExpiredPendingOnlyReturnsExpired(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	expired := seedPayment(t, db, func(p *Payment) { p.ExpiresAt = &past })
	seedPayment(t, db, func(p *Payment) { p.ExpiresAt = &future })
	seedPayment(t, db, func(p *Payment) {
		p.Status = StatusCompleted
		p.ExpiresAt = &past
	})

	got, err := ledger.FindExpiredPending(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, expired.ID, got[0].ID)
}

func TestTimeColumnsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	exp := time.Now().Add(30 * time.Minute)
	p := seedPayment(t, db, func(p *Payment) { p.ExpiresAt = &exp })

	got, err := NewLedger(db).FindByID(context.Background(), p.ID)
	require.NoError(t, err)

	require.False(t, got.CreatedAt.IsZero())
	require.False(t, got.UpdatedAt.IsZero())
	require.NotNil(t, got.ExpiresAt)
	require.WithinDuration(t, exp, *got.ExpiresAt, time.Second)
}

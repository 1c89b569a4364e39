package payments

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/rhonaldomaster/gshop-sub000/internal/modules/orders"
)

// Reaper cancels pending payments whose expiry window has passed and
// releases their orders. Each row is swept independently so one bad row
// never stalls the rest.
type Reaper struct {
	ledger   *Ledger
	orders   *orders.Repo
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

type SweepResult struct {
	PaymentsCancelled int
	OrdersCancelled   int
}

func NewReaper(ledger *Ledger, ordersRepo *orders.Repo, interval time.Duration, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reaper{ledger: ledger, orders: ordersRepo, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("expiration reaper started", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("expiration reaper stopped")
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("reaper sweep failed", "err", err)
			}
		}
	}
}

// Sweep cancels every expired pending payment. The cancel is the same
// guarded transition used everywhere else, so a payment that completed
// between the query and the write is skipped, not clobbered.
func (r *Reaper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	expired, err := r.ledger.FindExpiredPending(ctx, r.now())
	if err != nil {
		return res, err
	}

	for _, p := range expired {
		err := r.ledger.TransitionFrom(ctx, p.ID, StatusPending, StatusCancelled, map[string]any{
			"failure_reason": "payment expired",
		})
		if errors.Is(err, ErrStaleTransition) {
			continue
		}
		if err != nil {
			r.logger.Error("failed to cancel expired payment", "payment_id", p.ID, "err", err)
			continue
		}
		res.PaymentsCancelled++
		r.logger.Info("expired payment cancelled", "payment_id", p.ID, "order_id", p.OrderID)

		changed, err := r.orders.Cancel(ctx, p.OrderID)
		if err != nil {
			r.logger.Error("failed to cancel order for expired payment", "order_id", p.OrderID, "err", err)
			continue
		}
		if changed {
			res.OrdersCancelled++
		}
	}

	if res.PaymentsCancelled > 0 {
		r.logger.Info("reaper sweep done", "payments_cancelled", res.PaymentsCancelled, "orders_cancelled", res.OrdersCancelled)
	}
	return res, nil
}

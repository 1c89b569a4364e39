package payments

import (
	"context"
	"time"

	"gorm.io/gorm"
	"log/slog"

	"github.com/rhonaldomaster/gshop-sub000/internal/modules/providers"
)

// Verifier settles crypto payments from chain state. The chain is the
// source of truth: only a mined receipt with status 1 completes the
// payment, and a reverted one fails it.
type Verifier struct {
	ledger *Ledger
	chain  providers.ChainReader
	logger *slog.Logger
	now    func() time.Time
}

func NewVerifier(ledger *Ledger, chain providers.ChainReader, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{ledger: ledger, chain: chain, logger: logger, now: time.Now}
}

// Verify checks the recorded transfer against the chain and settles both
// the crypto transaction and its parent payment in one database
// transaction. A transaction the node has not mined yet returns
// ErrTxNotMined with no state change, so the caller can poll again.
func (v *Verifier) Verify(ctx context.Context, cryptoTxID string) error {
	var ct CryptoTransaction
	if err := v.ledger.DB().WithContext(ctx).First(&ct, "id = ?", cryptoTxID).Error; err != nil {
		return err
	}
	if ct.Status != StatusProcessing {
		return nil
	}

	tx, err := v.chain.GetTransaction(ctx, ct.TxHash)
	if err != nil {
		return v.settleFailed(ctx, ct, "chain lookup failed: "+truncate(err.Error(), 200))
	}
	receipt, err := v.chain.GetTransactionReceipt(ctx, ct.TxHash)
	if err != nil {
		return v.settleFailed(ctx, ct, "chain lookup failed: "+truncate(err.Error(), 200))
	}
	if tx == nil || receipt == nil || tx.BlockNumber == nil {
		return ErrTxNotMined
	}

	confirmations, err := v.chain.Confirmations(ctx, tx, receipt)
	if err != nil {
		v.logger.Warn("confirmation count unavailable", "tx_hash", ct.TxHash, "err", err)
		confirmations = 0
	}
	gasFee := providers.GasFee(receipt)

	if receipt.Status != 1 {
		v.logger.Info("on-chain transaction reverted", "payment_id", ct.PaymentID, "tx_hash", ct.TxHash)
		return v.settle(ctx, ct, StatusFailed, receipt.BlockNumber, confirmations, gasFee, "transaction failed on-chain")
	}

	v.logger.Info("on-chain transaction confirmed",
		"payment_id", ct.PaymentID, "tx_hash", ct.TxHash,
		"block", receipt.BlockNumber, "confirmations", confirmations, "gas_fee", gasFee)
	return v.settle(ctx, ct, StatusCompleted, receipt.BlockNumber, confirmations, gasFee, "")
}

func (v *Verifier) settleFailed(ctx context.Context, ct CryptoTransaction, reason string) error {
	return v.settle(ctx, ct, StatusFailed, 0, 0, 0, reason)
}

func (v *Verifier) settle(ctx context.Context, ct CryptoTransaction, outcome string, block, confirmations uint64, gasFee float64, reason string) error {
	now := v.now()

	return v.ledger.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		childSet := map[string]any{
			"status":        outcome,
			"block_number":  block,
			"confirmations": confirmations,
			"gas_fee":       gasFee,
			"updated_at":    now,
		}
		if outcome == StatusCompleted {
			childSet["confirmed_at"] = &now
		}
		res := tx.WithContext(ctx).Model(&CryptoTransaction{}).
			Where("id = ? AND status = ?", ct.ID, StatusProcessing).
			Updates(childSet)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleTransition
		}

		parentSet := map[string]any{}
		if outcome == StatusCompleted {
			parentSet["processed_at"] = &now
			parentSet["failure_reason"] = nil
		} else if reason != "" {
			parentSet["failure_reason"] = truncate(reason, 250)
		}
		return v.ledger.TransitionFromTx(ctx, tx, ct.PaymentID, StatusProcessing, outcome, parentSet)
	})
}

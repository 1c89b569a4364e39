package payments

import (
	"context"
	"math/big"

	"github.com/rhonaldomaster/gshop-sub000/internal/modules/providers"
)

type fakeCard struct {
	intentResult providers.CardResult
	intentErr    error
	chargeResult providers.CardResult
	chargeErr    error
	refundErr    error

	chargeCalls []providers.CardChargeRequest
	refundCalls int
}

func (f *fakeCard) CreateIntent(_ context.Context, req providers.CardIntentRequest) (providers.CardResult, error) {
	return f.intentResult, f.intentErr
}

func (f *fakeCard) Charge(_ context.Context, req providers.CardChargeRequest) (providers.CardResult, error) {
	f.chargeCalls = append(f.chargeCalls, req)
	return f.chargeResult, f.chargeErr
}

func (f *fakeCard) Refund(_ context.Context, externalID string, amount float64) (providers.RefundResult, error) {
	f.refundCalls++
	if f.refundErr != nil {
		return providers.RefundResult{}, f.refundErr
	}
	return providers.RefundResult{ExternalID: "re_" + externalID}, nil
}

type fakeAggregator struct {
	preference    providers.Preference
	preferenceErr error
	payment       providers.AggregatorPayment
	paymentErr    error
	refundErr     error

	preferenceCalls []providers.PreferenceRequest
	refundCalls     int
}

func (f *fakeAggregator) CreatePreference(_ context.Context, req providers.PreferenceRequest) (providers.Preference, error) {
	f.preferenceCalls = append(f.preferenceCalls, req)
	return f.preference, f.preferenceErr
}

func (f *fakeAggregator) CreateDirectPayment(_ context.Context, req providers.DirectPaymentRequest) (providers.AggregatorPayment, error) {
	return f.payment, f.paymentErr
}

func (f *fakeAggregator) GetPayment(_ context.Context, id string) (providers.AggregatorPayment, error) {
	return f.payment, f.paymentErr
}

func (f *fakeAggregator) Refund(_ context.Context, id string, amount float64) (providers.RefundResult, error) {
	f.refundCalls++
	if f.refundErr != nil {
		return providers.RefundResult{}, f.refundErr
	}
	return providers.RefundResult{ExternalID: "re_" + id}, nil
}

type fakeChain struct {
	tx            *providers.ChainTransaction
	txErr         error
	receipt       *providers.ChainReceipt
	receiptErr    error
	confirmations uint64
}

func (f *fakeChain) GetTransaction(_ context.Context, hash string) (*providers.ChainTransaction, error) {
	return f.tx, f.txErr
}

func (f *fakeChain) GetTransactionReceipt(_ context.Context, hash string) (*providers.ChainReceipt, error) {
	return f.receipt, f.receiptErr
}

func (f *fakeChain) Confirmations(_ context.Context, tx *providers.ChainTransaction, receipt *providers.ChainReceipt) (uint64, error) {
	return f.confirmations, nil
}

func (f *fakeChain) GasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(30_000_000_000), nil
}

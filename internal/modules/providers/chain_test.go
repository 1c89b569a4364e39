package providers

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// rpcServer answers each JSON-RPC method with a canned result.
func rpcServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, ok := results[req.Method]
		if !ok {
			result = "null"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}))
}

func TestGetTransactionMined(t *testing.T) {
	srv := rpcServer(t, map[string]string{
		"eth_getTransactionByHash": `{"hash":"0xdead","from":"0xfrom","to":"0xto","value":"0xde0b6b3a7640000","gasPrice":"0x6fc23ac00","blockNumber":"0x3e8"}`,
	})
	defer srv.Close()

	r := NewRPCChainReader(srv.URL, time.Second)
	tx, err := r.GetTransaction(context.Background(), "0xdead")
	require.NoError(t, err)
	require.NotNil(t, tx)

	require.Equal(t, "0xdead", tx.Hash)
	require.NotNil(t, tx.BlockNumber)
	require.Equal(t, uint64(1000), *tx.BlockNumber)
	require.Equal(t, big.NewInt(1_000_000_000_000_000_000), tx.Value)
	require.Nil(t, tx.Confirmations)
}

func TestGetTransactionUnknownHashReturnsNil(t *testing.T) {
	srv := rpcServer(t, nil)
	defer srv.Close()

	r := NewRPCChainReader(srv.URL, time.Second)
	tx, err := r.GetTransaction(context.Background(), "0xunknown")
	require.NoError(t, err)
	require.Nil(t, tx)
}

func TestGetTransactionReceipt(t *testing.T) {
	srv := rpcServer(t, map[string]string{
		"eth_getTransactionReceipt": `{"transactionHash":"0xdead","blockNumber":"0x3e8","status":"0x1","gasUsed":"0x5208","effectiveGasPrice":"0x6fc23ac00"}`,
	})
	defer srv.Close()

	r := NewRPCChainReader(srv.URL, time.Second)
	receipt, err := r.GetTransactionReceipt(context.Background(), "0xdead")
	require.NoError(t, err)
	require.NotNil(t, receipt)

	require.Equal(t, uint64(1000), receipt.BlockNumber)
	require.Equal(t, uint64(1), receipt.Status)
	require.Equal(t, big.NewInt(21000), receipt.GasUsed)
}

func TestConfirmationsFromHead(t *testing.T) {
	srv := rpcServer(t, map[string]string{
		"eth_blockNumber": `"0x3f4"`, // head = 1012
	})
	defer srv.Close()

	r := NewRPCChainReader(srv.URL, time.Second)
	receipt := &ChainReceipt{BlockNumber: 1000}

	n, err := r.Confirmations(context.Background(), &ChainTransaction{}, receipt)
	require.NoError(t, err)
	require.Equal(t, uint64(12), n)
}

func TestConfirmationsPrefersGatewayField(t *testing.T) {
	// No server needed: a gateway-provided count short-circuits the head
	// lookup entirely.
	r := NewRPCChainReader("http://127.0.0.1:0", time.Second)

	c := uint64(7)
	n, err := r.Confirmations(context.Background(), &ChainTransaction{Confirmations: &c}, &ChainReceipt{BlockNumber: 1000})
	require.NoError(t, err)
	require.Equal(t, uint64(7), n)
}

func TestCallSurfacesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"header not found"}}`))
	}))
	defer srv.Close()

	r := NewRPCChainReader(srv.URL, time.Second)
	_, err := r.GetTransaction(context.Background(), "0xdead")
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "chain", perr.Provider)
	require.Contains(t, perr.Message, "header not found")
}

func TestGasPrice(t *testing.T) {
	srv := rpcServer(t, map[string]string{
		"eth_gasPrice": `"0x6fc23ac00"`, // 30 gwei
	})
	defer srv.Close()

	r := NewRPCChainReader(srv.URL, time.Second)
	price, err := r.GasPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(30_000_000_000), price)
}

func TestGasFee(t *testing.T) {
	receipt := &ChainReceipt{
		GasUsed:           big.NewInt(21000),
		EffectiveGasPrice: big.NewInt(30_000_000_000),
	}
	require.InDelta(t, 0.00063, GasFee(receipt), 1e-9)

	require.Zero(t, GasFee(nil))
	require.Zero(t, GasFee(&ChainReceipt{}))
}

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"
)

// ChainTransaction is a mined (or still-pending) transaction as seen by
// the RPC node. A nil BlockNumber means not yet mined.
type ChainTransaction struct {
	Hash        string
	From        string
	To          string
	Value       *big.Int
	GasPrice    *big.Int
	BlockNumber *uint64

	// Some RPC gateways include a confirmation count on the transaction
	// itself; when present the reader uses it instead of computing one.
	Confirmations *uint64
}

// ChainReceipt is the execution result. Status 1 = success, 0 = revert.
type ChainReceipt struct {
	TxHash            string
	BlockNumber       uint64
	Status            uint64
	GasUsed           *big.Int
	EffectiveGasPrice *big.Int
}

// ChainReader is the read-only view of the chain the verifier needs.
// Confirmation-count normalization lives entirely here.
type ChainReader interface {
	GetTransaction(ctx context.Context, hash string) (*ChainTransaction, error)
	GetTransactionReceipt(ctx context.Context, hash string) (*ChainReceipt, error)
	Confirmations(ctx context.Context, tx *ChainTransaction, receipt *ChainReceipt) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
}

type RPCChainReader struct {
	url    string
	client *http.Client
}

func NewRPCChainReader(url string, timeout time.Duration) *RPCChainReader {
	return &RPCChainReader{url: url, client: &http.Client{Timeout: timeout}}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type rpcTransaction struct {
	Hash          string  `json:"hash"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Value         string  `json:"value"`
	GasPrice      string  `json:"gasPrice"`
	BlockNumber   *string `json:"blockNumber"`
	Confirmations *string `json:"confirmations"`
}

type rpcReceipt struct {
	TransactionHash   string `json:"transactionHash"`
	BlockNumber       string `json:"blockNumber"`
	Status            string `json:"status"`
	GasUsed           string `json:"gasUsed"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
}

// GetTransaction returns (nil, nil) when the node does not know the
// hash yet; callers treat that as not-yet-mined, not as a failure.
func (r *RPCChainReader) GetTransaction(ctx context.Context, hash string) (*ChainTransaction, error) {
	var raw rpcTransaction
	found, err := r.call(ctx, "eth_getTransactionByHash", []any{hash}, &raw)
	if err != nil || !found {
		return nil, err
	}

	tx := &ChainTransaction{
		Hash:     raw.Hash,
		From:     raw.From,
		To:       raw.To,
		Value:    parseHexBig(raw.Value),
		GasPrice: parseHexBig(raw.GasPrice),
	}
	if raw.BlockNumber != nil {
		n := parseHexUint(*raw.BlockNumber)
		tx.BlockNumber = &n
	}
	if raw.Confirmations != nil {
		n := parseHexUint(*raw.Confirmations)
		tx.Confirmations = &n
	}
	return tx, nil
}

func (r *RPCChainReader) GetTransactionReceipt(ctx context.Context, hash string) (*ChainReceipt, error) {
	var raw rpcReceipt
	found, err := r.call(ctx, "eth_getTransactionReceipt", []any{hash}, &raw)
	if err != nil || !found {
		return nil, err
	}

	return &ChainReceipt{
		TxHash:            raw.TransactionHash,
		BlockNumber:       parseHexUint(raw.BlockNumber),
		Status:            parseHexUint(raw.Status),
		GasUsed:           parseHexBig(raw.GasUsed),
		EffectiveGasPrice: parseHexBig(raw.EffectiveGasPrice),
	}, nil
}

// Confirmations returns the transaction's own count when the gateway
// provided one, otherwise head minus the receipt's block number.
func (r *RPCChainReader) Confirmations(ctx context.Context, tx *ChainTransaction, receipt *ChainReceipt) (uint64, error) {
	if tx != nil && tx.Confirmations != nil {
		return *tx.Confirmations, nil
	}
	if receipt == nil {
		return 0, nil
	}

	var headHex string
	if _, err := r.call(ctx, "eth_blockNumber", []any{}, &headHex); err != nil {
		return 0, err
	}
	head := parseHexUint(headHex)
	if head < receipt.BlockNumber {
		return 0, nil
	}
	return head - receipt.BlockNumber, nil
}

// GasPrice returns the node's current gas price suggestion in wei.
func (r *RPCChainReader) GasPrice(ctx context.Context) (*big.Int, error) {
	var priceHex string
	found, err := r.call(ctx, "eth_gasPrice", []any{}, &priceHex)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &Error{Provider: "chain", Message: "node returned no gas price"}
	}
	return parseHexBig(priceHex), nil
}

// GasFee computes gasUsed * gasPrice in native units (18 decimals).
func GasFee(receipt *ChainReceipt) float64 {
	if receipt == nil || receipt.GasUsed == nil || receipt.EffectiveGasPrice == nil {
		return 0
	}
	wei := new(big.Int).Mul(receipt.GasUsed, receipt.EffectiveGasPrice)
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18)).Float64()
	return f
}

// call returns found=false when the node answered with a null result.
func (r *RPCChainReader) call(ctx context.Context, method string, params []any, out any) (bool, error) {
	buf, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return false, &Error{Provider: "chain", Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(buf))
	if err != nil {
		return false, &Error{Provider: "chain", Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return false, &Error{Provider: "chain", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, &Error{Provider: "chain", Status: resp.StatusCode, Message: fmt.Sprintf("rpc request failed with status %d", resp.StatusCode)}
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return false, &Error{Provider: "chain", Message: "malformed rpc response: " + err.Error()}
	}
	if rpcResp.Error != nil {
		return false, &Error{Provider: "chain", Status: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return false, &Error{Provider: "chain", Message: "malformed rpc result: " + err.Error()}
	}
	return true, nil
}

func parseHexUint(s string) uint64 {
	s = strings.TrimPrefix(s, "0x")
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return 0
	}
	return n.Uint64()
}

func parseHexBig(s string) *big.Int {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0)
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return big.NewInt(0)
	}
	return n
}

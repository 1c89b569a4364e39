package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Aggregator provider statuses (remote vocabulary): approved, pending,
// in_process, rejected, cancelled, refunded, charged_back.

type AggregatorClient struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func NewAggregatorClient(baseURL, accessToken string, timeout time.Duration) *AggregatorClient {
	return &AggregatorClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
	}
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
	Message   string `json:"message"`
}

func (c *AggregatorClient) CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error) {
	body := map[string]any{
		"items": req.Items,
		"back_urls": map[string]string{
			"success": req.SuccessURL,
			"failure": req.FailureURL,
			"pending": req.PendingURL,
		},
		"auto_return":        "approved",
		"external_reference": req.ExternalReference,
		"notification_url":   req.NotificationURL,
	}

	var out preferenceResponse
	if err := c.post(ctx, "/checkout/preferences", body, "", &out, &out.Message); err != nil {
		return Preference{}, err
	}
	if out.ID == "" {
		return Preference{}, &Error{Provider: "aggregator", Message: "preference response missing id"}
	}
	return Preference{ID: out.ID, InitPoint: out.InitPoint}, nil
}

type aggregatorPaymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	Message           string      `json:"message"`
}

func (r aggregatorPaymentResponse) toPayment() AggregatorPayment {
	return AggregatorPayment{
		ID:                r.ID.String(),
		Status:            r.Status,
		StatusDetail:      r.StatusDetail,
		ExternalReference: r.ExternalReference,
		TransactionAmount: r.TransactionAmount,
	}
}

func (c *AggregatorClient) CreateDirectPayment(ctx context.Context, req DirectPaymentRequest) (AggregatorPayment, error) {
	installments := req.Installments
	if installments < 1 {
		installments = 1
	}
	body := map[string]any{
		"transaction_amount": req.Amount,
		"payment_method_id":  req.PaymentMethodID,
		"payer":              map[string]string{"email": req.PayerEmail},
		"installments":       installments,
		"token":              req.Token,
	}

	var out aggregatorPaymentResponse
	if err := c.post(ctx, "/v1/payments", body, req.IdempotencyKey, &out, &out.Message); err != nil {
		return AggregatorPayment{}, err
	}
	return out.toPayment(), nil
}

func (c *AggregatorClient) GetPayment(ctx context.Context, id string) (AggregatorPayment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+id, nil)
	if err != nil {
		return AggregatorPayment{}, &Error{Provider: "aggregator", Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return AggregatorPayment{}, &Error{Provider: "aggregator", Message: err.Error()}
	}
	defer resp.Body.Close()

	var out aggregatorPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return AggregatorPayment{}, &Error{Provider: "aggregator", Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	if resp.StatusCode >= 400 {
		return AggregatorPayment{}, &Error{Provider: "aggregator", Status: resp.StatusCode, Message: remoteMessage(out.Message, resp.StatusCode)}
	}
	return out.toPayment(), nil
}

func (c *AggregatorClient) Refund(ctx context.Context, id string, amount float64) (RefundResult, error) {
	body := map[string]any{}
	if amount > 0 {
		body["amount"] = amount
	}

	var out struct {
		ID      json.Number `json:"id"`
		Message string      `json:"message"`
	}
	if err := c.post(ctx, "/v1/payments/"+id+"/refunds", body, "", &out, &out.Message); err != nil {
		return RefundResult{}, err
	}
	return RefundResult{ExternalID: out.ID.String()}, nil
}

// post decodes into out; remoteMsg points at out's message field so the
// remote error text survives into the normalized Error.
func (c *AggregatorClient) post(ctx context.Context, path string, body any, idempotencyKey string, out any, remoteMsg *string) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return &Error{Provider: "aggregator", Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return &Error{Provider: "aggregator", Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Provider: "aggregator", Message: err.Error()}
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Provider: "aggregator", Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}

	if resp.StatusCode >= 400 {
		msg := ""
		if remoteMsg != nil {
			msg = *remoteMsg
		}
		return &Error{Provider: "aggregator", Status: resp.StatusCode, Message: remoteMessage(msg, resp.StatusCode)}
	}
	return nil
}

func remoteMessage(msg string, status int) string {
	if msg != "" {
		return msg
	}
	return fmt.Sprintf("request failed with status %d", status)
}

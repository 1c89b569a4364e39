package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CardClient talks to the card processor's intents API. Amounts are
// sent in minor units the way the processor expects.
type CardClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewCardClient(baseURL, secretKey string, timeout time.Duration) *CardClient {
	return &CardClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type cardIntentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *CardClient) CreateIntent(ctx context.Context, req CardIntentRequest) (CardResult, error) {
	form := url.Values{
		"amount":   {strconv.FormatInt(int64(req.Amount*100+0.5), 10)},
		"currency": {strings.ToLower(req.Currency)},
	}
	if req.Description != "" {
		form.Set("description", req.Description)
	}

	var out cardIntentResponse
	if err := c.post(ctx, "/v1/payment_intents", form, req.IdempotencyKey, &out); err != nil {
		return CardResult{}, err
	}
	return CardResult{Status: normalizeCardStatus(out.Status), ExternalID: out.ID}, nil
}

func (c *CardClient) Charge(ctx context.Context, req CardChargeRequest) (CardResult, error) {
	form := url.Values{
		"amount":              {strconv.FormatInt(int64(req.Amount*100+0.5), 10)},
		"currency":            {strings.ToLower(req.Currency)},
		"payment_method":      {req.MethodToken},
		"confirmation_method": {"manual"},
		"confirm":             {"true"},
	}
	if req.ReturnURL != "" {
		form.Set("return_url", req.ReturnURL)
	}

	path := "/v1/payment_intents"
	if req.IntentID != "" {
		path = "/v1/payment_intents/" + req.IntentID + "/confirm"
	}

	var out cardIntentResponse
	if err := c.post(ctx, path, form, req.IdempotencyKey, &out); err != nil {
		return CardResult{}, err
	}
	return CardResult{Status: normalizeCardStatus(out.Status), ExternalID: out.ID}, nil
}

func (c *CardClient) Refund(ctx context.Context, externalID string, amount float64) (RefundResult, error) {
	form := url.Values{
		"payment_intent": {externalID},
	}
	if amount > 0 {
		form.Set("amount", strconv.FormatInt(int64(amount*100+0.5), 10))
	}

	var out cardIntentResponse
	if err := c.post(ctx, "/v1/refunds", form, "", &out); err != nil {
		return RefundResult{}, err
	}
	return RefundResult{ExternalID: out.ID}, nil
}

func (c *CardClient) post(ctx context.Context, path string, form url.Values, idempotencyKey string, out *cardIntentResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Provider: "card", Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if idempotencyKey != "" {
		// The processor guarantees at-most-once creation per key.
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Provider: "card", Message: err.Error()}
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Provider: "card", Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}

	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("request failed with status %d", resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return &Error{Provider: "card", Status: resp.StatusCode, Message: msg}
	}
	return nil
}

func normalizeCardStatus(s string) string {
	switch s {
	case "succeeded":
		return CardSucceeded
	case "requires_action", "requires_confirmation", "requires_payment_method":
		return CardRequiresAction
	default:
		return CardFailed
	}
}

package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreatePreferenceSendsCheckoutShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checkout/preferences", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"id":"pref_1","init_point":"https://pay.example/pref_1"}`))
	}))
	defer srv.Close()

	c := NewAggregatorClient(srv.URL, "tok-123", time.Second)
	pref, err := c.CreatePreference(context.Background(), PreferenceRequest{
		Items:             []PreferenceItem{{ID: "order-1", Title: "Order", Quantity: 1, UnitPrice: 150}},
		SuccessURL:        "https://shop.example/ok",
		ExternalReference: "payment-abc",
		NotificationURL:   "https://shop.example/webhooks/aggregator",
	})
	require.NoError(t, err)

	require.Equal(t, "pref_1", pref.ID)
	require.Equal(t, "https://pay.example/pref_1", pref.InitPoint)

	require.Equal(t, "payment-abc", got["external_reference"])
	require.Equal(t, "approved", got["auto_return"])
	require.Equal(t, "https://shop.example/webhooks/aggregator", got["notification_url"])
}

func TestCreatePreferenceRemoteErrorIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid items"}`))
	}))
	defer srv.Close()

	c := NewAggregatorClient(srv.URL, "tok-123", time.Second)
	_, err := c.CreatePreference(context.Background(), PreferenceRequest{})
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "aggregator", perr.Provider)
	require.Equal(t, http.StatusBadRequest, perr.Status)
	require.Equal(t, "invalid items", perr.Message)
}

func TestGetPaymentDecodesNumericID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/9001", r.URL.Path)
		// The remote id is a JSON number, not a string.
		_, _ = w.Write([]byte(`{"id":9001,"status":"approved","status_detail":"accredited","external_reference":"payment-abc","transaction_amount":150.5}`))
	}))
	defer srv.Close()

	c := NewAggregatorClient(srv.URL, "tok-123", time.Second)
	p, err := c.GetPayment(context.Background(), "9001")
	require.NoError(t, err)

	require.Equal(t, "9001", p.ID)
	require.Equal(t, "approved", p.Status)
	require.Equal(t, "payment-abc", p.ExternalReference)
	require.InDelta(t, 150.5, p.TransactionAmount, 0.001)
}

func TestGetPaymentRemoteErrorIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Payment not found"}`))
	}))
	defer srv.Close()

	c := NewAggregatorClient(srv.URL, "tok-123", time.Second)
	_, err := c.GetPayment(context.Background(), "404404")
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "aggregator", perr.Provider)
	require.Equal(t, http.StatusNotFound, perr.Status)
	require.Equal(t, "Payment not found", perr.Message)
}

func TestRefundSendsIdempotentAmount(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/9001/refunds", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":555}`))
	}))
	defer srv.Close()

	c := NewAggregatorClient(srv.URL, "tok-123", time.Second)
	res, err := c.Refund(context.Background(), "9001", 40)
	require.NoError(t, err)

	require.Equal(t, "555", res.ExternalID)
	require.InDelta(t, 40.0, got["amount"].(float64), 0.001)
}

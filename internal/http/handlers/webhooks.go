package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"log/slog"

	"github.com/rhonaldomaster/gshop-sub000/internal/modules/payments"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/providers"
)

type WebhookHandler struct {
	Logger       *slog.Logger
	AggVerifier  *providers.WebhookVerifier
	CardVerifier *providers.WebhookVerifier
	Svc          *payments.WebhookService
}

func NewWebhookHandler(logger *slog.Logger, aggVerifier, cardVerifier *providers.WebhookVerifier, svc *payments.WebhookService) *WebhookHandler {
	return &WebhookHandler{Logger: logger, AggVerifier: aggVerifier, CardVerifier: cardVerifier, Svc: svc}
}

// POST /webhooks/aggregator?data.id=<id>
// Acks with 200 only once the effect is durable; 500 asks the provider
// to redeliver.
func (h *WebhookHandler) Aggregator(c *gin.Context) {
	dataID := c.Query("data.id")
	if dataID == "" {
		dataID = c.Query("id")
	}

	err := h.AggVerifier.Verify(c.GetHeader("x-signature"), c.GetHeader("x-request-id"), dataID)
	if err != nil {
		h.Logger.Warn("aggregator webhook rejected", "err", err, "data_id", dataID)
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid signature"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	if err := h.Svc.HandleAggregator(c.Request.Context(), body); err != nil {
		// A payload that can never parse gets 400 so the provider stops
		// redelivering it; transient failures get 500 and a retry.
		if errors.Is(err, payments.ErrUnknownWebhookPayload) {
			h.Logger.Warn("aggregator webhook unparseable", "data_id", dataID, "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unrecognized payload"})
			return
		}
		h.Logger.Error("aggregator webhook apply failed", "data_id", dataID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /webhooks/card?data.id=<intent id>
// Same signature scheme as the aggregator, keyed with the card secret.
func (h *WebhookHandler) Card(c *gin.Context) {
	dataID := c.Query("data.id")

	err := h.CardVerifier.Verify(c.GetHeader("x-signature"), c.GetHeader("x-request-id"), dataID)
	if err != nil {
		h.Logger.Warn("card webhook rejected", "err", err, "data_id", dataID)
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid signature"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	if err := h.Svc.HandleCard(c.Request.Context(), body); err != nil {
		if errors.Is(err, payments.ErrUnknownWebhookPayload) {
			h.Logger.Warn("card webhook unparseable", "data_id", dataID, "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unrecognized payload"})
			return
		}
		h.Logger.Error("card webhook apply failed", "data_id", dataID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

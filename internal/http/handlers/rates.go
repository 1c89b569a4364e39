package handlers

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rhonaldomaster/gshop-sub000/internal/http/middleware"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/currency"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/providers"
	"github.com/rhonaldomaster/gshop-sub000/internal/shared/apperr"
)

type RateHandler struct {
	Svc   *currency.Service
	Chain providers.ChainReader
}

func NewRateHandler(svc *currency.Service, chain providers.ChainReader) *RateHandler {
	return &RateHandler{Svc: svc, Chain: chain}
}

// GET /api/rates/convert?amount=100000&from=COP&to=USD
func (h *RateHandler) Convert(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		middleware.Fail(c, apperr.InvalidErr("amount must be a positive number.", nil))
		return
	}
	from, to := c.DefaultQuery("from", "COP"), c.DefaultQuery("to", "USD")

	converted, rate, err := h.Svc.Convert(c.Request.Context(), amount, from, to)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"amount":    amount,
		"from":      from,
		"to":        to,
		"rate":      rate,
		"converted": converted,
	})
}

// GET /api/gas-price
// Current node gas price suggestion, in wei and gwei.
func (h *RateHandler) GasPrice(c *gin.Context) {
	price, err := h.Chain.GasPrice(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(price), big.NewFloat(1e9)).Float64()
	c.JSON(http.StatusOK, gin.H{
		"wei":  price.String(),
		"gwei": gwei,
	})
}

// GET /api/rates/cache
func (h *RateHandler) CacheStats(c *gin.Context) {
	stats, err := h.Svc.CacheStats(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": stats})
}

// DELETE /api/rates/cache
func (h *RateHandler) ClearCache(c *gin.Context) {
	if err := h.Svc.ClearCache(c.Request.Context()); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

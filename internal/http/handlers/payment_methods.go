package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rhonaldomaster/gshop-sub000/internal/http/middleware"
	"github.com/rhonaldomaster/gshop-sub000/internal/http/validation"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/payments"
	"github.com/rhonaldomaster/gshop-sub000/internal/shared/apperr"
)

type PaymentMethodHandler struct {
	Store *payments.MethodStore
}

func NewPaymentMethodHandler(store *payments.MethodStore) *PaymentMethodHandler {
	return &PaymentMethodHandler{Store: store}
}

type addMethodRequest struct {
	Type           string `json:"type" binding:"required,oneof=card aggregator crypto wallet_credit"`
	LastFourDigits string `json:"last_four_digits" binding:"omitempty,len=4"`
	Brand          string `json:"brand"`
	ChainAddress   string `json:"chain_address"`
	ExpiryMonth    int    `json:"expiry_month" binding:"omitempty,min=1,max=12"`
	ExpiryYear     int    `json:"expiry_year"`
	SetDefault     bool   `json:"set_default"`
}

// POST /api/payment-methods
func (h *PaymentMethodHandler) Add(c *gin.Context) {
	var req addMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	pm, err := h.Store.Add(c.Request.Context(), payments.AddMethodInput{
		UserID:         middleware.GetUserID(c),
		Type:           req.Type,
		LastFourDigits: req.LastFourDigits,
		Brand:          req.Brand,
		ChainAddress:   req.ChainAddress,
		ExpiryMonth:    req.ExpiryMonth,
		ExpiryYear:     req.ExpiryYear,
		SetDefault:     req.SetDefault,
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusCreated, pm)
}

// GET /api/payment-methods
func (h *PaymentMethodHandler) List(c *gin.Context) {
	list, err := h.Store.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_methods": list})
}

// PUT /api/payment-methods/:id/default
func (h *PaymentMethodHandler) SetDefault(c *gin.Context) {
	err := h.Store.SetDefault(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		middleware.Fail(c, apperr.NotFoundErr("Payment method not found."))
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DELETE /api/payment-methods/:id
func (h *PaymentMethodHandler) Remove(c *gin.Context) {
	err := h.Store.Remove(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		middleware.Fail(c, apperr.NotFoundErr("Payment method not found."))
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

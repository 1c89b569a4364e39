package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rhonaldomaster/gshop-sub000/internal/http/middleware"
	"github.com/rhonaldomaster/gshop-sub000/internal/http/validation"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/payments"
	"github.com/rhonaldomaster/gshop-sub000/internal/shared/apperr"
)

type PaymentHandler struct {
	Svc *payments.Service
}

func NewPaymentHandler(svc *payments.Service) *PaymentHandler {
	return &PaymentHandler{Svc: svc}
}

type createPaymentRequest struct {
	OrderID     string  `json:"order_id" binding:"required"`
	Method      string  `json:"method" binding:"required,oneof=card aggregator crypto wallet_credit"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"required,len=3"`
	Description string  `json:"description"`
	PayerEmail  string  `json:"payer_email" binding:"omitempty,email"`
}

// POST /api/payments
func (h *PaymentHandler) Create(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	p, err := h.Svc.CreatePayment(c.Request.Context(), payments.CreatePaymentInput{
		OrderID:     req.OrderID,
		UserID:      middleware.GetUserID(c),
		Method:      req.Method,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		PayerEmail:  req.PayerEmail,
	})
	if err != nil {
		middleware.Fail(c, mapPaymentErr(err))
		return
	}

	c.JSON(http.StatusCreated, p)
}

// GET /api/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	p, err := h.Svc.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, mapPaymentErr(err))
		return
	}
	if p.UserID != middleware.GetUserID(c) {
		middleware.Fail(c, apperr.NotFoundErr("Payment not found."))
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /api/payments
func (h *PaymentHandler) ListMine(c *gin.Context) {
	list, err := h.Svc.GetUserPayments(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": list})
}

type processCardRequest struct {
	MethodToken string `json:"method_token" binding:"required"`
}

// POST /api/payments/:id/card
func (h *PaymentHandler) ProcessCard(c *gin.Context) {
	var req processCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	p, err := h.Svc.ProcessCardPayment(c.Request.Context(), c.Param("id"), req.MethodToken)
	if err != nil {
		middleware.Fail(c, mapPaymentErr(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

type processCryptoRequest struct {
	TxHash      string  `json:"tx_hash" binding:"required"`
	FromAddress string  `json:"from_address" binding:"required"`
	ToAddress   string  `json:"to_address" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
}

// POST /api/payments/:id/crypto
func (h *PaymentHandler) ProcessCrypto(c *gin.Context) {
	var req processCryptoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	p, err := h.Svc.ProcessCryptoPayment(c.Request.Context(), c.Param("id"), payments.ProcessCryptoInput{
		TxHash:      req.TxHash,
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
		Amount:      req.Amount,
	})
	if err != nil {
		middleware.Fail(c, mapPaymentErr(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

// POST /api/payments/:id/crypto/verify
// Re-polls the chain for a transfer that was not mined at submit time.
func (h *PaymentHandler) VerifyCrypto(c *gin.Context) {
	p, err := h.Svc.ReverifyCrypto(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Fail(c, mapPaymentErr(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

type refundRequest struct {
	Amount float64 `json:"amount" binding:"omitempty,gt=0"`
}

// POST /api/payments/:id/refund
// Omitting amount refunds the full remaining balance.
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	p, err := h.Svc.Refund(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		middleware.Fail(c, mapPaymentErr(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

type resolveReviewRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=completed failed cancelled"`
	Note    string `json:"note"`
}

// POST /api/payments/:id/review
func (h *PaymentHandler) ResolveReview(c *gin.Context) {
	var req resolveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	p, err := h.Svc.ResolveReview(c.Request.Context(), c.Param("id"), req.Outcome, req.Note)
	if err != nil {
		middleware.Fail(c, mapPaymentErr(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /api/payments/stats?start=RFC3339&end=RFC3339
// Defaults to the last 30 days.
func (h *PaymentHandler) Stats(c *gin.Context) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)

	if s := c.Query("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			middleware.Fail(c, apperr.InvalidErr("start must be RFC3339.", nil))
			return
		}
		start = t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			middleware.Fail(c, apperr.InvalidErr("end must be RFC3339.", nil))
			return
		}
		end = t
	}

	stats, err := h.Svc.PaymentStats(c.Request.Context(), start, end)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rhonaldomaster/gshop-sub000/internal/http/middleware"
	"github.com/rhonaldomaster/gshop-sub000/internal/http/validation"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/invoices"
	"github.com/rhonaldomaster/gshop-sub000/internal/shared/apperr"
)

type InvoiceHandler struct {
	Svc *invoices.Service
}

func NewInvoiceHandler(svc *invoices.Service) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc}
}

type createInvoiceRequest struct {
	OrderID     string              `json:"order_id" binding:"required"`
	BuyerID     string              `json:"buyer_id" binding:"required"`
	PaymentID   string              `json:"payment_id"`
	Subtotal    float64             `json:"subtotal" binding:"required,gt=0"`
	Tax         float64             `json:"tax" binding:"omitempty,min=0"`
	Shipping    float64             `json:"shipping" binding:"omitempty,min=0"`
	Currency    string              `json:"currency" binding:"required,len=3"`
	Items       []invoices.LineItem `json:"items" binding:"required,min=1"`
	BillingInfo map[string]string   `json:"billing_info"`
}

// POST /api/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	inv, err := h.Svc.Create(c.Request.Context(), invoices.CreateInput{
		OrderID:     req.OrderID,
		SellerID:    middleware.GetUserID(c),
		BuyerID:     req.BuyerID,
		PaymentID:   req.PaymentID,
		Subtotal:    req.Subtotal,
		Tax:         req.Tax,
		Shipping:    req.Shipping,
		Currency:    req.Currency,
		Items:       req.Items,
		BillingInfo: req.BillingInfo,
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// GET /api/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	inv, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		middleware.Fail(c, apperr.NotFoundErr("Invoice not found."))
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	// Visible to both parties of the invoice.
	if uid := middleware.GetUserID(c); inv.SellerID != uid && inv.BuyerID != uid {
		middleware.Fail(c, apperr.NotFoundErr("Invoice not found."))
		return
	}
	c.JSON(http.StatusOK, inv)
}

// GET /api/invoices
func (h *InvoiceHandler) ListMine(c *gin.Context) {
	list, err := h.Svc.ListBySeller(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": list})
}

type updateInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=sent paid overdue cancelled"`
}

// PUT /api/invoices/:id/status
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	var req updateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	inv, err := h.Svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if errors.Is(err, invoices.ErrIllegalStatus) {
		middleware.Fail(c, apperr.ConflictErr("The invoice is not in a state that allows this change."))
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, inv)
}

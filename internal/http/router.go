package http

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"log/slog"

	"github.com/rhonaldomaster/gshop-sub000/internal/config"
	"github.com/rhonaldomaster/gshop-sub000/internal/http/handlers"
	"github.com/rhonaldomaster/gshop-sub000/internal/http/middleware"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/currency"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/invoices"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/payments"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/providers"
)

// Deps carries everything the router wires into handlers. Built once in
// main, swapped with fakes in tests.
type Deps struct {
	Logger *slog.Logger
	DB     *gorm.DB
	Cfg    config.Config

	PaymentSvc *payments.Service
	WebhookSvc *payments.WebhookService
	Methods    *payments.MethodStore
	Invoices   *invoices.Service
	Rates      *currency.Service
	Chain      providers.ChainReader

	AggVerifier  *providers.WebhookVerifier
	CardVerifier *providers.WebhookVerifier
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.ErrorHandler(d.Logger),
	)

	health := handlers.NewHealthHandler(d.DB)
	r.GET("/healthz", health.Check)

	wh := handlers.NewWebhookHandler(d.Logger, d.AggVerifier, d.CardVerifier, d.WebhookSvc)
	r.POST("/webhooks/aggregator", wh.Aggregator)
	r.POST("/webhooks/card", wh.Card)

	api := r.Group("/api", middleware.RequireAuth(d.Cfg.JWTSecret))

	ph := handlers.NewPaymentHandler(d.PaymentSvc)
	api.POST("/payments", ph.Create)
	api.GET("/payments", ph.ListMine)
	api.GET("/payments/stats", ph.Stats)
	api.GET("/payments/:id", ph.Get)
	api.POST("/payments/:id/card", ph.ProcessCard)
	api.POST("/payments/:id/crypto", ph.ProcessCrypto)
	api.POST("/payments/:id/crypto/verify", ph.VerifyCrypto)
	api.POST("/payments/:id/refund", ph.Refund)
	api.POST("/payments/:id/review", ph.ResolveReview)

	pmh := handlers.NewPaymentMethodHandler(d.Methods)
	api.POST("/payment-methods", pmh.Add)
	api.GET("/payment-methods", pmh.List)
	api.PUT("/payment-methods/:id/default", pmh.SetDefault)
	api.DELETE("/payment-methods/:id", pmh.Remove)

	ih := handlers.NewInvoiceHandler(d.Invoices)
	api.POST("/invoices", ih.Create)
	api.GET("/invoices", ih.ListMine)
	api.GET("/invoices/:id", ih.Get)
	api.PUT("/invoices/:id/status", ih.UpdateStatus)

	rh := handlers.NewRateHandler(d.Rates, d.Chain)
	api.GET("/rates/convert", rh.Convert)
	api.GET("/rates/cache", rh.CacheStats)
	api.DELETE("/rates/cache", rh.ClearCache)
	api.GET("/gas-price", rh.GasPrice)

	return r
}

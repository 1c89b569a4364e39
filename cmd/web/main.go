package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/rhonaldomaster/gshop-sub000/internal/config"
	apphttp "github.com/rhonaldomaster/gshop-sub000/internal/http"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/currency"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/invoices"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/orders"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/payments"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/providers"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	ledger := payments.NewLedger(db)
	ordersRepo := orders.NewRepo(db)

	card := providers.NewCardClient(cfg.Card.APIURL, cfg.Card.SecretKey, cfg.ProviderTimeout)
	agg := providers.NewAggregatorClient(cfg.Aggregator.APIURL, cfg.Aggregator.AccessToken, cfg.ProviderTimeout)
	chain := providers.NewRPCChainReader(cfg.Chain.RPCURL, cfg.ProviderTimeout)

	verifier := payments.NewVerifier(ledger, chain, logger)
	paymentSvc := payments.NewService(ledger, ordersRepo, card, agg, verifier, payments.Options{
		EnabledMethods:  cfg.EnabledMethods,
		PlatformFeeRate: cfg.PlatformFeeRate,
		CardFeeRate:     cfg.CardFeeRate,
		CardFeeFixed:    cfg.CardFeeFixed,
		BaseURL:         cfg.BaseURL,
		PaymentTTL:      cfg.PaymentTTL,
		ProviderTimeout: cfg.ProviderTimeout,
	}, logger)
	webhookSvc := payments.NewWebhookService(ledger, ordersRepo, agg, logger)
	methods := payments.NewMethodStore(db)
	invoiceSvc := invoices.NewService(db, logger)

	var fxCache currency.Cache = currency.NewMemoryCache()
	if cfg.RedisAddr != "" {
		fxCache = currency.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		logger.Info("using redis exchange rate cache", "addr", cfg.RedisAddr)
	}
	rateSvc := currency.NewService(fxCache, cfg.FX.APIURL, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reaper := payments.NewReaper(ledger, ordersRepo, cfg.ReaperInterval, logger)
	go reaper.Run(ctx)

	r := apphttp.NewRouter(apphttp.Deps{
		Logger:       logger,
		DB:           db,
		Cfg:          cfg,
		PaymentSvc:   paymentSvc,
		WebhookSvc:   webhookSvc,
		Methods:      methods,
		Invoices:     invoiceSvc,
		Rates:        rateSvc,
		Chain:        chain,
		AggVerifier:  providers.NewWebhookVerifier(cfg.Aggregator.WebhookSecret, logger),
		CardVerifier: providers.NewWebhookVerifier(cfg.Card.WebhookSecret, logger),
	})

	logger.Info("listening", "addr", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

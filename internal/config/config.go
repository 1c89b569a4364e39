package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read from the environment exactly once at startup and then
// injected; nothing re-reads env per request.
type Config struct {
	Addr    string
	DBDSN   string
	BaseURL string // used to build webhook/callback URLs

	JWTSecret string

	// Enabled payment methods, e.g. PAYMENT_METHODS_ENABLED="card,aggregator,crypto"
	EnabledMethods map[string]bool

	PlatformFeeRate float64 // share of amount kept by the platform
	CardFeeRate     float64
	CardFeeFixed    float64

	Card       CardConfig
	Aggregator AggregatorConfig
	Chain      ChainConfig
	FX         FXConfig

	RedisAddr string // optional; empty = in-memory FX cache

	ProviderTimeout time.Duration
	PaymentTTL      time.Duration
	ReaperInterval  time.Duration
}

type CardConfig struct {
	APIURL        string
	SecretKey     string
	WebhookSecret string
}

type AggregatorConfig struct {
	APIURL        string
	AccessToken   string
	WebhookSecret string
}

type ChainConfig struct {
	RPCURL          string
	ReceiverAddress string
}

type FXConfig struct {
	APIURL string
}

func Load() (Config, error) {
	cfg := Config{
		Addr:            getEnv("ADDR", ":8080"),
		DBDSN:           os.Getenv("DB_DSN"),
		BaseURL:         getEnv("APP_BASE_URL", "http://localhost:8080"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		EnabledMethods:  parseMethods(getEnv("PAYMENT_METHODS_ENABLED", "card,aggregator,crypto,wallet_credit")),
		PlatformFeeRate: getEnvFloat("PLATFORM_FEE_RATE", 0.07),
		CardFeeRate:     getEnvFloat("CARD_FEE_RATE", 0.029),
		CardFeeFixed:    getEnvFloat("CARD_FEE_FIXED", 0.30),
		Card: CardConfig{
			APIURL:        getEnv("CARD_API_URL", "https://api.cardprocessor.example"),
			SecretKey:     os.Getenv("CARD_SECRET_KEY"),
			WebhookSecret: os.Getenv("CARD_WEBHOOK_SECRET"),
		},
		Aggregator: AggregatorConfig{
			APIURL:        getEnv("AGGREGATOR_API_URL", "https://api.mercadopago.com"),
			AccessToken:   os.Getenv("AGGREGATOR_ACCESS_TOKEN"),
			WebhookSecret: os.Getenv("AGGREGATOR_WEBHOOK_SECRET"),
		},
		Chain: ChainConfig{
			RPCURL:          getEnv("CHAIN_RPC_URL", "https://polygon-rpc.com"),
			ReceiverAddress: os.Getenv("CHAIN_RECEIVER_ADDRESS"),
		},
		FX: FXConfig{
			APIURL: getEnv("EXCHANGE_RATE_API_URL", "https://api.exchangerate-api.com/v4/latest/USD"),
		},
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 5*time.Second),
		PaymentTTL:      getEnvDuration("PAYMENT_TTL", 30*time.Minute),
		ReaperInterval:  getEnvDuration("REAPER_INTERVAL", 5*time.Minute),
	}

	if cfg.DBDSN == "" {
		return Config{}, fmt.Errorf("config: DB_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET is required")
	}

	// Credentials must exist before the first provider call, not fail inside it.
	if cfg.EnabledMethods["card"] && cfg.Card.SecretKey == "" {
		return Config{}, fmt.Errorf("config: card method enabled but CARD_SECRET_KEY is missing")
	}
	if cfg.EnabledMethods["aggregator"] && cfg.Aggregator.AccessToken == "" {
		return Config{}, fmt.Errorf("config: aggregator method enabled but AGGREGATOR_ACCESS_TOKEN is missing")
	}

	return cfg, nil
}

func parseMethods(s string) map[string]bool {
	out := map[string]bool{}
	for _, m := range strings.Split(s, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			out[m] = true
		}
	}
	return out
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return d
	}
	return f
}

func getEnvDuration(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return d
	}
	return dur
}

package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"
)

const (
	freshTTL    = time.Hour
	fallbackTTL = 10 * time.Minute
)

// Fallback rates used when the rate API is unreachable. Cached for only
// 10 minutes so a retry happens sooner than a normal refresh.
var fallbackRates = map[string]float64{
	"COP_USD": 4000,
	"USD_COP": 1.0 / 4000,
	"ARS_USD": 1450,
	"USD_ARS": 1.0 / 1450,
}

type Service struct {
	cache  Cache
	client *http.Client
	apiURL string
	logger *slog.Logger
	now    func() time.Time
}

func NewService(cache Cache, apiURL string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:  cache,
		client: &http.Client{Timeout: 5 * time.Second},
		apiURL: apiURL,
		logger: logger,
		now:    time.Now,
	}
}

// ExchangeRate returns the from→to rate, cached for an hour. A rate of
// 4000 for COP_USD means 4000 COP = 1 USD.
func (s *Service) ExchangeRate(ctx context.Context, from, to string) (float64, error) {
	key := from + "_" + to

	if e, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		s.logger.Debug("using cached exchange rate", "pair", key, "rate", e.Rate)
		return e.Rate, nil
	} else if err != nil {
		s.logger.Warn("rate cache read failed", "pair", key, "err", err)
	}

	rate, err := s.fetchRate(ctx, from, to)
	if err != nil {
		s.logger.Error("failed to fetch exchange rate, using fallback", "pair", key, "err", err)
		return s.fallback(ctx, key), nil
	}

	if cerr := s.cache.Set(ctx, key, Entry{Rate: rate, CachedAt: s.now()}, freshTTL); cerr != nil {
		s.logger.Warn("rate cache write failed", "pair", key, "err", cerr)
	}
	s.logger.Info("fetched fresh exchange rate", "pair", key, "rate", rate)
	return rate, nil
}

// Convert converts amount from→to, rounded to 2 decimal places. The
// rate is direct when the target is USD and inverse otherwise.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string) (converted, rate float64, err error) {
	rate, err = s.ExchangeRate(ctx, from, to)
	if err != nil {
		return 0, 0, err
	}

	converted = amount / rate
	converted = math.Round(converted*100) / 100
	return converted, rate, nil
}

func (s *Service) CacheStats(ctx context.Context) ([]CacheStat, error) {
	return s.cache.Stats(ctx)
}

func (s *Service) ClearCache(ctx context.Context) error {
	s.logger.Info("exchange rate cache cleared")
	return s.cache.Clear(ctx)
}

func (s *Service) fetchRate(ctx context.Context, from, to string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate api returned status %d", resp.StatusCode)
	}

	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if len(body.Rates) == 0 {
		return 0, fmt.Errorf("rate api response has no rates")
	}

	// Rates are quoted against USD: converting TO USD uses the source
	// currency's rate directly, converting FROM USD uses the inverse.
	if to == "USD" {
		r, ok := body.Rates[from]
		if !ok {
			return 0, fmt.Errorf("currency %s not found in rate api response", from)
		}
		return r, nil
	}
	r, ok := body.Rates[to]
	if !ok {
		return 0, fmt.Errorf("currency %s not found in rate api response", to)
	}
	return 1 / r, nil
}

func (s *Service) fallback(ctx context.Context, key string) float64 {
	rate, ok := fallbackRates[key]
	if !ok {
		s.logger.Warn("no fallback rate for pair, defaulting to 1", "pair", key)
		return 1
	}

	if err := s.cache.Set(ctx, key, Entry{Rate: rate, CachedAt: s.now()}, fallbackTTL); err != nil {
		s.logger.Warn("rate cache write failed", "pair", key, "err", err)
	}
	return rate
}

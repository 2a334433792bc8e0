// Package pokeapi implements the upstream PokeAPI client: raw JSON fetching
// with rate limiting, circuit breaking, and error translation, plus the
// reshaping of upstream payloads into domain types.
package pokeapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kantolabs/pokedex/internal/domain"
	"github.com/kantolabs/pokedex/internal/metrics"
)

const userAgent = "pokedex-api/1.0"

// Compile-time check: HTTPFetcher implements domain.Fetcher.
var _ domain.Fetcher = (*HTTPFetcher)(nil)

// FetcherConfig holds transport parameters for the raw fetcher.
type FetcherConfig struct {
	Timeout      time.Duration
	RateLimitRPS float64 // 0 = unlimited
	Logger       *zap.Logger
}

// HTTPFetcher performs raw JSON GETs against PokeAPI. Failures are
// translated into domain sentinels; a circuit breaker sheds load when the
// upstream is persistently failing.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger
}

// NewHTTPFetcher creates a raw fetcher.
func NewHTTPFetcher(cfg FetcherConfig) *HTTPFetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), int(cfg.RateLimitRPS)+1)
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "pokeapi",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && counts.ConsecutiveFailures >= 5
		},
		// A 404 is a valid answer, not an upstream failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("upstream circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &HTTPFetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}
}

// FetchJSON retrieves the document at url.
func (f *HTTPFetcher) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	data, err := f.breaker.Execute(func() ([]byte, error) {
		return f.doFetch(ctx, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.UpstreamRequestsTotal.WithLabelValues("unavailable").Inc()
			return nil, fmt.Errorf("%w: circuit breaker open", domain.ErrUpstreamUnavailable)
		}
		return nil, err
	}
	return data, nil
}

func (f *HTTPFetcher) doFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		outcome, sentinel := classifyTransportError(err)
		metrics.UpstreamRequestsTotal.WithLabelValues(outcome).Inc()
		return nil, fmt.Errorf("%w: %s", sentinel, url)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.UpstreamRequestsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, url)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.UpstreamRequestsTotal.WithLabelValues("bad_gateway").Inc()
		f.logger.Warn("unexpected upstream status",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: status %d from %s", domain.ErrUpstreamBadGateway, resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: read body: %s", domain.ErrUpstreamUnavailable, url)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues("ok").Inc()
	return body, nil
}

func classifyTransportError(err error) (outcome string, sentinel error) {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout", domain.ErrUpstreamTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout", domain.ErrUpstreamTimeout
	}
	return "unavailable", domain.ErrUpstreamUnavailable
}

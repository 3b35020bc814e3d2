// Package exchange hosts connectors for upstream trade data sources and
// the fallback logic that ties them together.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Parow01/Parowbot/internal/metrics"
)

// ErrExhausted is returned once every fetch attempt has failed. Callers
// treat it as "no data this cycle", never as a fatal condition.
var ErrExhausted = errors.New("all fetch attempts exhausted")

// errRateLimited marks a 429 so the retry loop can apply the
// progressive backoff instead of the generic retry delay.
var errRateLimited = errors.New("rate limited by upstream")

// ClientConfig tunes the shared request machinery. Zero values fall
// back to the defaults below.
type ClientConfig struct {
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerMinute int
	BackoffBase       time.Duration // initial wait after a 429
	BackoffStep       time.Duration // added per further rate-limited attempt
	Timeout           time.Duration
}

const (
	defaultMaxRetries  = 3
	defaultRetryDelay  = 5 * time.Second
	defaultRPM         = 100
	defaultBackoffBase = 30 * time.Second
	defaultBackoffStep = 15 * time.Second
	defaultTimeout     = 30 * time.Second
)

// Client is the single HTTP front door every source adapter goes
// through. It owns the per-source rate limiter and the retry loop so
// retry semantics cannot drift between adapters.
type Client struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
	cfg     ClientConfig
	log     zerolog.Logger
}

// NewClient builds a client for one upstream source.
func NewClient(name string, cfg ClientConfig, log zerolog.Logger) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaultRPM
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = defaultBackoffStep
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	interval := time.Minute / time.Duration(cfg.RequestsPerMinute)
	return &Client{
		name:    name,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		cfg:     cfg,
		log:     log.With().Str("source", name).Logger(),
	}
}

// GetJSON performs a rate-limited GET with retries, decoding the 200
// body into dst. The limiter is consulted before every attempt,
// retries included.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, dst any) error {
	target, err := buildURL(rawURL, params)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := c.doOnce(ctx, target, dst)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.FetchErrors.WithLabelValues(c.name).Inc()

		var wait time.Duration
		if errors.Is(err, errRateLimited) {
			wait = c.cfg.BackoffBase + time.Duration(attempt)*c.cfg.BackoffStep
			c.log.Warn().Int("attempt", attempt+1).Dur("wait", wait).Msg("rate limited, backing off")
		} else {
			wait = c.cfg.RetryDelay * time.Duration(attempt+1)
			c.log.Warn().Err(err).Int("attempt", attempt+1).Dur("wait", wait).Msg("fetch attempt failed")
		}

		if attempt == c.cfg.MaxRetries-1 {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.log.Error().Int("attempts", c.cfg.MaxRetries).Str("url", rawURL).Msg("giving up on fetch")
	return ErrExhausted
}

func (c *Client) doOnce(ctx context.Context, target string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Parowbot/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if dst == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return errRateLimited
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func buildURL(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String(), nil
}

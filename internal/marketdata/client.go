// Package marketdata hosts the connectors for the price-bar provider.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fxsignal-go/internal/metrics"
	"fxsignal-go/internal/ratelimit"
	"fxsignal-go/internal/signal"
)

// ErrNoData marks a cycle where the provider returned nothing usable for a
// pair. Callers skip the pair and retry next cycle.
var ErrNoData = errors.New("no market data")

const (
	defaultBaseURL = "https://api.twelvedata.com"
	defaultTimeout = 5 * time.Second
)

type timeSeriesResponse struct {
	Values []timeSeriesBar `json:"values"`
	Status string          `json:"status"`
	// Application-level errors arrive inside a 200 response.
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type timeSeriesBar struct {
	Datetime string `json:"datetime"`
	Close    string `json:"close"`
}

// Client fetches price bars over the provider's time_series endpoint. Every
// request passes through the shared rate limiter first.
type Client struct {
	baseURL  string
	apiKey   string
	interval string
	limiter  *ratelimit.Limiter
	http     *http.Client
	log      zerolog.Logger
}

// Option configures Client construction parameters.
type Option func(*Client)

// WithBaseURL points the client at a non-default provider endpoint.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithInterval overrides the bar interval requested from the provider.
func WithInterval(interval string) Option {
	return func(c *Client) {
		if interval != "" {
			c.interval = interval
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient constructs a provider client guarded by limiter.
func NewClient(apiKey string, limiter *ratelimit.Limiter, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:  defaultBaseURL,
		apiKey:   apiKey,
		interval: "1min",
		limiter:  limiter,
		http:     &http.Client{Timeout: defaultTimeout},
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest fetches the single newest bar for pair.
func (c *Client) Latest(ctx context.Context, pair string) (signal.Bar, error) {
	bars, err := c.timeSeries(ctx, pair, 1, "latest")
	if err != nil {
		return signal.Bar{}, err
	}
	return bars[len(bars)-1], nil
}

// History fetches count bars for pair in chronological (oldest-first) order.
func (c *Client) History(ctx context.Context, pair string, count int) ([]signal.Bar, error) {
	if count <= 0 {
		count = 1
	}
	return c.timeSeries(ctx, pair, count, "history")
}

func (c *Client) timeSeries(ctx context.Context, pair string, outputSize int, kind string) ([]signal.Bar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", formatSymbol(pair))
	params.Set("interval", c.interval)
	params.Set("apikey", c.apiKey)
	params.Set("outputsize", strconv.Itoa(outputSize))

	target := fmt.Sprintf("%s/time_series?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "fxsignal-go/1.0")

	metrics.FetchesTotal.WithLabelValues(pair, kind).Inc()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(pair).Inc()
		return nil, fmt.Errorf("%w: http do: %v", ErrNoData, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.FetchErrorsTotal.WithLabelValues(pair).Inc()
		return nil, fmt.Errorf("%w: unexpected status %d", ErrNoData, resp.StatusCode)
	}

	var payload timeSeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(pair).Inc()
		return nil, fmt.Errorf("%w: decode response: %v", ErrNoData, err)
	}
	if payload.Code != 0 && payload.Code != http.StatusOK {
		metrics.FetchErrorsTotal.WithLabelValues(pair).Inc()
		return nil, fmt.Errorf("%w: provider error %d: %s", ErrNoData, payload.Code, payload.Message)
	}
	if strings.EqualFold(payload.Status, "error") || len(payload.Values) == 0 {
		metrics.FetchErrorsTotal.WithLabelValues(pair).Inc()
		return nil, fmt.Errorf("%w: empty time_series for %s", ErrNoData, pair)
	}

	bars, err := parseBars(pair, payload.Values)
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(pair).Inc()
		return nil, err
	}
	return bars, nil
}

// parseBars converts the provider's newest-first payload into chronological order.
func parseBars(pair string, values []timeSeriesBar) ([]signal.Bar, error) {
	bars := make([]signal.Bar, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		raw := values[i]
		price, err := strconv.ParseFloat(raw.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad close %q: %v", ErrNoData, raw.Close, err)
		}
		ts, err := parseBarTime(raw.Datetime)
		if err != nil {
			return nil, fmt.Errorf("%w: bad datetime %q: %v", ErrNoData, raw.Datetime, err)
		}
		bars = append(bars, signal.Bar{Pair: pair, Close: price, Ts: ts})
	}
	return bars, nil
}

func parseBarTime(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", raw)
}

func formatSymbol(pair string) string {
	return pair + ":FOREX"
}

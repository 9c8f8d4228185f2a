// internal/app/system/marketdata/marketdata.go
//
// Package marketdata is a thin client for a brapi-compatible quote API.
// Concurrent identical requests share one upstream call.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MaxTickers bounds a single quote request.
const MaxTickers = 10

// Allowed history parameters.
var (
	Ranges    = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}
	Intervals = []string{"1d", "5d", "1wk", "1mo", "3mo"}
)

var (
	ErrNoTickers      = errors.New("at least one ticker is required")
	ErrTooManyTickers = fmt.Errorf("at most %d tickers per request", MaxTickers)
	ErrNotConfigured  = errors.New("market data source is not configured")
)

// UpstreamError is a non-2xx answer or transport failure from the quote API.
type UpstreamError struct {
	Endpoint string
	Status   int // 0 for transport errors
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("market upstream %s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("market upstream %s: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Observer receives one call per upstream request.
type Observer interface {
	Upstream(endpoint, outcome string)
}

// Quote is one entry of the upstream "results" array, passed through as-is.
type Quote map[string]any

// Symbol returns the quote's ticker.
func (q Quote) Symbol() string {
	s, _ := q["symbol"].(string)
	return s
}

// Config configures Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client fetches quotes and history.
type Client struct {
	base   string
	token  string
	http   *http.Client
	obs    Observer
	log    *zap.Logger
	flight singleflight.Group
}

// New builds a Client. obs may be nil.
func New(cfg Config, obs Observer, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:  strings.TrimRight(cfg.BaseURL, "/"),
		token: cfg.Token,
		http:  &http.Client{Timeout: timeout},
		obs:   obs,
		log:   logger,
	}
}

// ParseTickers splits a comma list, normalizes and validates it.
func ParseTickers(s string) ([]string, error) {
	tickers, err := models.NormalizeTickers(strings.Split(s, ","))
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}
	if len(tickers) > MaxTickers {
		return nil, ErrTooManyTickers
	}
	return tickers, nil
}

func allowed(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ValidRange reports whether r is an allowed history range.
func ValidRange(r string) bool { return allowed(r, Ranges) }

// ValidInterval reports whether i is an allowed history interval.
func ValidInterval(i string) bool { return allowed(i, Intervals) }

// Quotes returns the current quotes for tickers.
func (c *Client) Quotes(ctx context.Context, tickers []string) ([]Quote, error) {
	return c.fetch(ctx, "quote", strings.Join(tickers, ","), nil)
}

// History returns the quote for ticker including historicalDataPrice.
func (c *Client) History(ctx context.Context, ticker, rng, interval string) (Quote, error) {
	q := url.Values{}
	q.Set("range", rng)
	q.Set("interval", interval)
	rows, err := c.fetch(ctx, "history", ticker, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &UpstreamError{Endpoint: "history", Err: errors.New("empty results")}
	}
	return rows[0], nil
}

func (c *Client) fetch(ctx context.Context, endpoint, tickers string, q url.Values) ([]Quote, error) {
	if c.base == "" {
		return nil, ErrNotConfigured
	}
	if q == nil {
		q = url.Values{}
	}
	if c.token != "" {
		q.Set("token", c.token)
	}
	u := c.base + "/api/quote/" + url.PathEscape(tickers)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	// the upstream call is shared, so it must not die with the first caller
	ch := c.flight.DoChan(u, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.http.Timeout)
		defer cancel()
		return c.do(fctx, endpoint, u)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Quote), nil
	}
}

func (c *Client) do(ctx context.Context, endpoint, u string) ([]Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, "error")
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		c.observe(endpoint, "status_"+fmt.Sprint(resp.StatusCode/100)+"xx")
		return nil, &UpstreamError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	var body struct {
		Results []Quote `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&body); err != nil {
		c.observe(endpoint, "error")
		return nil, &UpstreamError{Endpoint: endpoint, Err: fmt.Errorf("decode: %w", err)}
	}
	c.observe(endpoint, "ok")
	if c.log != nil {
		c.log.Debug("market upstream",
			zap.String("endpoint", endpoint),
			zap.Int("results", len(body.Results)),
			zap.Duration("took", time.Since(start)))
	}
	if body.Results == nil {
		body.Results = []Quote{}
	}
	return body.Results, nil
}

func (c *Client) observe(endpoint, outcome string) {
	if c.obs != nil {
		c.obs.Upstream(endpoint, outcome)
	}
}

// internal/app/features/market/handler.go
package market

import (
	"context"
	"errors"
	"net/http"
	"sync"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	datasetstore "github.com/dalemusser/fiiportal/internal/app/store/datasets"
	"github.com/dalemusser/fiiportal/internal/app/system/marketdata"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// QuoteSource is the market-data client.
type QuoteSource interface {
	Quotes(ctx context.Context, tickers []string) ([]marketdata.Quote, error)
	History(ctx context.Context, ticker, rng, interval string) (marketdata.Quote, error)
}

// Handler proxies quotes and history and builds the per-ticker dashboard.
type Handler struct {
	Quotes   QuoteSource
	Datasets *datasetstore.Store
	ErrLog   *errorsfeature.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, quotes QuoteSource, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Quotes:   quotes,
		Datasets: datasetstore.New(db),
		ErrLog:   errLog,
		Log:      logger,
	}
}

// upstreamError writes 503 when no provider is configured and 502 for
// every other failure of the quote API.
func (h *Handler) upstreamError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, marketdata.ErrNotConfigured) {
		respond.Error(w, r, http.StatusServiceUnavailable, respond.CodeUpstream, "market data is not configured")
		return
	}
	h.ErrLog.LogUpstreamError(w, r, msg, err)
}

// ServeQuote returns current quotes for a comma list of tickers.
//
// Route: GET /api/market/quote/{tickers}
func (h *Handler) ServeQuote(w http.ResponseWriter, r *http.Request) {
	tickers, err := marketdata.ParseTickers(chi.URLParam(r, "tickers"))
	if err != nil {
		respond.BadRequest(w, r, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	quotes, err := h.Quotes.Quotes(ctx, tickers)
	if err != nil {
		h.upstreamError(w, r, "market quote failed", err)
		return
	}
	respond.OK(w, map[string]any{"results": quotes})
}

// ServeHistory returns price history for one ticker.
//
// Route: GET /api/market/history/{ticker}?range=1mo&interval=1d
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	ticker := models.NormalizeTicker(chi.URLParam(r, "ticker"))
	if !models.ValidTicker(ticker) {
		respond.BadRequest(w, r, "invalid ticker")
		return
	}
	rng := query.Get(r, "range")
	if rng == "" {
		rng = "1mo"
	}
	interval := query.Get(r, "interval")
	if interval == "" {
		interval = "1d"
	}
	if !marketdata.ValidRange(rng) {
		respond.BadRequest(w, r, "invalid range")
		return
	}
	if !marketdata.ValidInterval(interval) {
		respond.BadRequest(w, r, "invalid interval")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	q, err := h.Quotes.History(ctx, ticker, rng, interval)
	if err != nil {
		h.upstreamError(w, r, "market history failed", err)
		return
	}
	respond.OK(w, q)
}

// DashboardEntry is everything known about one ticker.
type DashboardEntry struct {
	Ticker   string            `json:"ticker"`
	Quote    marketdata.Quote  `json:"quote,omitempty"`
	Datasets map[string]bson.M `json:"datasets"`
}

type dashboardResponse struct {
	Items      []DashboardEntry `json:"items"`
	QuotesOK   bool             `json:"quotes_ok"`
	QuoteError string           `json:"quote_error,omitempty"`
}

// ServeDashboard loads quotes and every dataset for the tickers
// concurrently and merges them per ticker. A failing quote provider
// degrades the answer instead of failing it; dataset errors fail it.
//
// Route: GET /api/market/dashboard?tickers=HGLG11,KNRI11
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	tickers, err := marketdata.ParseTickers(query.Get(r, "tickers"))
	if err != nil {
		respond.BadRequest(w, r, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	var (
		quotes   []marketdata.Quote
		quoteErr error
		mu       sync.Mutex
		docs     = make(map[string]map[string]bson.M)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quotes, quoteErr = h.Quotes.Quotes(gctx, tickers)
		return nil
	})
	for _, name := range models.DatasetNames() {
		g.Go(func() error {
			m, err := h.Datasets.GetMany(gctx, name, tickers)
			if err != nil {
				return err
			}
			mu.Lock()
			docs[name] = m
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.ErrLog.LogServerError(w, r, "market dashboard: datasets failed", err)
		return
	}

	byTicker := make(map[string]marketdata.Quote, len(quotes))
	for _, q := range quotes {
		byTicker[q.Symbol()] = q
	}
	resp := dashboardResponse{Items: make([]DashboardEntry, len(tickers)), QuotesOK: quoteErr == nil}
	if quoteErr != nil {
		h.Log.Warn("market dashboard: quotes unavailable", zap.Error(quoteErr), zap.Strings("tickers", tickers))
		resp.QuoteError = "quotes unavailable"
		if errors.Is(quoteErr, marketdata.ErrNotConfigured) {
			resp.QuoteError = "market data is not configured"
		}
	}
	for i, t := range tickers {
		e := DashboardEntry{Ticker: t, Quote: byTicker[t], Datasets: map[string]bson.M{}}
		for name, m := range docs {
			if d, ok := m[t]; ok {
				e.Datasets[name] = d
			}
		}
		resp.Items[i] = e
	}
	respond.OK(w, resp)
}

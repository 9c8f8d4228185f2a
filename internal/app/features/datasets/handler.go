// internal/app/features/datasets/handler.go
package datasets

import (
	"context"
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	datasetstore "github.com/dalemusser/fiiportal/internal/app/store/datasets"
	"github.com/dalemusser/fiiportal/internal/app/system/auditlog"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultLimit is used when ?limit= is absent.
const DefaultLimit = 50

// MaxDocument bounds an admin upsert body.
const MaxDocument = 256 << 10

// Handler proxies reads of the allowlisted market-data collections and
// lets admins maintain them.
type Handler struct {
	Datasets *datasetstore.Store
	Audit    *auditlog.Logger
	ErrLog   *errorsfeature.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Datasets: datasetstore.New(db),
		Audit:    audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, datasetstore.ErrUnknownDataset):
		respond.NotFound(w, r, "unknown dataset")
	case errors.Is(err, datasetstore.ErrNotFound):
		respond.NotFound(w, r, "document not found")
	case errors.Is(err, datasetstore.ErrInvalidTicker):
		respond.BadRequest(w, r, "invalid ticker")
	case errors.Is(err, datasetstore.ErrInvalidField):
		respond.BadRequest(w, r, err.Error())
	default:
		h.ErrLog.LogServerError(w, r, msg, err)
	}
}

// ServeNames lists the dataset names.
//
// Route: GET /api/datasets
func (h *Handler) ServeNames(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, map[string][]string{"items": models.DatasetNames()})
}

// ServeList returns the documents of one dataset.
//
// Route: GET /api/datasets/{name}?ticker=&limit=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ticker := query.Get(r, "ticker")
	if ticker != "" && !models.ValidTicker(models.NormalizeTicker(ticker)) {
		respond.BadRequest(w, r, "invalid ticker")
		return
	}
	limit := paging.ParseLimit(r, DefaultLimit, datasetstore.MaxLimit)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	docs, err := h.Datasets.List(ctx, name, ticker, limit)
	if err != nil {
		h.storeError(w, r, "list dataset failed", err)
		return
	}
	respond.OK(w, map[string]any{"dataset": name, "items": docs})
}

// ServeOne returns the document for one ticker.
//
// Route: GET /api/datasets/{name}/{ticker}
func (h *Handler) ServeOne(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	doc, err := h.Datasets.Get(ctx, chi.URLParam(r, "name"), chi.URLParam(r, "ticker"))
	if err != nil {
		h.storeError(w, r, "get dataset document failed", err)
		return
	}
	respond.OK(w, doc)
}

// HandleUpsert replaces the document for a ticker with the JSON object body.
//
// Route: PUT /api/admin/datasets/{name}/{ticker}
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := models.DatasetCollection(name); !ok {
		respond.NotFound(w, r, "unknown dataset")
		return
	}
	var body any
	if err := respond.DecodeJSON(w, r, &body, MaxDocument); err != nil {
		respond.BadRequest(w, r, "invalid JSON body")
		return
	}
	obj, ok := body.(map[string]any)
	if !ok {
		respond.BadRequest(w, r, "body must be a JSON object")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	doc, created, err := h.Datasets.Upsert(ctx, name, chi.URLParam(r, "ticker"), bson.M(obj))
	if err != nil {
		h.storeError(w, r, "upsert dataset document failed", err)
		return
	}
	ticker, _ := doc["ticker"].(string)
	event := audit.EventUpdated
	status := http.StatusOK
	if created {
		event = audit.EventCreated
		status = http.StatusCreated
	}
	h.Audit.Admin(ctx, r, shared.Actor(r), event, "dataset:"+name, ticker, "")
	respond.JSON(w, status, doc)
}

// HandleDelete removes the document for a ticker.
//
// Route: DELETE /api/admin/datasets/{name}/{ticker}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ticker := models.NormalizeTicker(chi.URLParam(r, "ticker"))
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Datasets.Delete(ctx, name, ticker); err != nil {
		h.storeError(w, r, "delete dataset document failed", err)
		return
	}
	h.Audit.Admin(ctx, r, shared.Actor(r), audit.EventDeleted, "dataset:"+name, ticker, "")
	respond.NoContent(w)
}

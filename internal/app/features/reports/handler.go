// internal/app/features/reports/handler.go
package reports

import (
	"context"
	"errors"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	commentstore "github.com/dalemusser/fiiportal/internal/app/store/comments"
	reportstore "github.com/dalemusser/fiiportal/internal/app/store/reports"
	"github.com/dalemusser/fiiportal/internal/app/system/auditlog"
	"github.com/dalemusser/fiiportal/internal/app/system/notify"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	// MaxUpload is the largest accepted PDF.
	MaxUpload = 25 << 20
	// KeyPrefix namespaces report objects in the file store.
	KeyPrefix = "reports"
	// DownloadTTL is the default lifetime of presigned download links.
	DownloadTTL = 15 * time.Minute
)

// Handler serves the public report catalog, downloads and the admin
// report backend.
type Handler struct {
	Reports  *reportstore.Store
	Comments *commentstore.Store
	Files    storage.Store
	LinkTTL  time.Duration // presigned link lifetime; DownloadTTL when zero
	Notifier *notify.Notifier // nil disables announcements
	Audit    *auditlog.Logger
	ErrLog   *errorsfeature.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs a reports Handler bound to db and the file store.
func NewHandler(db *mongo.Database, files storage.Store, notifier *notify.Notifier, audit *auditlog.Logger, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Reports:  reportstore.New(db),
		Comments: commentstore.New(db),
		Files:    files,
		Notifier: notifier,
		Audit:    audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// reportView adds whether a download exists.
type reportView struct {
	models.Report
	Downloadable bool   `json:"downloadable"`
	DownloadURL  string `json:"download_url,omitempty"`
}

func view(r models.Report) reportView {
	v := reportView{Report: r, Downloadable: r.HasDocument()}
	if v.Downloadable {
		v.DownloadURL = "/api/reports/" + r.ID.Hex() + "/download"
	}
	return v
}

func views(rs []models.Report) []reportView {
	out := make([]reportView, len(rs))
	for i, r := range rs {
		out[i] = view(r)
	}
	return out
}

func (h *Handler) announce(r *http.Request, rep models.Report) notify.Result {
	if h.Notifier == nil {
		return notify.Result{}
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Batch())
	defer cancel()
	res, err := h.Notifier.ContentPublished(ctx, models.TargetReport, rep.ID.Hex(), rep.Title, rep.Summary)
	if err != nil {
		h.Log.Error("announce report failed", zap.Error(err), zap.String("report_id", rep.ID.Hex()))
	}
	return res
}

// removeFile deletes an object that is no longer referenced.
func (h *Handler) removeFile(ctx context.Context, key string) {
	if key == "" || h.Files == nil {
		return
	}
	if err := h.Files.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.Log.Warn("delete report file failed", zap.Error(err), zap.String("key", key))
	}
}

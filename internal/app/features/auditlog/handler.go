// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Page sizes of the audit list.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type Handler struct {
	Events *audit.Store
	Log    *zap.Logger
	ErrLog *errorsfeature.ErrorLogger
}

// NewHandler constructs an Audit Log feature handler bound to
// the given Mongo database and logger.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Events: audit.New(db),
		Log:    logger,
		ErrLog: errLog,
	}
}

// ServeList returns audit events newest first.
//
// Route: GET /api/admin/audit?category=&event_type=&actor=&since=YYYY-MM-DD&before=&limit=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	before, ok := shared.Before(w, r)
	if !ok {
		return
	}
	f := audit.QueryFilter{
		Category:   strings.TrimSpace(query.Get(r, "category")),
		EventType:  strings.TrimSpace(query.Get(r, "event_type")),
		ActorEmail: strings.ToLower(strings.TrimSpace(query.Get(r, "actor"))),
		Before:     before,
		Limit:      paging.ParseLimit(r, DefaultLimit, MaxLimit),
	}
	if s := query.Get(r, "since"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			respond.BadRequest(w, r, "since must be YYYY-MM-DD")
			return
		}
		f.Since = &t
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Events.Query(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events failed", err)
		return
	}
	if page.Items == nil {
		page.Items = []audit.Event{}
	}
	respond.OK(w, page)
}

// internal/app/features/reports/admin.go
package reports

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	reportstore "github.com/dalemusser/fiiportal/internal/app/store/reports"
	"github.com/dalemusser/fiiportal/internal/app/system/notify"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.uber.org/zap"
)

const resource = "report"

type reportInput struct {
	Title       *string   `json:"title"`
	Summary     *string   `json:"summary"`
	Category    *string   `json:"category"`
	Tickers     *[]string `json:"tickers"`
	Premium     *bool     `json:"premium"`
	ExternalURL *string   `json:"external_url"`
	Status      *string   `json:"status"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

type publishResponse struct {
	Report   reportView    `json:"report"`
	Announce notify.Result `json:"announce"`
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, reportstore.ErrInvalid), errors.Is(err, reportstore.ErrNoDocument):
		respond.BadRequest(w, r, err.Error())
	case errors.Is(err, reportstore.ErrNotFound):
		respond.NotFound(w, r, "report not found")
	default:
		h.ErrLog.LogServerError(w, r, msg, err)
	}
}

// ServeAdminList returns reports in every status sorted by title.
//
// Route: GET /api/admin/reports?status=&q=&before=&after=&limit=
func (h *Handler) ServeAdminList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, total, err := h.Reports.ListAdmin(ctx, shared.AdminList(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list admin reports failed", err)
		return
	}
	out := paging.KeysetPage[reportView]{
		Items:      views(page.Items),
		PrevCursor: page.PrevCursor,
		NextCursor: page.NextCursor,
		HasPrev:    page.HasPrev,
		HasNext:    page.HasNext,
	}
	respond.OK(w, shared.NewAdminPage(out, total))
}

// ServeAdminOne returns a report in any status.
//
// Route: GET /api/admin/reports/{id}
func (h *Handler) ServeAdminOne(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rep, err := h.Reports.GetByID(ctx, id)
	if err != nil {
		h.storeError(w, r, "get report failed", err)
		return
	}
	respond.OK(w, view(rep))
}

// HandleCreate creates a report. The PDF is uploaded separately.
//
// Route: POST /api/admin/reports
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in reportInput
	if err := respond.DecodeJSON(w, r, &in, shared.MaxJSONBody); err != nil {
		h.ErrLog.LogBadRequest(w, r, "create report: bad body", err, "invalid JSON body")
		return
	}
	rep := models.Report{
		Title:       str(in.Title),
		Summary:     str(in.Summary),
		Category:    str(in.Category),
		ExternalURL: str(in.ExternalURL),
		Status:      str(in.Status),
		CreatedBy:   shared.Actor(r),
	}
	if in.Tickers != nil {
		rep.Tickers = *in.Tickers
	}
	if in.Premium != nil {
		rep.Premium = *in.Premium
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rep, err := h.Reports.Create(ctx, rep)
	if err != nil {
		h.storeError(w, r, "create report failed", err)
		return
	}
	h.Audit.Admin(r.Context(), r, rep.CreatedBy, audit.EventCreated, resource, rep.ID.Hex(), rep.Title)
	if rep.IsPublished() {
		h.Audit.Admin(r.Context(), r, rep.CreatedBy, audit.EventPublished, resource, rep.ID.Hex(), rep.Title)
		h.announce(r, rep)
	}
	respond.Created(w, view(rep))
}

// HandleUpdate applies a partial update.
//
// Route: PUT /api/admin/reports/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	var in reportInput
	if err := respond.DecodeJSON(w, r, &in, shared.MaxJSONBody); err != nil {
		h.ErrLog.LogBadRequest(w, r, "update report: bad body", err, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	before, err := h.Reports.GetByID(ctx, id)
	if err != nil {
		h.storeError(w, r, "update report: load failed", err)
		return
	}
	actor := shared.Actor(r)
	rep, err := h.Reports.Update(ctx, id, reportstore.Update{
		Title:       in.Title,
		Summary:     in.Summary,
		Category:    in.Category,
		Tickers:     in.Tickers,
		Premium:     in.Premium,
		ExternalURL: in.ExternalURL,
		Status:      in.Status,
		UpdatedBy:   actor,
	})
	if err != nil {
		h.storeError(w, r, "update report failed", err)
		return
	}
	h.Audit.Admin(r.Context(), r, actor, audit.EventUpdated, resource, rep.ID.Hex(), rep.Title)
	if !before.IsPublished() && rep.IsPublished() {
		h.Audit.Admin(r.Context(), r, actor, audit.EventPublished, resource, rep.ID.Hex(), rep.Title)
		h.announce(r, rep)
	}
	respond.OK(w, view(rep))
}

// HandlePublish publishes a report that has a document and announces it
// the first time.
//
// Route: POST /api/admin/reports/{id}/publish
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor := shared.Actor(r)
	rep, first, err := h.Reports.Publish(ctx, id, actor)
	if err != nil {
		h.storeError(w, r, "publish report failed", err)
		return
	}
	var res notify.Result
	if first {
		h.Audit.Admin(r.Context(), r, actor, audit.EventPublished, resource, rep.ID.Hex(), rep.Title)
		res = h.announce(r, rep)
	}
	respond.OK(w, publishResponse{Report: view(rep), Announce: res})
}

// HandleDelete removes a report, its stored file and its comments.
//
// Route: DELETE /api/admin/reports/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rep, err := h.Reports.Delete(ctx, id)
	if err != nil {
		h.storeError(w, r, "delete report failed", err)
		return
	}
	h.removeFile(ctx, rep.FileKey)
	n, err := h.Comments.DeleteForTarget(ctx, models.TargetReport, id)
	if err != nil {
		h.Log.Error("delete report comments failed", zap.Error(err), zap.String("report_id", id.Hex()))
	}
	h.Audit.Admin(r.Context(), r, shared.Actor(r), audit.EventDeleted, resource, id.Hex(), rep.Title)
	h.Log.Info("report deleted", zap.String("report_id", id.Hex()), zap.Int64("comments", n))
	respond.NoContent(w)
}

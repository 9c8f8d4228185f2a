// internal/app/features/reports/public.go
package reports

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	reportstore "github.com/dalemusser/fiiportal/internal/app/store/reports"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/filestore"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// ServeList returns published reports, newest first.
//
// Route: GET /api/reports?category=&ticker=&q=&before=&limit=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	l, ok := shared.PublicList(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Reports.ListPublished(ctx, l)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list reports failed", err)
		return
	}
	respond.OK(w, paging.Page[reportView]{
		Items:      views(page.Items),
		NextBefore: page.NextBefore,
		HasMore:    page.HasMore,
	})
}

// ServeOne returns one published report.
//
// Route: GET /api/reports/{id}
func (h *Handler) ServeOne(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rep, err := h.Reports.GetPublished(ctx, id)
	if errors.Is(err, reportstore.ErrNotFound) {
		respond.NotFound(w, r, "report not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "get report failed", err)
		return
	}
	respond.OK(w, view(rep))
}

// ServeDownload sends the report document. Premium reports need a signed-in
// member or admin. Local files are streamed; bucket objects and external
// documents are redirected to.
//
// Route: GET /api/reports/{id}/download
func (h *Handler) ServeDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rep, err := h.Reports.GetPublished(ctx, id)
	if errors.Is(err, reportstore.ErrNotFound) {
		respond.NotFound(w, r, "report not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "download report: load failed", err)
		return
	}
	if rep.Premium {
		_, member := auth.CurrentMember(r)
		_, admin := auth.CurrentAdmin(r)
		if !member && !admin {
			respond.Unauthorized(w, r)
			return
		}
	}

	switch {
	case rep.HasFile() && h.Files != nil:
		if local, ok := h.Files.(*storage.Local); ok {
			h.streamLocal(w, r, local, rep.FileKey, rep.FileName)
			return
		}
		h.redirectPresigned(w, r, rep.FileKey, rep.FileName)
	case rep.ExternalURL != "":
		http.Redirect(w, r, rep.ExternalURL, http.StatusFound)
	default:
		respond.NotFound(w, r, "report has no document")
	}
}

func (h *Handler) streamLocal(w http.ResponseWriter, r *http.Request, local *storage.Local, key, name string) {
	full, err := local.GetFullPath(key)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "download report: bad key", err, zap.String("key", key))
		return
	}
	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		h.Log.Warn("report file missing from disk", zap.String("key", key))
		respond.NotFound(w, r, "report file not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "download report: open failed", err)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		h.ErrLog.LogServerError(w, r, "download report: stat failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", filestore.ContentDisposition(name))
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, name, st.ModTime(), f)
}

// redirectPresigned sends the client to a short-lived bucket link.
func (h *Handler) redirectPresigned(w http.ResponseWriter, r *http.Request, key, name string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ok, err := h.Files.Exists(ctx, key)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "download report: stat failed", err, zap.String("key", key))
		return
	}
	if !ok {
		h.Log.Warn("report file missing from storage", zap.String("key", key))
		respond.NotFound(w, r, "report file not found")
		return
	}

	ttl := h.LinkTTL
	if ttl <= 0 {
		ttl = DownloadTTL
	}
	u, err := h.Files.PresignedURL(ctx, key, &storage.PresignOptions{
		Expires:            ttl,
		ContentType:        "application/pdf",
		ContentDisposition: filestore.ContentDisposition(name),
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "download report: presign failed", err, zap.String("key", key))
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

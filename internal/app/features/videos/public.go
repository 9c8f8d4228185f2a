// internal/app/features/videos/public.go
package videos

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	videostore "github.com/dalemusser/fiiportal/internal/app/store/videos"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
)

// ServeList returns published videos, newest first.
//
// Route: GET /api/videos?category=&ticker=&q=&before=&limit=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	l, ok := shared.PublicList(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Videos.ListPublished(ctx, l)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list videos failed", err)
		return
	}
	respond.OK(w, paging.Page[videoView]{
		Items:      views(page.Items),
		NextBefore: page.NextBefore,
		HasMore:    page.HasMore,
	})
}

// ServeOne returns one published video.
//
// Route: GET /api/videos/{id}
func (h *Handler) ServeOne(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Videos.GetPublished(ctx, id)
	if errors.Is(err, videostore.ErrNotFound) {
		respond.NotFound(w, r, "video not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "get video failed", err)
		return
	}
	respond.OK(w, view(v))
}

// internal/app/features/comments/admin.go
package comments

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	commentstore "github.com/dalemusser/fiiportal/internal/app/store/comments"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
)

// ServeRecent lists the newest comments across every target for moderation.
//
// Route: GET /api/admin/comments?before=&limit=
func (h *Handler) ServeRecent(w http.ResponseWriter, r *http.Request) {
	before, ok := shared.Before(w, r)
	if !ok {
		return
	}
	limit := paging.ParseLimit(r, paging.DefaultLimit, paging.MaxLimit)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Comments.ListRecent(ctx, before, limit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list recent comments failed", err)
		return
	}
	out := paging.Page[commentView]{
		Items:      make([]commentView, len(page.Items)),
		NextBefore: page.NextBefore,
		HasMore:    page.HasMore,
	}
	for i, c := range page.Items {
		out.Items[i] = view(c, "")
	}
	respond.OK(w, out)
}

// HandleAdminDelete removes any comment and its replies.
//
// Route: DELETE /api/admin/comments/{id}
func (h *Handler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Comments.GetByID(ctx, id)
	if errors.Is(err, commentstore.ErrNotFound) {
		respond.NotFound(w, r, "comment not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "admin delete comment: load failed", err)
		return
	}
	h.remove(ctx, w, r, c, shared.Actor(r))
}

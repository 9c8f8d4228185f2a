// internal/app/features/notifications/inbox.go
package notifications

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	notificationstore "github.com/dalemusser/fiiportal/internal/app/store/notifications"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type listResponse struct {
	paging.Page[models.Notification]
	UnreadCount int64 `json:"unread_count"`
}

// ServeList returns the member's notifications with the unread count.
//
// Route: GET /api/notifications?unread=true&before=&limit=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	m, _ := auth.CurrentMember(r)
	before, ok := shared.Before(w, r)
	if !ok {
		return
	}
	unreadOnly := query.Get(r, "unread") == "true" || query.Get(r, "unread") == "1"
	limit := paging.ParseLimit(r, paging.DefaultLimit, paging.MaxLimit)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	page, err := h.Notes.ListForUser(ctx, m.UserID, unreadOnly, before, limit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list notifications failed", err)
		return
	}
	unread, err := h.Notes.UnreadCount(ctx, m.UserID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count unread notifications failed", err)
		return
	}
	if page.Items == nil {
		page.Items = []models.Notification{}
	}
	respond.OK(w, listResponse{Page: page, UnreadCount: unread})
}

// HandleMarkAllRead marks every notification read.
//
// Route: PATCH /api/notifications
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	m, _ := auth.CurrentMember(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notes.MarkAllRead(ctx, m.UserID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "mark all notifications read failed", err)
		return
	}
	respond.OK(w, map[string]int64{"updated": n})
}

// HandleMarkRead marks one notification read.
//
// Route: PATCH /api/notifications/{id}
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	m, _ := auth.CurrentMember(r)
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Notes.MarkRead(ctx, m.UserID, id)
	if errors.Is(err, notificationstore.ErrNotFound) {
		respond.NotFound(w, r, "notification not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "mark notification read failed", err)
		return
	}
	respond.NoContent(w)
}

// HandleDelete removes one notification.
//
// Route: DELETE /api/notifications/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	m, _ := auth.CurrentMember(r)
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Notes.Delete(ctx, m.UserID, id)
	if errors.Is(err, notificationstore.ErrNotFound) {
		respond.NotFound(w, r, "notification not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete notification failed", err)
		return
	}
	respond.NoContent(w)
}

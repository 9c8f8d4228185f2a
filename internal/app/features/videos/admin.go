// internal/app/features/videos/admin.go
package videos

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	videostore "github.com/dalemusser/fiiportal/internal/app/store/videos"
	"github.com/dalemusser/fiiportal/internal/app/system/notify"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.uber.org/zap"
)

const resource = "video"

type videoInput struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	URL          *string   `json:"url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	Category     *string   `json:"category"`
	Tickers      *[]string `json:"tickers"`
	Premium      *bool     `json:"premium"`
	Status       *string   `json:"status"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

type publishResponse struct {
	Video    videoView     `json:"video"`
	Announce notify.Result `json:"announce"`
}

// storeError maps store validation and lookup errors to 400/404.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, videostore.ErrInvalid):
		respond.BadRequest(w, r, err.Error())
	case errors.Is(err, videostore.ErrNotFound):
		respond.NotFound(w, r, "video not found")
	default:
		h.ErrLog.LogServerError(w, r, msg, err)
	}
}

// ServeAdminList returns videos in every status sorted by title.
//
// Route: GET /api/admin/videos?status=&q=&before=&after=&limit=
func (h *Handler) ServeAdminList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, total, err := h.Videos.ListAdmin(ctx, shared.AdminList(r))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list admin videos failed", err)
		return
	}
	out := paging.KeysetPage[videoView]{
		Items:      views(page.Items),
		PrevCursor: page.PrevCursor,
		NextCursor: page.NextCursor,
		HasPrev:    page.HasPrev,
		HasNext:    page.HasNext,
	}
	respond.OK(w, shared.NewAdminPage(out, total))
}

// ServeAdminOne returns a video in any status.
//
// Route: GET /api/admin/videos/{id}
func (h *Handler) ServeAdminOne(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Videos.GetByID(ctx, id)
	if err != nil {
		h.storeError(w, r, "get video failed", err)
		return
	}
	respond.OK(w, view(v))
}

// HandleCreate creates a video. A video created as published is announced.
//
// Route: POST /api/admin/videos
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in videoInput
	if err := respond.DecodeJSON(w, r, &in, shared.MaxJSONBody); err != nil {
		h.ErrLog.LogBadRequest(w, r, "create video: bad body", err, "invalid JSON body")
		return
	}
	v := models.Video{
		Title:        str(in.Title),
		Description:  str(in.Description),
		URL:          str(in.URL),
		ThumbnailURL: str(in.ThumbnailURL),
		Category:     str(in.Category),
		Status:       str(in.Status),
		CreatedBy:    shared.Actor(r),
	}
	if in.Tickers != nil {
		v.Tickers = *in.Tickers
	}
	if in.Premium != nil {
		v.Premium = *in.Premium
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Videos.Create(ctx, v)
	if err != nil {
		h.storeError(w, r, "create video failed", err)
		return
	}
	h.Audit.Admin(r.Context(), r, v.CreatedBy, audit.EventCreated, resource, v.ID.Hex(), v.Title)
	if v.IsPublished() {
		h.Audit.Admin(r.Context(), r, v.CreatedBy, audit.EventPublished, resource, v.ID.Hex(), v.Title)
		h.announce(r, v)
	}
	respond.Created(w, view(v))
}

// HandleUpdate applies a partial update. Moving a draft to published
// announces it like HandlePublish.
//
// Route: PUT /api/admin/videos/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	var in videoInput
	if err := respond.DecodeJSON(w, r, &in, shared.MaxJSONBody); err != nil {
		h.ErrLog.LogBadRequest(w, r, "update video: bad body", err, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	before, err := h.Videos.GetByID(ctx, id)
	if err != nil {
		h.storeError(w, r, "update video: load failed", err)
		return
	}
	actor := shared.Actor(r)
	v, err := h.Videos.Update(ctx, id, videostore.Update{
		Title:        in.Title,
		Description:  in.Description,
		URL:          in.URL,
		ThumbnailURL: in.ThumbnailURL,
		Category:     in.Category,
		Tickers:      in.Tickers,
		Premium:      in.Premium,
		Status:       in.Status,
		UpdatedBy:    actor,
	})
	if err != nil {
		h.storeError(w, r, "update video failed", err)
		return
	}
	h.Audit.Admin(r.Context(), r, actor, audit.EventUpdated, resource, v.ID.Hex(), v.Title)
	if !before.IsPublished() && v.IsPublished() {
		h.Audit.Admin(r.Context(), r, actor, audit.EventPublished, resource, v.ID.Hex(), v.Title)
		h.announce(r, v)
	}
	respond.OK(w, view(v))
}

// HandlePublish publishes a video and announces it the first time.
//
// Route: POST /api/admin/videos/{id}/publish
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor := shared.Actor(r)
	v, first, err := h.Videos.Publish(ctx, id, actor)
	if err != nil {
		h.storeError(w, r, "publish video failed", err)
		return
	}
	var res notify.Result
	if first {
		h.Audit.Admin(r.Context(), r, actor, audit.EventPublished, resource, v.ID.Hex(), v.Title)
		res = h.announce(r, v)
	}
	respond.OK(w, publishResponse{Video: view(v), Announce: res})
}

// HandleDelete removes a video and its comment threads.
//
// Route: DELETE /api/admin/videos/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	v, err := h.Videos.GetByID(ctx, id)
	if err != nil {
		h.storeError(w, r, "delete video: load failed", err)
		return
	}
	if err := h.Videos.Delete(ctx, id); err != nil {
		h.storeError(w, r, "delete video failed", err)
		return
	}
	n, err := h.Comments.DeleteForTarget(ctx, models.TargetVideo, id)
	if err != nil {
		h.Log.Error("delete video comments failed", zap.Error(err), zap.String("video_id", id.Hex()))
	}
	h.Audit.Admin(r.Context(), r, shared.Actor(r), audit.EventDeleted, resource, id.Hex(), v.Title)
	h.Log.Info("video deleted", zap.String("video_id", id.Hex()), zap.Int64("comments", n))
	respond.NoContent(w)
}

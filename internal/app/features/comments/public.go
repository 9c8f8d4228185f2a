// internal/app/features/comments/public.go
package comments

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	commentstore "github.com/dalemusser/fiiportal/internal/app/store/comments"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/app/system/ratelimit"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeList returns the threads on one video or report.
//
// Route: GET /api/comments?target_type=&target_id=&before=&limit=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	targetType := strings.ToLower(query.Get(r, "target_type"))
	if !models.IsValidTarget(targetType) {
		respond.BadRequest(w, r, "target_type must be 'video' or 'report'")
		return
	}
	targetID, err := primitive.ObjectIDFromHex(query.Get(r, "target_id"))
	if err != nil {
		respond.BadRequest(w, r, "invalid target_id")
		return
	}
	before, ok := shared.Before(w, r)
	if !ok {
		return
	}
	limit := paging.ParseLimit(r, paging.DefaultLimit, paging.MaxLimit)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Comments.ListThreads(ctx, targetType, targetID, before, limit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list comments failed", err)
		return
	}
	me := viewer(r)
	out := paging.Page[threadView]{
		Items:      make([]threadView, 0, len(page.Items)),
		NextBefore: page.NextBefore,
		HasMore:    page.HasMore,
	}
	for _, t := range page.Items {
		tv := threadView{commentView: view(t.Root, me), Replies: make([]commentView, len(t.Replies))}
		for i, rep := range t.Replies {
			tv.Replies[i] = view(rep, me)
		}
		out.Items = append(out.Items, tv)
	}
	respond.OK(w, out)
}

type createInput struct {
	TargetType string  `json:"target_type"`
	TargetID   string  `json:"target_id"`
	ParentID   *string `json:"parent_id"`
	Content    string  `json:"content"`
}

// HandleCreate posts a comment or a reply as the signed-in member.
//
// Route: POST /api/comments
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	m, ok := member(w, r)
	if !ok {
		return
	}
	var in createInput
	if err := respond.DecodeJSON(w, r, &in, shared.MaxJSONBody); err != nil {
		respond.BadRequest(w, r, "invalid JSON body")
		return
	}
	in.TargetType = strings.ToLower(strings.TrimSpace(in.TargetType))
	if in.TargetType == "" || in.TargetID == "" {
		respond.BadRequest(w, r, "target_type and target_id are required")
		return
	}
	if !models.IsValidTarget(in.TargetType) {
		respond.BadRequest(w, r, "target_type must be 'video' or 'report'")
		return
	}
	targetID, err := primitive.ObjectIDFromHex(in.TargetID)
	if err != nil {
		respond.BadRequest(w, r, "invalid target_id")
		return
	}
	var parentID *primitive.ObjectID
	if in.ParentID != nil && *in.ParentID != "" {
		pid, err := primitive.ObjectIDFromHex(*in.ParentID)
		if err != nil {
			respond.BadRequest(w, r, "invalid parent_id")
			return
		}
		parentID = &pid
	}
	if _, err := commentstore.CleanContent(in.Content); err != nil {
		respond.BadRequest(w, r, err.Error())
		return
	}
	if h.Posts != nil && !h.Posts.Allow(m.UserID) {
		respond.TooManyRequests(w, r, "too many comments, try again in a minute")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	exists, err := h.targetExists(ctx, in.TargetType, targetID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create comment: target lookup failed", err)
		return
	}
	if !exists {
		respond.NotFound(w, r, in.TargetType+" not found")
		return
	}

	c, err := h.Comments.Create(ctx, models.Comment{
		TargetType: in.TargetType,
		TargetID:   targetID,
		ParentID:   parentID,
		UserID:     m.UserID,
		UserName:   m.DisplayName(),
		UserImage:  m.ImageURL,
		Content:    in.Content,
	})
	switch {
	case errors.Is(err, commentstore.ErrParentNotFound):
		respond.NotFound(w, r, "parent comment not found")
		return
	case errors.Is(err, commentstore.ErrInvalid):
		respond.BadRequest(w, r, err.Error())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "create comment failed", err)
		return
	}

	if c.ParentID != nil {
		h.notifyParent(ctx, c)
	}
	respond.Created(w, view(c, m.UserID))
}

func (h *Handler) notifyParent(ctx context.Context, reply models.Comment) {
	if h.Notifier == nil {
		return
	}
	parent, err := h.Comments.GetByID(ctx, *reply.ParentID)
	if err != nil {
		h.Log.Warn("reply notification: parent lookup failed", zap.Error(err))
		return
	}
	if err := h.Notifier.Reply(ctx, parent, reply, h.Notifier.Link(targetPath(reply))); err != nil {
		h.Log.Warn("reply notification failed", zap.Error(err), zap.String("comment_id", reply.ID.Hex()))
	}
}

type editInput struct {
	Content string `json:"content"`
}

// HandleUpdate edits the member's own comment.
//
// Route: PUT /api/comments/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	m, ok := member(w, r)
	if !ok {
		return
	}
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	var in editInput
	if err := respond.DecodeJSON(w, r, &in, shared.MaxJSONBody); err != nil {
		respond.BadRequest(w, r, "invalid JSON body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Comments.UpdateContent(ctx, id, m.UserID, in.Content)
	switch {
	case errors.Is(err, commentstore.ErrInvalid):
		respond.BadRequest(w, r, err.Error())
	case errors.Is(err, commentstore.ErrNotFound):
		respond.NotFound(w, r, "comment not found")
	case errors.Is(err, commentstore.ErrNotOwner):
		respond.Forbidden(w, r, "you can only edit your own comments")
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update comment failed", err)
	default:
		respond.OK(w, view(c, m.UserID))
	}
}

// HandleDelete removes a comment and its replies. Members may delete their
// own comments; admins may delete any.
//
// Route: DELETE /api/comments/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	actor := shared.Actor(r)
	me := viewer(r)
	if actor == "" && me == "" {
		respond.Unauthorized(w, r)
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
		h.ErrLog.LogServerError(w, r, "delete comment: load failed", err)
		return
	}
	if actor == "" && c.UserID != me {
		respond.Forbidden(w, r, "you can only delete your own comments")
		return
	}
	h.remove(ctx, w, r, c, actor)
}

func (h *Handler) remove(ctx context.Context, w http.ResponseWriter, r *http.Request, c models.Comment, actor string) {
	n, err := h.Comments.Delete(ctx, c.ID)
	if errors.Is(err, commentstore.ErrNotFound) {
		respond.NotFound(w, r, "comment not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete comment failed", err)
		return
	}
	if actor != "" {
		h.Audit.Admin(ctx, r, actor, audit.EventDeleted, "comment", c.ID.Hex(), "")
	}
	h.Log.Info("comment deleted",
		zap.String("comment_id", c.ID.Hex()),
		zap.Int64("removed", n),
		zap.String("ip", ratelimit.ClientIP(r)))
	respond.NoContent(w)
}

type likeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// HandleLike toggles the member's like.
//
// Route: POST /api/comments/{id}/like
func (h *Handler) HandleLike(w http.ResponseWriter, r *http.Request) {
	m, ok := member(w, r)
	if !ok {
		return
	}
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	liked, count, err := h.Comments.ToggleLike(ctx, id, m.UserID)
	if errors.Is(err, commentstore.ErrNotFound) {
		respond.NotFound(w, r, "comment not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "toggle like failed", err)
		return
	}
	respond.OK(w, likeResponse{Liked: liked, LikeCount: count})
}

// internal/app/features/notifications/broadcast.go
package notifications

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	"github.com/dalemusser/fiiportal/internal/app/system/notify"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.uber.org/zap"
)

// Broadcast field bounds.
const (
	maxTitle   = 200
	maxMessage = 2000
)

type broadcastInput struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link"`
	Email   bool   `json:"email"`
	UserID  string `json:"user_id"`
}

// HandleBroadcast sends an admin message to every subscriber, or to one
// member when user_id is set.
//
// Route: POST /api/admin/notifications
func (h *Handler) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	var in broadcastInput
	if err := respond.DecodeJSON(w, r, &in, shared.MaxJSONBody); err != nil {
		respond.BadRequest(w, r, "invalid JSON body")
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	in.Link = strings.TrimSpace(in.Link)
	in.UserID = strings.TrimSpace(in.UserID)
	switch {
	case in.Title == "":
		respond.BadRequest(w, r, "title is required")
		return
	case len([]rune(in.Title)) > maxTitle:
		respond.BadRequest(w, r, "title is too long")
		return
	case len([]rune(in.Message)) > maxMessage:
		respond.BadRequest(w, r, "message is too long")
		return
	case in.Link != "" && !isPortalPath(in.Link) && !strings.HasPrefix(in.Link, "https://"):
		respond.BadRequest(w, r, "link must be a portal path or an https URL")
		return
	}
	if isPortalPath(in.Link) {
		in.Link = h.Notifier.Link(in.Link)
	}

	m := notify.Message{
		Type:    models.NotificationBroadcast,
		Title:   in.Title,
		Message: in.Message,
		Link:    in.Link,
		Email:   in.Email,
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	var (
		res notify.Result
		err error
	)
	if in.UserID != "" {
		res, err = h.Notifier.ToUser(ctx, in.UserID, m)
	} else {
		res, err = h.Notifier.FanOut(ctx, m)
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "broadcast failed", err, zap.Int("notified", res.Notified))
		return
	}
	target := in.UserID
	if target == "" {
		target = "all"
	}
	h.Audit.Admin(ctx, r, shared.Actor(r), audit.EventBroadcast, "notification", target, in.Title)
	respond.OK(w, res)
}

func isPortalPath(s string) bool {
	return strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//")
}

// internal/app/features/comments/handler.go
package comments

import (
	"context"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	commentstore "github.com/dalemusser/fiiportal/internal/app/store/comments"
	reportstore "github.com/dalemusser/fiiportal/internal/app/store/reports"
	videostore "github.com/dalemusser/fiiportal/internal/app/store/videos"
	"github.com/dalemusser/fiiportal/internal/app/system/auditlog"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/notify"
	"github.com/dalemusser/fiiportal/internal/app/system/ratelimit"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Posting limits per member.
const (
	PostLimit  = 10
	PostWindow = time.Minute
)

// Handler serves comment threads, member posting and likes, and the admin
// moderation list.
type Handler struct {
	Comments *commentstore.Store
	Videos   *videostore.Store
	Reports  *reportstore.Store
	Notifier *notify.Notifier // nil disables reply notifications
	Posts    *ratelimit.Limiter
	Audit    *auditlog.Logger
	ErrLog   *errorsfeature.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs a comments Handler bound to db. Call Close on
// shutdown to stop the posting limiter.
func NewHandler(db *mongo.Database, notifier *notify.Notifier, audit *auditlog.Logger, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Comments: commentstore.New(db),
		Videos:   videostore.New(db),
		Reports:  reportstore.New(db),
		Notifier: notifier,
		Posts:    ratelimit.New(PostLimit, PostWindow),
		Audit:    audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// Close stops the posting limiter's sweeper.
func (h *Handler) Close() {
	if h.Posts != nil {
		h.Posts.Stop()
	}
}

// commentView adds like state for the viewer.
type commentView struct {
	models.Comment
	LikeCount int  `json:"like_count"`
	LikedByMe bool `json:"liked_by_me"`
}

type threadView struct {
	commentView
	Replies []commentView `json:"replies"`
}

func view(c models.Comment, viewer string) commentView {
	return commentView{
		Comment:   c,
		LikeCount: len(c.Likes),
		LikedByMe: viewer != "" && c.LikedBy(viewer),
	}
}

func viewer(r *http.Request) string {
	if m, ok := auth.CurrentMember(r); ok {
		return m.UserID
	}
	return ""
}

// member writes 401 when no member is signed in.
func member(w http.ResponseWriter, r *http.Request) (*auth.Member, bool) {
	m, ok := auth.CurrentMember(r)
	if !ok {
		respond.Unauthorized(w, r)
		return nil, false
	}
	return m, true
}

// targetExists reports whether the commented item exists and is published.
func (h *Handler) targetExists(ctx context.Context, targetType string, id primitive.ObjectID) (bool, error) {
	switch targetType {
	case models.TargetVideo:
		return h.Videos.Exists(ctx, id, true)
	case models.TargetReport:
		return h.Reports.Exists(ctx, id, true)
	}
	return false, nil
}

// targetPath is the portal page of a commented item.
func targetPath(c models.Comment) string {
	base := "/videos/"
	if c.TargetType == models.TargetReport {
		base = "/reports/"
	}
	return base + c.TargetID.Hex() + "#comment-" + c.ID.Hex()
}

// internal/app/features/videos/handler.go
package videos

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	commentstore "github.com/dalemusser/fiiportal/internal/app/store/comments"
	videostore "github.com/dalemusser/fiiportal/internal/app/store/videos"
	"github.com/dalemusser/fiiportal/internal/app/system/auditlog"
	"github.com/dalemusser/fiiportal/internal/app/system/notify"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the public video catalog and the admin video backend.
type Handler struct {
	Videos   *videostore.Store
	Comments *commentstore.Store
	Notifier *notify.Notifier // nil disables announcements
	Audit    *auditlog.Logger
	ErrLog   *errorsfeature.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs a videos Handler bound to db.
func NewHandler(db *mongo.Database, notifier *notify.Notifier, audit *auditlog.Logger, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Videos:   videostore.New(db),
		Comments: commentstore.New(db),
		Notifier: notifier,
		Audit:    audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// videoView adds the player URL to a video.
type videoView struct {
	models.Video
	EmbedURL string `json:"embed_url"`
}

func view(v models.Video) videoView {
	return videoView{Video: v, EmbedURL: videostore.EmbedURL(v.Platform, v.EmbedID)}
}

func views(vs []models.Video) []videoView {
	out := make([]videoView, len(vs))
	for i, v := range vs {
		out[i] = view(v)
	}
	return out
}

// announce fans a newly published video out to subscribers. Failures are
// logged; the publish itself already succeeded.
func (h *Handler) announce(r *http.Request, v models.Video) notify.Result {
	if h.Notifier == nil {
		return notify.Result{}
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Batch())
	defer cancel()
	res, err := h.Notifier.ContentPublished(ctx, models.TargetVideo, v.ID.Hex(), v.Title, v.Description)
	if err != nil {
		h.Log.Error("announce video failed", zap.Error(err), zap.String("video_id", v.ID.Hex()))
	}
	return res
}

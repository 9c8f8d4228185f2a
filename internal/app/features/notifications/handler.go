// internal/app/features/notifications/handler.go
package notifications

import (
	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	notificationstore "github.com/dalemusser/fiiportal/internal/app/store/notifications"
	"github.com/dalemusser/fiiportal/internal/app/system/auditlog"
	"github.com/dalemusser/fiiportal/internal/app/system/notify"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves a member's notification inbox and the admin broadcast.
type Handler struct {
	Notes    *notificationstore.Store
	Notifier *notify.Notifier
	Audit    *auditlog.Logger
	ErrLog   *errorsfeature.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, notifier *notify.Notifier, audit *auditlog.Logger, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Notes:    notificationstore.New(db),
		Notifier: notifier,
		Audit:    audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	goalstore "github.com/dalemusser/fiiportal/internal/app/store/goals"
	notificationstore "github.com/dalemusser/fiiportal/internal/app/store/notifications"
	subscriberstore "github.com/dalemusser/fiiportal/internal/app/store/subscribers"
	"github.com/dalemusser/fiiportal/internal/app/system/auditlog"
	"github.com/dalemusser/fiiportal/internal/app/system/filestore"
	"github.com/dalemusser/fiiportal/internal/app/system/mailer"
	"github.com/dalemusser/fiiportal/internal/app/system/marketdata"
	"github.com/dalemusser/fiiportal/internal/app/system/metrics"
	"github.com/dalemusser/fiiportal/internal/app/system/notify"
	"github.com/dalemusser/fiiportal/internal/app/system/ratelimit"
	"github.com/dalemusser/fiiportal/internal/app/system/tasks"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// services are the long-lived components shared by BuildHandler and
// stopped by Shutdown.
type services struct {
	metrics  *metrics.Registry
	mail     *workers.MailQueue
	runner   *tasks.Runner
	files    storage.Store
	quotes   *marketdata.Client
	notifier *notify.Notifier
	audit    *auditlog.Logger
	logins   *ratelimit.LoginLimiter

	// stops registered by BuildHandler for per-feature resources
	closers []func()
}

var svc *services

var errNotStarted = errors.New("bootstrap: Startup has not run")

// Startup builds the shared services once the database is ready and starts
// the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	files, err := newFileStore(ctx, appCfg)
	if err != nil {
		logger.Error("file storage init failed", zap.Error(err), zap.String("storage_type", appCfg.StorageType))
		return err
	}

	reg := metrics.New()
	sender := mailer.New(mailer.Config{
		APIKey:   appCfg.ResendAPIKey,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
	mail := workers.NewMailQueue(sender, appCfg.MailQueueSize, timeouts.Medium(), reg, logger)

	db := deps.MongoDatabase
	s := &services{
		metrics: reg,
		mail:    mail,
		runner:  tasks.NewRunner(logger),
		files:   files,
		quotes: marketdata.New(marketdata.Config{
			BaseURL: appCfg.MarketBaseURL,
			Token:   appCfg.MarketAPIToken,
			Timeout: appCfg.MarketTimeout,
		}, reg, logger),
		notifier: &notify.Notifier{
			Subs:     subscriberstore.New(db),
			Notes:    notificationstore.New(db),
			Mail:     mail,
			Counter:  reg,
			SiteName: appCfg.SiteName,
			BaseURL:  appCfg.BaseURL,
			Log:      logger,
		},
		audit: auditlog.New(audit.New(db), logger, auditlog.Config{
			Auth:  appCfg.AuditLogAuth,
			Admin: appCfg.AuditLogAdmin,
		}),
		logins: ratelimit.NewLoginLimiter(),
	}

	s.runner.Add(tasks.NotificationCleanup(notificationstore.New(db), tasks.NotificationRetention, logger))
	if appCfg.GoalsRecalcInterval > 0 {
		s.runner.Add(tasks.GoalsRecalc(goalstore.New(db), appCfg.GoalsRecalcInterval))
	}

	mail.Start()
	s.runner.Start()
	svc = s

	logger.Info("portal services started",
		zap.String("storage_type", appCfg.StorageType),
		zap.Bool("email_enabled", strings.TrimSpace(appCfg.ResendAPIKey) != ""),
		zap.Bool("market_enabled", appCfg.MarketBaseURL != ""),
		zap.Strings("jobs", s.runner.Jobs()))
	return nil
}

// newFileStore picks the report storage backend.
func newFileStore(ctx context.Context, appCfg AppConfig) (storage.Store, error) {
	initCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	return filestore.New(initCtx, filestore.Config{
		Type:       appCfg.StorageType,
		LocalPath:  appCfg.StorageLocalPath,
		LocalURL:   appCfg.StorageLocalURL,
		S3Endpoint: appCfg.StorageS3Endpoint,
		S3Access:   appCfg.StorageS3Access,
		S3Secret:   appCfg.StorageS3Secret,
		S3Bucket:   appCfg.StorageS3Bucket,
		S3Region:   appCfg.StorageS3Region,
	})
}

// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.uber.org/zap"
)

// NotificationRetention is how long read notifications are kept.
const NotificationRetention = 90 * 24 * time.Hour

// ReadPurger deletes read notifications older than a cutoff.
type ReadPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GoalRecalculator refreshes the current value of active goals.
type GoalRecalculator interface {
	RecalculateActive(ctx context.Context) ([]models.Goal, error)
}

// NotificationCleanup deletes read notifications past retention, hourly.
func NotificationCleanup(store ReadPurger, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:       "notification_cleanup",
		Interval:   time.Hour,
		Timeout:    2 * time.Minute,
		RunAtStart: true,
		Run: func(ctx context.Context) error {
			n, err := store.DeleteReadBefore(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("deleted old read notifications", zap.Int64("count", n))
			}
			return nil
		},
	}
}

// GoalsRecalc refreshes active goals every interval so the stored values
// stay close even when nobody loads the goals page.
func GoalsRecalc(store GoalRecalculator, interval time.Duration) Job {
	return Job{
		Name:     "goals_recalc",
		Interval: interval,
		Timeout:  time.Minute,
		Run: func(ctx context.Context) error {
			_, err := store.RecalculateActive(ctx)
			return err
		},
	}
}

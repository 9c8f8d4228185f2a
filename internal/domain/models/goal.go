// internal/domain/models/goal.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Goal metrics. Each one names the collection a goal's current value is
// computed from.
const (
	MetricSubscribers = "subscribers"
	MetricComments    = "comments"
	MetricLikes       = "likes"
	MetricVideos      = "videos"
	MetricReports     = "reports"
)

// GoalMetrics is the set of allowed goal metrics.
var GoalMetrics = []string{
	MetricSubscribers,
	MetricComments,
	MetricLikes,
	MetricVideos,
	MetricReports,
}

// IsValidMetric reports whether m is a known goal metric.
func IsValidMetric(m string) bool {
	for _, v := range GoalMetrics {
		if v == m {
			return true
		}
	}
	return false
}

// Goal is a community target shown on the portal (e.g. "1000 subscribers").
// Current is derived and overwritten on every recalculation.
type Goal struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Metric      string             `bson:"metric" json:"metric"`
	Target      int64              `bson:"target" json:"target"`
	Current     int64              `bson:"current" json:"current"`
	Active      bool               `bson:"active" json:"active"`

	CalculatedAt *time.Time `bson:"calculated_at,omitempty" json:"calculated_at,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
}

// Progress returns Current/Target clamped to [0,1].
func (g Goal) Progress() float64 {
	if g.Target <= 0 {
		return 0
	}
	p := float64(g.Current) / float64(g.Target)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

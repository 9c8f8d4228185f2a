// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUnknown       = "login_failed_unknown_admin"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedDisabled      = "login_failed_disabled"
	EventLoginFailedNotAllowed    = "login_failed_not_allowlisted"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventLogout                   = "logout"
)

// Admin event types. The affected resource ("video", "report", "comment",
// "goal", "dataset", "notification") is in Details["resource"].
const (
	EventCreated   = "created"
	EventUpdated   = "updated"
	EventDeleted   = "deleted"
	EventPublished = "published"
	EventUploaded  = "file_uploaded"
	EventBroadcast = "broadcast_sent"
)

// Event is one audit record.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"event_type"`

	// admin email for admin actions, attempted email for failed logins
	ActorEmail string `bson:"actor_email,omitempty" json:"actor_email,omitempty"`

	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`

	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter narrows Query. Zero values match everything.
type QueryFilter struct {
	Category   string
	EventType  string
	ActorEmail string
	Since      *time.Time
	Before     *primitive.ObjectID
	Limit      int
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log inserts an event, stamping the id and timestamp when unset.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns a newest-first page of events.
func (s *Store) Query(ctx context.Context, f QueryFilter) (paging.Page[Event], error) {
	query := bson.M{}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}
	if f.ActorEmail != "" {
		query["actor_email"] = f.ActorEmail
	}
	if f.Since != nil {
		query["timestamp"] = bson.M{"$gte": *f.Since}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	var rows []Event
	cur, err := s.c.Find(ctx, query, paging.NewestFirst(query, f.Before, limit))
	if err != nil {
		return paging.Page[Event]{}, err
	}
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[Event]{}, err
	}
	return paging.BuildPage(rows, limit, func(e Event) primitive.ObjectID { return e.ID }), nil
}

// CountFailedLogins counts failed logins for email since t.
func (s *Store) CountFailedLogins(ctx context.Context, email string, since time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"category":    CategoryAuth,
		"success":     false,
		"actor_email": email,
		"timestamp":   bson.M{"$gte": since},
	})
}

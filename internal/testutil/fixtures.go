package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that call handlers without the router.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures inserts test documents directly, bypassing stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert test %s: %v", coll, err)
	}
}

// CreateVideo inserts a YouTube video with the given status.
func (f *Fixtures) CreateVideo(ctx context.Context, title, status string) models.Video {
	f.t.Helper()
	now := time.Now().UTC()
	v := models.Video{
		ID:        primitive.NewObjectID(),
		Title:     title,
		TitleCI:   text.Fold(title),
		URL:       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Platform:  models.PlatformYouTube,
		EmbedID:   "dQw4w9WgXcQ",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == models.StatusPublished {
		v.PublishedAt = &now
	}
	f.insert(ctx, "videos", v)
	return v
}

// CreateReport inserts a report backed by an external URL.
func (f *Fixtures) CreateReport(ctx context.Context, title, status string) models.Report {
	f.t.Helper()
	now := time.Now().UTC()
	r := models.Report{
		ID:          primitive.NewObjectID(),
		Title:       title,
		TitleCI:     text.Fold(title),
		ExternalURL: "https://files.test/" + primitive.NewObjectID().Hex() + ".pdf",
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status == models.StatusPublished {
		r.PublishedAt = &now
	}
	f.insert(ctx, "reports", r)
	return r
}

// CreateComment inserts a comment by userID on the target. parent may be nil.
func (f *Fixtures) CreateComment(ctx context.Context, targetType string, targetID primitive.ObjectID, parent *primitive.ObjectID, userID, content string) models.Comment {
	f.t.Helper()
	now := time.Now().UTC()
	c := models.Comment{
		ID:         primitive.NewObjectID(),
		TargetType: targetType,
		TargetID:   targetID,
		ParentID:   parent,
		UserID:     userID,
		UserName:   "Test " + userID,
		Content:    content,
		Likes:      []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "comments", c)
	return c
}

// CreateSubscriber inserts a subscriber.
func (f *Fixtures) CreateSubscriber(ctx context.Context, userID, email string, optIn bool) models.Subscriber {
	f.t.Helper()
	now := time.Now().UTC()
	s := models.Subscriber{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		Email:      email,
		Name:       "Assinante " + userID,
		EmailOptIn: optIn,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "subscribers", s)
	return s
}

// CreateAdmin inserts an active admin with the given password.
// An empty password creates a Google-only account.
func (f *Fixtures) CreateAdmin(ctx context.Context, email, password string) models.Admin {
	f.t.Helper()
	now := time.Now().UTC()
	a := models.Admin{
		ID:        primitive.NewObjectID(),
		Email:     email,
		EmailCI:   text.Fold(email),
		Name:      "Admin " + email,
		Status:    models.AdminActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			f.t.Fatalf("hash password: %v", err)
		}
		a.PasswordHash = string(hash)
	}
	f.insert(ctx, "admins", a)
	return a
}

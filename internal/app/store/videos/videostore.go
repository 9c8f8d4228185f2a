// internal/app/store/videos/videostore.go
package videostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/fiiportal/internal/app/store/catalog"
	"github.com/dalemusser/fiiportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("video not found")
	ErrInvalid  = errors.New("invalid video")
)

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalid, msg) }

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("videos")}
}

// Update carries the fields of a PUT. Nil fields are left unchanged.
type Update struct {
	Title        *string
	Description  *string
	URL          *string
	ThumbnailURL *string
	Category     *string
	Tickers      *[]string
	Premium      *bool
	Status       *string
	UpdatedBy    string
}

// Create validates v, derives platform/embed id from the URL and inserts it.
// A video created as published gets PublishedAt now.
func (s *Store) Create(ctx context.Context, v models.Video) (models.Video, error) {
	v.Title = strings.TrimSpace(v.Title)
	if v.Title == "" {
		return models.Video{}, invalid("title is required")
	}
	platform, embedID, ok := ParseVideoURL(v.URL)
	if !ok {
		return models.Video{}, invalid("url must be a YouTube or Vimeo link")
	}
	if v.Status == "" {
		v.Status = models.StatusDraft
	}
	if !models.IsValidStatus(v.Status) {
		return models.Video{}, invalid("status must be 'draft' or 'published'")
	}
	if v.ThumbnailURL != "" && !urlutil.IsValidAbsHTTPURL(v.ThumbnailURL) {
		return models.Video{}, invalid("thumbnail_url must be a valid http(s) URL")
	}
	tickers, err := models.NormalizeTickers(v.Tickers)
	if err != nil {
		return models.Video{}, invalid(err.Error())
	}

	now := time.Now().UTC()
	v.ID = primitive.NewObjectID()
	v.TitleCI = text.Fold(v.Title)
	v.Description = htmlsanitize.Sanitize(v.Description)
	v.URL = strings.TrimSpace(v.URL)
	v.Platform, v.EmbedID = platform, embedID
	if v.ThumbnailURL == "" {
		v.ThumbnailURL = DefaultThumbnail(platform, embedID)
	}
	v.Category = strings.TrimSpace(v.Category)
	v.Tickers = tickers
	v.PublishedAt = nil
	if v.Status == models.StatusPublished {
		v.PublishedAt = &now
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	v.UpdatedBy = v.CreatedBy

	if _, err := s.c.InsertOne(ctx, v); err != nil {
		return models.Video{}, err
	}
	return v, nil
}

// Update applies u and returns the stored video. Moving to draft clears
// PublishedAt; moving to published sets it if it was unset.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Video, error) {
	set := bson.M{}
	unset := bson.M{}

	if u.Title != nil {
		t := strings.TrimSpace(*u.Title)
		if t == "" {
			return models.Video{}, invalid("title is required")
		}
		set["title"] = t
		set["title_ci"] = text.Fold(t)
	}
	if u.Description != nil {
		set["description"] = htmlsanitize.Sanitize(*u.Description)
	}
	if u.URL != nil {
		platform, embedID, ok := ParseVideoURL(*u.URL)
		if !ok {
			return models.Video{}, invalid("url must be a YouTube or Vimeo link")
		}
		set["url"] = strings.TrimSpace(*u.URL)
		set["platform"] = platform
		set["embed_id"] = embedID
		if u.ThumbnailURL == nil {
			set["thumbnail_url"] = DefaultThumbnail(platform, embedID)
		}
	}
	if u.ThumbnailURL != nil {
		if *u.ThumbnailURL != "" && !urlutil.IsValidAbsHTTPURL(*u.ThumbnailURL) {
			return models.Video{}, invalid("thumbnail_url must be a valid http(s) URL")
		}
		set["thumbnail_url"] = *u.ThumbnailURL
	}
	if u.Category != nil {
		set["category"] = strings.TrimSpace(*u.Category)
	}
	if u.Tickers != nil {
		tickers, err := models.NormalizeTickers(*u.Tickers)
		if err != nil {
			return models.Video{}, invalid(err.Error())
		}
		set["tickers"] = tickers
	}
	if u.Premium != nil {
		set["premium"] = *u.Premium
	}
	if u.Status != nil {
		if !models.IsValidStatus(*u.Status) {
			return models.Video{}, invalid("status must be 'draft' or 'published'")
		}
		set["status"] = *u.Status
		if *u.Status == models.StatusDraft {
			unset["published_at"] = ""
		}
	}
	if u.UpdatedBy != "" {
		set["updated_by"] = u.UpdatedBy
	}
	set["updated_at"] = time.Now().UTC()

	upd := bson.M{"$set": set}
	if len(unset) > 0 {
		upd["$unset"] = unset
	}
	res, err := s.c.UpdateByID(ctx, id, upd)
	if err != nil {
		return models.Video{}, err
	}
	if res.MatchedCount == 0 {
		return models.Video{}, ErrNotFound
	}
	if u.Status != nil && *u.Status == models.StatusPublished {
		if err := s.stampPublished(ctx, id); err != nil {
			return models.Video{}, err
		}
	}
	return s.GetByID(ctx, id)
}

func (s *Store) stampPublished(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "published_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"published_at": time.Now().UTC()}})
	return err
}

// Publish marks the video published. first is true only when this call
// moved it out of draft, so callers announce each video once.
func (s *Store) Publish(ctx context.Context, id primitive.ObjectID, by string) (v models.Video, first bool, err error) {
	now := time.Now().UTC()
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.StatusPublished}},
		bson.M{"$set": bson.M{
			"status":       models.StatusPublished,
			"published_at": now,
			"updated_at":   now,
			"updated_by":   by,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&v)
	if err == nil {
		return v, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Video{}, false, err
	}
	v, err = s.GetByID(ctx, id)
	return v, false, err
}

// GetByID returns a video in any status.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Video, error) {
	var v models.Video
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, err
	}
	return v, nil
}

// GetPublished returns a published video; drafts are ErrNotFound.
func (s *Store) GetPublished(ctx context.Context, id primitive.ObjectID) (models.Video, error) {
	v, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Video{}, err
	}
	if !v.IsPublished() {
		return models.Video{}, ErrNotFound
	}
	return v, nil
}

// Exists reports whether a video with id exists, optionally only published.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID, publishedOnly bool) (bool, error) {
	f := bson.M{"_id": id}
	if publishedOnly {
		f["status"] = models.StatusPublished
	}
	n, err := s.c.CountDocuments(ctx, f, options.Count().SetLimit(1))
	return n > 0, err
}

// ListPublished returns one newest-first page of published videos.
func (s *Store) ListPublished(ctx context.Context, l catalog.PublicList) (paging.Page[models.Video], error) {
	limit := l.EffectiveLimit()
	f := l.Filter()
	opts := paging.NewestFirst(f, l.Before, limit)

	var rows []models.Video
	cur, err := s.c.Find(ctx, f, opts)
	if err != nil {
		return paging.Page[models.Video]{}, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Video]{}, err
	}
	return paging.BuildPage(rows, limit, func(v models.Video) primitive.ObjectID { return v.ID }), nil
}

// ListAdmin returns one title-sorted page across all statuses.
func (s *Store) ListAdmin(ctx context.Context, l catalog.AdminList) (paging.KeysetPage[models.Video], int64, error) {
	limit := l.EffectiveLimit()
	base := l.Filter()
	total, err := s.c.CountDocuments(ctx, base)
	if err != nil {
		return paging.KeysetPage[models.Video]{}, 0, err
	}

	cfg := paging.ConfigureKeyset(l.Before, l.After)
	f := catalog.MergeWindow(base, cfg.Window("title_ci"))

	var rows []models.Video
	cur, err := s.c.Find(ctx, f, cfg.Find("title_ci", limit))
	if err != nil {
		return paging.KeysetPage[models.Video]{}, 0, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &rows); err != nil {
		return paging.KeysetPage[models.Video]{}, 0, err
	}
	page := paging.BuildKeysetPage(rows, limit, cfg,
		func(v models.Video) string { return v.TitleCI },
		func(v models.Video) primitive.ObjectID { return v.ID })
	return page, total, nil
}

// CountPublished counts published videos.
func (s *Store) CountPublished(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": models.StatusPublished})
}

// Delete removes a video. It returns ErrNotFound when nothing was deleted.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

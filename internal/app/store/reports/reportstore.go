// internal/app/store/reports/reportstore.go
package reportstore

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
	ErrNotFound   = errors.New("report not found")
	ErrInvalid    = errors.New("invalid report")
	ErrNoDocument = errors.New("report has no file or external URL")
)

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalid, msg) }

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("reports")}
}

// Update carries the fields of a PUT. Nil fields are left unchanged.
// An empty ExternalURL clears it.
type Update struct {
	Title       *string
	Summary     *string
	Category    *string
	Tickers     *[]string
	Premium     *bool
	ExternalURL *string
	Status      *string
	UpdatedBy   string
}

// Create validates and inserts r. The file is attached later with SetFile,
// so a report created as published needs an ExternalURL.
func (s *Store) Create(ctx context.Context, r models.Report) (models.Report, error) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return models.Report{}, invalid("title is required")
	}
	if r.Status == "" {
		r.Status = models.StatusDraft
	}
	if !models.IsValidStatus(r.Status) {
		return models.Report{}, invalid("status must be 'draft' or 'published'")
	}
	r.ExternalURL = strings.TrimSpace(r.ExternalURL)
	if r.ExternalURL != "" && !urlutil.IsValidAbsHTTPURL(r.ExternalURL) {
		return models.Report{}, invalid("external_url must be a valid http(s) URL")
	}
	tickers, err := models.NormalizeTickers(r.Tickers)
	if err != nil {
		return models.Report{}, invalid(err.Error())
	}

	r.FileKey, r.FileName, r.FileSize = "", "", 0
	if r.Status == models.StatusPublished && !r.HasDocument() {
		return models.Report{}, ErrNoDocument
	}

	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.TitleCI = text.Fold(r.Title)
	r.Summary = htmlsanitize.Sanitize(r.Summary)
	r.Category = strings.TrimSpace(r.Category)
	r.Tickers = tickers
	r.PublishedAt = nil
	if r.Status == models.StatusPublished {
		r.PublishedAt = &now
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	r.UpdatedBy = r.CreatedBy

	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Report{}, err
	}
	return r, nil
}

// Update applies u and returns the stored report. Publishing requires a
// file or external URL after the update is applied.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Report, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Report{}, err
	}

	set := bson.M{}
	unset := bson.M{}
	if u.Title != nil {
		t := strings.TrimSpace(*u.Title)
		if t == "" {
			return models.Report{}, invalid("title is required")
		}
		set["title"] = t
		set["title_ci"] = text.Fold(t)
	}
	if u.Summary != nil {
		set["summary"] = htmlsanitize.Sanitize(*u.Summary)
	}
	if u.Category != nil {
		set["category"] = strings.TrimSpace(*u.Category)
	}
	if u.Tickers != nil {
		tickers, err := models.NormalizeTickers(*u.Tickers)
		if err != nil {
			return models.Report{}, invalid(err.Error())
		}
		set["tickers"] = tickers
	}
	if u.Premium != nil {
		set["premium"] = *u.Premium
	}
	if u.ExternalURL != nil {
		ext := strings.TrimSpace(*u.ExternalURL)
		if ext != "" && !urlutil.IsValidAbsHTTPURL(ext) {
			return models.Report{}, invalid("external_url must be a valid http(s) URL")
		}
		if ext == "" {
			unset["external_url"] = ""
		} else {
			set["external_url"] = ext
		}
		cur.ExternalURL = ext
	}

	status := cur.Status
	if u.Status != nil {
		if !models.IsValidStatus(*u.Status) {
			return models.Report{}, invalid("status must be 'draft' or 'published'")
		}
		status = *u.Status
		set["status"] = status
		if status == models.StatusDraft {
			unset["published_at"] = ""
		} else if cur.PublishedAt == nil {
			set["published_at"] = time.Now().UTC()
		}
	}
	if status == models.StatusPublished && !cur.HasDocument() {
		return models.Report{}, ErrNoDocument
	}
	if u.UpdatedBy != "" {
		set["updated_by"] = u.UpdatedBy
	}
	set["updated_at"] = time.Now().UTC()

	upd := bson.M{"$set": set}
	if len(unset) > 0 {
		upd["$unset"] = unset
	}
	var out models.Report
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, upd,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Report{}, ErrNotFound
	}
	return out, err
}

// SetFile records an uploaded PDF and returns the key it replaced, if any,
// so the caller can delete the old object.
func (s *Store) SetFile(ctx context.Context, id primitive.ObjectID, key, name string, size int64, by string) (oldKey string, err error) {
	var before models.Report
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"file_key":   key,
			"file_name":  name,
			"file_size":  size,
			"updated_at": time.Now().UTC(),
			"updated_by": by,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return before.FileKey, nil
}

// Publish marks the report published. first is true only when this call
// moved it out of draft.
func (s *Store) Publish(ctx context.Context, id primitive.ObjectID, by string) (r models.Report, first bool, err error) {
	r, err = s.GetByID(ctx, id)
	if err != nil {
		return models.Report{}, false, err
	}
	if r.IsPublished() {
		return r, false, nil
	}
	if !r.HasDocument() {
		return models.Report{}, false, ErrNoDocument
	}
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
	).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// lost a race with another publish
		r, err = s.GetByID(ctx, id)
		return r, false, err
	}
	if err != nil {
		return models.Report{}, false, err
	}
	return r, true, nil
}

// GetByID returns a report in any status.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Report, error) {
	var r models.Report
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Report{}, ErrNotFound
		}
		return models.Report{}, err
	}
	return r, nil
}

// GetPublished returns a published report; drafts are ErrNotFound.
func (s *Store) GetPublished(ctx context.Context, id primitive.ObjectID) (models.Report, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Report{}, err
	}
	if !r.IsPublished() {
		return models.Report{}, ErrNotFound
	}
	return r, nil
}

// Exists reports whether a report with id exists, optionally only published.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID, publishedOnly bool) (bool, error) {
	f := bson.M{"_id": id}
	if publishedOnly {
		f["status"] = models.StatusPublished
	}
	n, err := s.c.CountDocuments(ctx, f, options.Count().SetLimit(1))
	return n > 0, err
}

// ListPublished returns one newest-first page of published reports.
func (s *Store) ListPublished(ctx context.Context, l catalog.PublicList) (paging.Page[models.Report], error) {
	limit := l.EffectiveLimit()
	f := l.Filter()
	opts := paging.NewestFirst(f, l.Before, limit)

	var rows []models.Report
	cur, err := s.c.Find(ctx, f, opts)
	if err != nil {
		return paging.Page[models.Report]{}, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Report]{}, err
	}
	return paging.BuildPage(rows, limit, func(r models.Report) primitive.ObjectID { return r.ID }), nil
}

// ListAdmin returns one title-sorted page across all statuses.
func (s *Store) ListAdmin(ctx context.Context, l catalog.AdminList) (paging.KeysetPage[models.Report], int64, error) {
	limit := l.EffectiveLimit()
	base := l.Filter()
	total, err := s.c.CountDocuments(ctx, base)
	if err != nil {
		return paging.KeysetPage[models.Report]{}, 0, err
	}

	cfg := paging.ConfigureKeyset(l.Before, l.After)
	f := catalog.MergeWindow(base, cfg.Window("title_ci"))

	var rows []models.Report
	cur, err := s.c.Find(ctx, f, cfg.Find("title_ci", limit))
	if err != nil {
		return paging.KeysetPage[models.Report]{}, 0, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &rows); err != nil {
		return paging.KeysetPage[models.Report]{}, 0, err
	}
	page := paging.BuildKeysetPage(rows, limit, cfg,
		func(r models.Report) string { return r.TitleCI },
		func(r models.Report) primitive.ObjectID { return r.ID })
	return page, total, nil
}

// CountPublished counts published reports.
func (s *Store) CountPublished(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": models.StatusPublished})
}

// Delete removes a report and returns it so the caller can clean up the
// stored file.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Report, error) {
	var r models.Report
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Report{}, ErrNotFound
	}
	return r, err
}

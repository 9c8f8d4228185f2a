// internal/app/system/paging/paging.go
package paging

import (
	"errors"
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit and MaxLimit bound list endpoints.
const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// ErrBadCursor is returned for a malformed "before" cursor.
var ErrBadCursor = errors.New("invalid cursor")

// ParseLimit reads ?limit=, defaulting to def and clamping to [1, max].
func ParseLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(query.Get(r, "limit"))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

/* ------------------------------------------------------------------------ */
/* Newest-first lists keyed by _id                                          */
/* ------------------------------------------------------------------------ */

// Page is the JSON shape of a newest-first page. NextBefore is passed back
// as ?before= to fetch the following (older) page.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextBefore string `json:"next_before,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// ParseBefore reads ?before=<ObjectID hex>. Missing is (nil, nil).
func ParseBefore(r *http.Request) (*primitive.ObjectID, error) {
	s := query.Get(r, "before")
	if s == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, ErrBadCursor
	}
	return &id, nil
}

// NewestFirst returns find options sorting by _id desc with limit+1 rows
// for look-ahead, and adds the _id < before condition to filter.
func NewestFirst(filter bson.M, before *primitive.ObjectID, limit int) *options.FindOptions {
	if before != nil {
		filter["_id"] = bson.M{"$lt": *before}
	}
	return options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit + 1))
}

// BuildPage trims a look-ahead fetch to limit and fills NextBefore from the
// last kept row.
func BuildPage[T any](rows []T, limit int, idFn func(T) primitive.ObjectID) Page[T] {
	p := Page[T]{Items: rows}
	if len(rows) > limit {
		p.Items = rows[:limit]
		p.HasMore = true
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	if p.HasMore {
		p.NextBefore = idFn(p.Items[len(p.Items)-1]).Hex()
	}
	return p
}

/* ------------------------------------------------------------------------ */
/* Title-sorted admin lists (title_ci, _id) with opaque cursors             */
/* ------------------------------------------------------------------------ */

// Direction of a keyset page.
type Direction int

const (
	Forward  Direction = iota // ascending, "gt" cursor
	Backward                  // descending, "lt" cursor
)

// KeysetConfig is the decoded state of ?before= / ?after= cursors.
type KeysetConfig struct {
	Direction Direction
	SortOrder int
	Cursor    *wafflemongo.Cursor
}

// ConfigureKeyset decodes before/after. before wins when both are set.
func ConfigureKeyset(before, after string) KeysetConfig {
	cfg := KeysetConfig{Direction: Forward, SortOrder: 1}
	raw := after
	if before != "" {
		cfg.Direction = Backward
		cfg.SortOrder = -1
		raw = before
	}
	if raw != "" {
		if c, ok := wafflemongo.DecodeCursor(raw); ok {
			cfg.Cursor = &c
		}
	}
	return cfg
}

// Find returns options sorted on (sortField, _id) in the configured
// direction with limit+1 rows.
func (cfg KeysetConfig) Find(sortField string, limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{
			{Key: sortField, Value: cfg.SortOrder},
			{Key: "_id", Value: cfg.SortOrder},
		}).
		SetLimit(int64(limit + 1))
}

// Window is the filter condition selecting rows past the cursor, or nil.
func (cfg KeysetConfig) Window(sortField string) bson.M {
	if cfg.Cursor == nil {
		return nil
	}
	dir := "gt"
	if cfg.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, cfg.Cursor.CI, cfg.Cursor.ID)
}

// KeysetPage is the JSON shape of a title-sorted page.
type KeysetPage[T any] struct {
	Items      []T    `json:"items"`
	PrevCursor string `json:"prev_cursor,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasPrev    bool   `json:"has_prev"`
	HasNext    bool   `json:"has_next"`
}

// BuildKeysetPage trims a look-ahead fetch, restores ascending order when
// paging backwards and builds both cursors.
func BuildKeysetPage[T any](rows []T, limit int, cfg KeysetConfig, keyFn func(T) string, idFn func(T) primitive.ObjectID) KeysetPage[T] {
	var p KeysetPage[T]
	more := len(rows) > limit
	if more {
		rows = rows[:limit]
	}
	if cfg.Direction == Backward {
		Reverse(rows)
		p.HasPrev = more
		p.HasNext = true
	} else {
		p.HasNext = more
		p.HasPrev = cfg.Cursor != nil
	}
	if rows == nil {
		rows = []T{}
	}
	p.Items = rows
	if len(rows) > 0 {
		first, last := rows[0], rows[len(rows)-1]
		if p.HasPrev {
			p.PrevCursor = wafflemongo.EncodeCursor(keyFn(first), idFn(first))
		}
		if p.HasNext {
			p.NextCursor = wafflemongo.EncodeCursor(keyFn(last), idFn(last))
		}
	}
	return p
}

// Reverse reverses rows in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

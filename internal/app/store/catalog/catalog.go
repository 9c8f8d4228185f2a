// internal/app/store/catalog/catalog.go
//
// Package catalog holds the list filters shared by the video and report
// stores.
package catalog

import (
	"strings"

	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublicList filters the public, newest-first listing.
type PublicList struct {
	Category string
	Ticker   string
	Query    string // title prefix
	Before   *primitive.ObjectID
	Limit    int
}

// Filter returns the Mongo filter for published items matching l.
func (l PublicList) Filter() bson.M {
	f := bson.M{"status": models.StatusPublished}
	if c := strings.TrimSpace(l.Category); c != "" {
		f["category"] = c
	}
	if t := models.NormalizeTicker(l.Ticker); t != "" {
		f["tickers"] = t
	}
	addPrefix(f, l.Query)
	return f
}

// EffectiveLimit clamps Limit to the paging bounds.
func (l PublicList) EffectiveLimit() int { return clamp(l.Limit) }

// AdminList filters the backend listing, sorted by title.
type AdminList struct {
	Status string // "" for all
	Query  string
	Before string
	After  string
	Limit  int
}

// Filter returns the Mongo filter for l, without the keyset window.
func (l AdminList) Filter() bson.M {
	f := bson.M{}
	if models.IsValidStatus(l.Status) {
		f["status"] = l.Status
	}
	addPrefix(f, l.Query)
	return f
}

// EffectiveLimit clamps Limit to the paging bounds.
func (l AdminList) EffectiveLimit() int { return clamp(l.Limit) }

func addPrefix(f bson.M, q string) {
	if lo, hi := text.PrefixRange(strings.TrimSpace(q)); lo != "" {
		f["title_ci"] = bson.M{"$gte": lo, "$lt": hi}
	}
}

func clamp(n int) int {
	switch {
	case n <= 0:
		return paging.DefaultLimit
	case n > paging.MaxLimit:
		return paging.MaxLimit
	}
	return n
}

// MergeWindow combines a filter with a keyset window using $and so both
// may constrain title_ci.
func MergeWindow(f, window bson.M) bson.M {
	if window == nil {
		return f
	}
	if len(f) == 0 {
		return window
	}
	return bson.M{"$and": bson.A{f, window}}
}

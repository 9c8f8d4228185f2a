// internal/app/features/shared/params.go
//
// Package shared holds request parsing used by several feature handlers.
package shared

import (
	"net/http"
	"strings"

	"github.com/dalemusser/fiiportal/internal/app/store/catalog"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxJSONBody bounds create/update request bodies.
const MaxJSONBody = 64 << 10

// ObjectID parses the chi URL param name. On failure it writes 400 and
// returns false.
func ObjectID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		respond.BadRequest(w, r, "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

// Before parses ?before=. On failure it writes 400 and returns false.
func Before(w http.ResponseWriter, r *http.Request) (*primitive.ObjectID, bool) {
	before, err := paging.ParseBefore(r)
	if err != nil {
		respond.BadRequest(w, r, "invalid before cursor")
		return nil, false
	}
	return before, true
}

// PublicList reads the public catalog filters.
func PublicList(w http.ResponseWriter, r *http.Request) (catalog.PublicList, bool) {
	before, ok := Before(w, r)
	if !ok {
		return catalog.PublicList{}, false
	}
	return catalog.PublicList{
		Category: query.Get(r, "category"),
		Ticker:   query.Get(r, "ticker"),
		Query:    query.Get(r, "q"),
		Before:   before,
		Limit:    paging.ParseLimit(r, paging.DefaultLimit, paging.MaxLimit),
	}, true
}

// AdminList reads the backend catalog filters.
func AdminList(r *http.Request) catalog.AdminList {
	return catalog.AdminList{
		Status: strings.ToLower(query.Get(r, "status")),
		Query:  query.Get(r, "q"),
		Before: query.Get(r, "before"),
		After:  query.Get(r, "after"),
		Limit:  paging.ParseLimit(r, paging.DefaultLimit, paging.MaxLimit),
	}
}

// Actor is the signed-in admin's email, or "" outside admin routes.
func Actor(r *http.Request) string {
	if a, ok := auth.CurrentAdmin(r); ok {
		return a.Email
	}
	return ""
}

// AdminPage is the JSON shape of a backend list: the keyset page plus the
// total matching the filter.
type AdminPage[T any] struct {
	paging.KeysetPage[T]
	Total int64 `json:"total"`
}

// NewAdminPage pairs p with total.
func NewAdminPage[T any](p paging.KeysetPage[T], total int64) AdminPage[T] {
	return AdminPage[T]{KeysetPage: p, Total: total}
}

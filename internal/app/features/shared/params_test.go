package shared_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	req := testutil.WithChiURLParam(testutil.NewRequest(http.MethodGet, "/x"), "id", id.Hex())
	rec := testutil.NewRecorder()
	got, ok := shared.ObjectID(rec, req, "id")
	if !ok || got != id {
		t.Fatalf("got %v %v, want %v", got, ok, id)
	}

	req = testutil.WithChiURLParam(testutil.NewRequest(http.MethodGet, "/x"), "id", "nope")
	rec = testutil.NewRecorder()
	if _, ok := shared.ObjectID(rec, req, "id"); ok {
		t.Fatal("expected failure for bad id")
	}
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestPublicList(t *testing.T) {
	before := primitive.NewObjectID()
	req := testutil.NewRequest(http.MethodGet, "/api/videos?category=tijolo&ticker=hglg11&q=log&limit=500&before="+before.Hex())
	l, ok := shared.PublicList(testutil.NewRecorder(), req)
	if !ok {
		t.Fatal("PublicList failed")
	}
	if l.Category != "tijolo" || l.Ticker != "hglg11" || l.Query != "log" {
		t.Errorf("filters: %+v", l)
	}
	if l.Limit != paging.MaxLimit {
		t.Errorf("limit: got %d, want %d", l.Limit, paging.MaxLimit)
	}
	if l.Before == nil || *l.Before != before {
		t.Errorf("before: got %v", l.Before)
	}

	rec := testutil.NewRecorder()
	if _, ok := shared.PublicList(rec, testutil.NewRequest(http.MethodGet, "/api/videos?before=zzz")); ok {
		t.Fatal("expected bad cursor failure")
	}
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestActor(t *testing.T) {
	req := testutil.NewRequest(http.MethodGet, "/api/admin/videos")
	if got := shared.Actor(req); got != "" {
		t.Errorf("anonymous actor: got %q", got)
	}
	if got := shared.Actor(testutil.AsAdmin(req, testutil.TestAdmin())); got != "admin@test.com" {
		t.Errorf("admin actor: got %q", got)
	}
}

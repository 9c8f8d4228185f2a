package datasets_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/fiiportal/internal/app/features/datasets"
	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	"github.com/dalemusser/fiiportal/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serve(router chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func admin(t *testing.T, method, target string, body any) *http.Request {
	return testutil.AsAdmin(testutil.NewJSONRequest(t, method, target, body), testutil.TestAdmin())
}

func TestServeNames(t *testing.T) {
	logger := zap.NewNop()
	h := &datasets.Handler{ErrLog: errorsfeature.NewErrorLogger(logger), Log: logger}
	rec := serve(datasets.Routes(h), testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"items":["dividends","indicators","portfolio"]`)
}

func TestUpsertGetListDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := datasets.NewHandler(db, nil, errorsfeature.NewErrorLogger(logger), logger)
	public := datasets.Routes(h)
	backend := datasets.AdminRoutes(h)

	rec := serve(backend, admin(t, http.MethodPut, "/indicators/hglg11", map[string]any{"dy": 0.82, "pvp": 1.03, "_id": "ignored"}))
	rec.AssertStatus(t, http.StatusCreated)
	var doc map[string]any
	rec.DecodeJSON(t, &doc)
	assert.Equal(t, "HGLG11", doc["ticker"])
	assert.NotContains(t, doc, "_id")

	serve(backend, admin(t, http.MethodPut, "/indicators/HGLG11", map[string]any{"dy": 0.9})).AssertStatus(t, http.StatusOK)
	serve(backend, admin(t, http.MethodPut, "/indicators/KNRI11", map[string]any{"dy": 0.7})).AssertStatus(t, http.StatusCreated)

	serve(backend, admin(t, http.MethodPut, "/indicators/KNRI11", `[1,2,3]`)).AssertStatus(t, http.StatusBadRequest)
	serve(backend, admin(t, http.MethodPut, "/indicators/KNRI11", `"text"`)).AssertStatus(t, http.StatusBadRequest)
	serve(backend, admin(t, http.MethodPut, "/indicators/bad", map[string]any{"dy": 1})).AssertStatus(t, http.StatusBadRequest)
	serve(backend, admin(t, http.MethodPut, "/indicators/KNRI11", map[string]any{"$where": "1"})).AssertStatus(t, http.StatusBadRequest)
	serve(backend, admin(t, http.MethodPut, "/indicators/KNRI11", map[string]any{"dy.12m": 1})).AssertStatus(t, http.StatusBadRequest)
	serve(backend, admin(t, http.MethodPut, "/users/KNRI11", map[string]any{"dy": 1})).AssertStatus(t, http.StatusNotFound)

	one := serve(public, testutil.NewRequest(http.MethodGet, "/indicators/hglg11"))
	one.AssertStatus(t, http.StatusOK)
	doc = nil
	one.DecodeJSON(t, &doc)
	assert.Equal(t, 0.9, doc["dy"])
	_, hasPVP := doc["pvp"]
	assert.False(t, hasPVP, "upsert replaces the whole document")

	list := serve(public, testutil.NewRequest(http.MethodGet, "/indicators"))
	list.AssertStatus(t, http.StatusOK)
	var body struct {
		Dataset string           `json:"dataset"`
		Items   []map[string]any `json:"items"`
	}
	list.DecodeJSON(t, &body)
	assert.Equal(t, "indicators", body.Dataset)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "HGLG11", body.Items[0]["ticker"])

	filtered := serve(public, testutil.NewRequest(http.MethodGet, "/indicators?ticker=knri11"))
	body.Items = nil
	filtered.DecodeJSON(t, &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "KNRI11", body.Items[0]["ticker"])

	serve(public, testutil.NewRequest(http.MethodGet, "/indicators?ticker=../x")).AssertStatus(t, http.StatusBadRequest)
	serve(public, testutil.NewRequest(http.MethodGet, "/secrets")).AssertStatus(t, http.StatusNotFound)
	serve(public, testutil.NewRequest(http.MethodGet, "/dividends/HGLG11")).AssertStatus(t, http.StatusNotFound)

	serve(backend, admin(t, http.MethodDelete, "/indicators/HGLG11", nil)).AssertStatus(t, http.StatusNoContent)
	serve(backend, admin(t, http.MethodDelete, "/indicators/HGLG11", nil)).AssertStatus(t, http.StatusNotFound)
}

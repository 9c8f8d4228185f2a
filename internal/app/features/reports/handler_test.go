package reports_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	"github.com/dalemusser/fiiportal/internal/app/features/reports"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/fiiportal/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var pdf = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << >>\n%%EOF\n")

func newHandler(t *testing.T, db *mongo.Database) (*reports.Handler, *storage.Local) {
	t.Helper()
	local, err := storage.NewLocal(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	logger := zap.NewNop()
	return reports.NewHandler(db, local, nil, nil, errorsfeature.NewErrorLogger(logger), logger), local
}

func serve(router chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func admin(r *http.Request) *http.Request { return testutil.AsAdmin(r, testutil.TestAdmin()) }

func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return admin(req)
}

func TestCreate_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h, _ := newHandler(t, db)
	router := reports.AdminRoutes(h)

	serve(router, admin(testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"summary": "x"}))).
		AssertStatus(t, http.StatusBadRequest)
	serve(router, admin(testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{"title": "X", "status": "published"}))).
		AssertStatus(t, http.StatusBadRequest)

	rec := serve(router, admin(testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{
		"title": "Relatório mensal", "tickers": []string{"KNRI11"},
	})))
	rec.AssertStatus(t, http.StatusCreated)
	var body struct {
		Status       string `json:"status"`
		Downloadable bool   `json:"downloadable"`
	}
	rec.DecodeJSON(t, &body)
	assert.Equal(t, models.StatusDraft, body.Status)
	assert.False(t, body.Downloadable)
}

func TestUploadPublishDownload(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h, local := newHandler(t, db)
	router := reports.AdminRoutes(h)

	rep, err := h.Reports.Create(ctx, models.Report{Title: "Carteira recomendada"})
	require.NoError(t, err)

	serve(router, admin(testutil.NewJSONRequest(t, http.MethodPost, "/"+rep.ID.Hex()+"/publish", nil))).
		AssertStatus(t, http.StatusBadRequest)

	rec := serve(router, uploadRequest(t, "/"+rep.ID.Hex()+"/file", "carteira jan.pdf", pdf))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"file_name":"carteira_jan.pdf"`)

	stored, err := h.Reports.GetByID(ctx, rep.ID)
	require.NoError(t, err)
	firstPath, err := local.GetFullPath(stored.FileKey)
	require.NoError(t, err)
	_, err = os.Stat(firstPath)
	require.NoError(t, err, "uploaded file must exist on disk")

	serve(router, admin(testutil.NewJSONRequest(t, http.MethodPost, "/"+rep.ID.Hex()+"/publish", nil))).
		AssertStatus(t, http.StatusOK)

	dl := serve(reports.Routes(h), testutil.NewRequest(http.MethodGet, "/"+rep.ID.Hex()+"/download"))
	dl.AssertStatus(t, http.StatusOK)
	assert.Equal(t, "application/pdf", dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "carteira_jan.pdf")
	assert.Equal(t, pdf, dl.Body.Bytes())

	// replacing the file removes the old object
	serve(router, uploadRequest(t, "/"+rep.ID.Hex()+"/file", "v2.pdf", pdf)).AssertStatus(t, http.StatusOK)
	_, err = os.Stat(firstPath)
	assert.True(t, os.IsNotExist(err), "old file should be deleted")

	// deleting the report removes the current object
	stored, err = h.Reports.GetByID(ctx, rep.ID)
	require.NoError(t, err)
	currentPath, err := local.GetFullPath(stored.FileKey)
	require.NoError(t, err)
	serve(router, admin(testutil.NewJSONRequest(t, http.MethodDelete, "/"+rep.ID.Hex(), nil))).
		AssertStatus(t, http.StatusNoContent)
	_, err = os.Stat(currentPath)
	assert.True(t, os.IsNotExist(err), "report file should be deleted with the report")
	serve(router, admin(testutil.NewJSONRequest(t, http.MethodDelete, "/"+rep.ID.Hex(), nil))).
		AssertStatus(t, http.StatusNotFound)
}

func TestUpload_Rejects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h, _ := newHandler(t, db)
	router := reports.AdminRoutes(h)
	rep := fx.CreateReport(ctx, "Relatório", models.StatusDraft)

	serve(router, uploadRequest(t, "/"+rep.ID.Hex()+"/file", "x.pdf", []byte("plain text, not a pdf"))).
		AssertStatus(t, http.StatusBadRequest)
	serve(router, uploadRequest(t, "/"+primitive.NewObjectID().Hex()+"/file", "x.pdf", pdf)).
		AssertStatus(t, http.StatusNotFound)

	req := admin(httptest.NewRequest(http.MethodPost, "/"+rep.ID.Hex()+"/file", bytes.NewReader(nil)))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	serve(router, req).AssertStatus(t, http.StatusBadRequest)
}

func TestDownload_PremiumAndExternal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h, _ := newHandler(t, db)
	router := reports.Routes(h)

	rep := fx.CreateReport(ctx, "Premium", models.StatusPublished)
	_, err := db.Collection("reports").UpdateByID(ctx, rep.ID, bson.M{"$set": bson.M{"premium": true}})
	require.NoError(t, err)

	target := "/" + rep.ID.Hex() + "/download"
	serve(router, testutil.NewRequest(http.MethodGet, target)).AssertStatus(t, http.StatusUnauthorized)

	rec := serve(router, testutil.AsMember(testutil.NewRequest(http.MethodGet, target), testutil.TestMember()))
	rec.AssertStatus(t, http.StatusFound)
	assert.Equal(t, rep.ExternalURL, rec.Header().Get("Location"))

	draft := fx.CreateReport(ctx, "Rascunho", models.StatusDraft)
	serve(router, testutil.NewRequest(http.MethodGet, "/"+draft.ID.Hex()+"/download")).AssertStatus(t, http.StatusNotFound)
}

func TestServeList_PublishedOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h, _ := newHandler(t, db)
	pub := fx.CreateReport(ctx, "Publicado", models.StatusPublished)
	fx.CreateReport(ctx, "Rascunho", models.StatusDraft)

	rec := serve(reports.Routes(h), testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Items []struct {
			ID          string `json:"id"`
			DownloadURL string `json:"download_url"`
		} `json:"items"`
	}
	rec.DecodeJSON(t, &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, pub.ID.Hex(), body.Items[0].ID)
	assert.Equal(t, "/api/reports/"+pub.ID.Hex()+"/download", body.Items[0].DownloadURL)
}

// bucketStore behaves like an object store that hands out signed links.
type bucketStore struct {
	*storage.Memory
	opts *storage.PresignOptions
}

func (b *bucketStore) PresignedURL(_ context.Context, path string, opts *storage.PresignOptions) (string, error) {
	b.opts = opts
	return "https://bucket.example.com/" + path + "?sig=abc", nil
}

func TestDownload_PresignedRedirect(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h, _ := newHandler(t, db)
	bucket := &bucketStore{Memory: storage.NewMemory(storage.MemoryConfig{})}
	h.Files = bucket
	h.LinkTTL = 2 * time.Minute

	rep, err := h.Reports.Create(ctx, models.Report{Title: "Carteira"})
	require.NoError(t, err)
	serve(reports.AdminRoutes(h), uploadRequest(t, "/"+rep.ID.Hex()+"/file", "carteira.pdf", pdf)).
		AssertStatus(t, http.StatusOK)
	serve(reports.AdminRoutes(h), admin(testutil.NewJSONRequest(t, http.MethodPost, "/"+rep.ID.Hex()+"/publish", nil))).
		AssertStatus(t, http.StatusOK)

	stored, err := h.Reports.GetByID(ctx, rep.ID)
	require.NoError(t, err)

	rec := serve(reports.Routes(h), testutil.NewRequest(http.MethodGet, "/"+rep.ID.Hex()+"/download"))
	rec.AssertStatus(t, http.StatusFound)
	assert.Equal(t, "https://bucket.example.com/"+stored.FileKey+"?sig=abc", rec.Header().Get("Location"))
	require.NotNil(t, bucket.opts)
	assert.Equal(t, 2*time.Minute, bucket.opts.Expires)
	assert.Equal(t, `attachment; filename="carteira.pdf"`, bucket.opts.ContentDisposition)

	// an object gone from the bucket is a 404, not a dead link
	require.NoError(t, bucket.Delete(ctx, stored.FileKey))
	serve(reports.Routes(h), testutil.NewRequest(http.MethodGet, "/"+rep.ID.Hex()+"/download")).
		AssertStatus(t, http.StatusNotFound)
}

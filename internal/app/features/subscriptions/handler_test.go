package subscriptions_test

import (
	"net/http"
	"testing"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	"github.com/dalemusser/fiiportal/internal/app/features/subscriptions"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func serve(router chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type subBody struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	EmailOptIn bool   `json:"email_opt_in"`
	Created    bool   `json:"created"`
}

func TestSubscriptionLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := subscriptions.NewHandler(db, errorsfeature.NewErrorLogger(logger), logger)
	router := subscriptions.Routes(h, (&auth.Manager{}).RequireMember)
	me := testutil.TestMember()
	req := func(method string, body any) *http.Request {
		return testutil.AsMember(testutil.NewJSONRequest(t, method, "/", body), me)
	}

	serve(router, testutil.NewRequest(http.MethodGet, "/")).AssertStatus(t, http.StatusUnauthorized)
	serve(router, req(http.MethodGet, nil)).AssertStatus(t, http.StatusNotFound)

	rec := serve(router, req(http.MethodPut, map[string]any{"email_opt_in": true}))
	rec.AssertStatus(t, http.StatusOK)
	var got subBody
	rec.DecodeJSON(t, &got)
	assert.Equal(t, subBody{UserID: me.UserID, Email: me.Email, Name: "Maria Teste", EmailOptIn: true, Created: true}, got)

	rec = serve(router, req(http.MethodPut, map[string]any{"email": "Outro@Test.com", "email_opt_in": false}))
	rec.AssertStatus(t, http.StatusOK)
	got = subBody{}
	rec.DecodeJSON(t, &got)
	assert.False(t, got.Created)
	assert.Equal(t, "outro@test.com", got.Email)

	serve(router, req(http.MethodPut, map[string]any{"email": "", "email_opt_in": true})).
		AssertStatus(t, http.StatusBadRequest)
	serve(router, req(http.MethodPut, map[string]any{"email": "not-an-email"})).
		AssertStatus(t, http.StatusBadRequest)

	serve(router, req(http.MethodGet, nil)).AssertStatus(t, http.StatusOK)
	serve(router, req(http.MethodDelete, nil)).AssertStatus(t, http.StatusNoContent)
	serve(router, req(http.MethodDelete, nil)).AssertStatus(t, http.StatusNotFound)
}

func TestServeAdminList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	logger := zap.NewNop()
	h := subscriptions.NewHandler(db, errorsfeature.NewErrorLogger(logger), logger)
	fx.CreateSubscriber(ctx, "user_a", "a@test.com", true)
	fx.CreateSubscriber(ctx, "user_b", "b@test.com", false)
	fx.CreateSubscriber(ctx, "user_c", "c@test.com", true)

	rec := serve(subscriptions.AdminRoutes(h), testutil.AsAdmin(testutil.NewRequest(http.MethodGet, "/?limit=2"), testutil.TestAdmin()))
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Items   []subBody `json:"items"`
		HasMore bool      `json:"has_more"`
		Total   int64     `json:"total"`
		OptedIn int64     `json:"opted_in"`
	}
	rec.DecodeJSON(t, &body)
	assert.Len(t, body.Items, 2)
	assert.Equal(t, "user_c", body.Items[0].UserID)
	assert.True(t, body.HasMore)
	assert.Equal(t, int64(3), body.Total)
	assert.Equal(t, int64(2), body.OptedIn)
}

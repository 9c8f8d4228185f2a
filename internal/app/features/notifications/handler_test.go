package notifications_test

import (
	"net/http"
	"testing"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	"github.com/dalemusser/fiiportal/internal/app/features/notifications"
	notificationstore "github.com/dalemusser/fiiportal/internal/app/store/notifications"
	subscriberstore "github.com/dalemusser/fiiportal/internal/app/store/subscribers"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/mailer"
	"github.com/dalemusser/fiiportal/internal/app/system/notify"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/fiiportal/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type captureMail struct{ sent []mailer.Email }

func (c *captureMail) Enqueue(e mailer.Email) bool {
	c.sent = append(c.sent, e)
	return true
}

func newHandler(t *testing.T, db *mongo.Database) (*notifications.Handler, *captureMail) {
	t.Helper()
	logger := zap.NewNop()
	mail := &captureMail{}
	n := &notify.Notifier{
		Subs:     subscriberstore.New(db),
		Notes:    notificationstore.New(db),
		Mail:     mail,
		SiteName: "FII Portal",
		BaseURL:  "https://portal.test",
		Log:      logger,
	}
	return notifications.NewHandler(db, n, nil, errorsfeature.NewErrorLogger(logger), logger), mail
}

func memberRoutes(h *notifications.Handler) chi.Router {
	return notifications.Routes(h, (&auth.Manager{}).RequireMember)
}

func serve(router chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func seed(t *testing.T, h *notifications.Handler, userID string, n int) []models.Notification {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	out := make([]models.Notification, n)
	for i := range out {
		created, err := h.Notes.Create(ctx, models.Notification{UserID: userID, Type: models.NotificationBroadcast, Title: "aviso"})
		require.NoError(t, err)
		out[i] = created
	}
	return out
}

type listBody struct {
	Items []struct {
		ID   string `json:"id"`
		Read bool   `json:"read"`
	} `json:"items"`
	HasMore     bool  `json:"has_more"`
	UnreadCount int64 `json:"unread_count"`
}

func TestInbox_RequiresMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h, _ := newHandler(t, db)
	serve(memberRoutes(h), testutil.NewRequest(http.MethodGet, "/")).AssertStatus(t, http.StatusUnauthorized)
}

func TestInbox_ListMarkDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h, _ := newHandler(t, db)
	router := memberRoutes(h)
	me := testutil.TestMember()
	mine := seed(t, h, me.UserID, 3)
	theirs := seed(t, h, testutil.OtherMember().UserID, 1)

	get := func(target string) listBody {
		rec := serve(router, testutil.AsMember(testutil.NewRequest(http.MethodGet, target), me))
		rec.AssertStatus(t, http.StatusOK)
		var b listBody
		rec.DecodeJSON(t, &b)
		return b
	}

	b := get("/?limit=2")
	require.Len(t, b.Items, 2)
	assert.Equal(t, mine[2].ID.Hex(), b.Items[0].ID)
	assert.True(t, b.HasMore)
	assert.Equal(t, int64(3), b.UnreadCount)

	serve(router, testutil.AsMember(testutil.NewRequest(http.MethodPatch, "/"+mine[0].ID.Hex()), me)).
		AssertStatus(t, http.StatusNoContent)
	serve(router, testutil.AsMember(testutil.NewRequest(http.MethodPatch, "/"+theirs[0].ID.Hex()), me)).
		AssertStatus(t, http.StatusNotFound)

	b = get("/?unread=true")
	assert.Len(t, b.Items, 2)
	assert.Equal(t, int64(2), b.UnreadCount)

	rec := serve(router, testutil.AsMember(testutil.NewRequest(http.MethodPatch, "/"), me))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"updated":2`)
	assert.Equal(t, int64(0), get("/").UnreadCount)

	serve(router, testutil.AsMember(testutil.NewRequest(http.MethodDelete, "/"+mine[1].ID.Hex()), me)).
		AssertStatus(t, http.StatusNoContent)
	serve(router, testutil.AsMember(testutil.NewRequest(http.MethodDelete, "/"+theirs[0].ID.Hex()), me)).
		AssertStatus(t, http.StatusNotFound)
	serve(router, testutil.AsMember(testutil.NewRequest(http.MethodDelete, "/"+primitive.NewObjectID().Hex()), me)).
		AssertStatus(t, http.StatusNotFound)
	assert.Len(t, get("/").Items, 2)
}

func TestBroadcast(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h, mail := newHandler(t, db)
	router := notifications.AdminRoutes(h)
	fx.CreateSubscriber(ctx, "user_a", "a@test.com", true)
	fx.CreateSubscriber(ctx, "user_b", "b@test.com", false)
	fx.CreateSubscriber(ctx, "user_c", "", false)

	post := func(body any) *testutil.ResponseRecorder {
		return serve(router, testutil.AsAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/", body), testutil.TestAdmin()))
	}

	post(map[string]any{"message": "sem título"}).AssertStatus(t, http.StatusBadRequest)
	post(map[string]any{"title": "x", "link": "//evil.test"}).AssertStatus(t, http.StatusBadRequest)
	post(map[string]any{"title": "x", "link": "javascript:alert(1)"}).AssertStatus(t, http.StatusBadRequest)

	rec := post(map[string]any{"title": "Manutenção", "message": "Sábado às 22h", "link": "/status", "email": true})
	rec.AssertStatus(t, http.StatusOK)
	var res notify.Result
	rec.DecodeJSON(t, &res)
	assert.Equal(t, notify.Result{Notified: 3, Emailed: 1}, res)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "a@test.com", mail.sent[0].To)

	notes, err := h.Notes.ListForUser(ctx, "user_b", false, nil, 10)
	require.NoError(t, err)
	require.Len(t, notes.Items, 1)
	assert.Equal(t, "https://portal.test/status", notes.Items[0].Link)
	assert.Equal(t, models.NotificationBroadcast, notes.Items[0].Type)

	rec = post(map[string]any{"title": "Só para você", "user_id": "user_c"})
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &res)
	assert.Equal(t, notify.Result{Notified: 1}, res)
	n, err := h.Notes.UnreadCount(ctx, "user_c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

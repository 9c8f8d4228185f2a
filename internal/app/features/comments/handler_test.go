package comments_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dalemusser/fiiportal/internal/app/features/comments"
	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	notificationstore "github.com/dalemusser/fiiportal/internal/app/store/notifications"
	subscriberstore "github.com/dalemusser/fiiportal/internal/app/store/subscribers"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/notify"
	"github.com/dalemusser/fiiportal/internal/app/system/ratelimit"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/fiiportal/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, db *mongo.Database) *comments.Handler {
	t.Helper()
	logger := zap.NewNop()
	n := &notify.Notifier{
		Subs:     subscriberstore.New(db),
		Notes:    notificationstore.New(db),
		SiteName: "FII Portal",
		BaseURL:  "https://portal.test",
		Log:      logger,
	}
	h := comments.NewHandler(db, n, nil, errorsfeature.NewErrorLogger(logger), logger)
	t.Cleanup(h.Close)
	return h
}

func serve(router chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func as(t *testing.T, m *auth.Member, method, target string, body any) *http.Request {
	return testutil.AsMember(testutil.NewJSONRequest(t, method, target, body), m)
}

type commentBody struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	ParentID  string `json:"parent_id"`
	UserName  string `json:"user_name"`
	Edited    bool   `json:"edited"`
	LikeCount int    `json:"like_count"`
	LikedByMe bool   `json:"liked_by_me"`
}

func TestHandleCreate_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHandler(t, db)
	router := comments.Routes(h)
	video := fx.CreateVideo(ctx, "Panorama", models.StatusPublished)
	draft := fx.CreateVideo(ctx, "Rascunho", models.StatusDraft)
	me := testutil.TestMember()

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"missing target", map[string]any{"content": "oi"}, http.StatusBadRequest},
		{"bad target type", map[string]any{"target_type": "podcast", "target_id": video.ID.Hex(), "content": "oi"}, http.StatusBadRequest},
		{"empty content", map[string]any{"target_type": "video", "target_id": video.ID.Hex(), "content": "<b></b>"}, http.StatusBadRequest},
		{"too long", map[string]any{"target_type": "video", "target_id": video.ID.Hex(), "content": strings.Repeat("a", 2001)}, http.StatusBadRequest},
		{"unknown target", map[string]any{"target_type": "video", "target_id": primitive.NewObjectID().Hex(), "content": "oi"}, http.StatusNotFound},
		{"draft target", map[string]any{"target_type": "video", "target_id": draft.ID.Hex(), "content": "oi"}, http.StatusNotFound},
		{"unknown parent", map[string]any{"target_type": "video", "target_id": video.ID.Hex(), "parent_id": primitive.NewObjectID().Hex(), "content": "oi"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serve(router, as(t, me, http.MethodPost, "/", tt.body)).AssertStatus(t, tt.status)
		})
	}

	serve(router, testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{
		"target_type": "video", "target_id": video.ID.Hex(), "content": "oi",
	})).AssertStatus(t, http.StatusUnauthorized)
}

func TestHandleCreate_ReplyNotifiesParentAuthor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHandler(t, db)
	router := comments.Routes(h)
	video := fx.CreateVideo(ctx, "Panorama", models.StatusPublished)
	root := fx.CreateComment(ctx, models.TargetVideo, video.ID, nil, testutil.OtherMember().UserID, "Qual o DY?")

	rec := serve(router, as(t, testutil.TestMember(), http.MethodPost, "/", map[string]any{
		"target_type": "video",
		"target_id":   video.ID.Hex(),
		"parent_id":   root.ID.Hex(),
		"content":     "<script>x</script>Cerca de <b>0,8%</b> ao mês",
	}))
	rec.AssertStatus(t, http.StatusCreated)
	var got commentBody
	rec.DecodeJSON(t, &got)
	assert.Equal(t, "Cerca de 0,8% ao mês", got.Content)
	assert.Equal(t, root.ID.Hex(), got.ParentID)
	assert.Equal(t, "Maria Teste", got.UserName)

	notes, err := notificationstore.New(db).ListForUser(ctx, testutil.OtherMember().UserID, false, nil, 10)
	require.NoError(t, err)
	require.Len(t, notes.Items, 1)
	assert.Equal(t, models.NotificationReply, notes.Items[0].Type)
	assert.Contains(t, notes.Items[0].Link, "https://portal.test/videos/"+video.ID.Hex())

	// replying to yourself does not notify
	serve(router, as(t, testutil.OtherMember(), http.MethodPost, "/", map[string]any{
		"target_type": "video", "target_id": video.ID.Hex(), "parent_id": root.ID.Hex(), "content": "obrigado",
	})).AssertStatus(t, http.StatusCreated)
	n, err := notificationstore.New(db).UnreadCount(ctx, testutil.OtherMember().UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// replies to replies are rejected
	serve(router, as(t, testutil.TestMember(), http.MethodPost, "/", map[string]any{
		"target_type": "video", "target_id": video.ID.Hex(), "parent_id": got.ID, "content": "nested",
	})).AssertStatus(t, http.StatusBadRequest)
}

func TestHandleCreate_RateLimited(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHandler(t, db)
	h.Posts.Stop()
	h.Posts = ratelimit.New(2, comments.PostWindow)
	router := comments.Routes(h)
	video := fx.CreateVideo(ctx, "Panorama", models.StatusPublished)
	body := map[string]any{"target_type": "video", "target_id": video.ID.Hex(), "content": "oi"}

	serve(router, as(t, testutil.TestMember(), http.MethodPost, "/", body)).AssertStatus(t, http.StatusCreated)
	serve(router, as(t, testutil.TestMember(), http.MethodPost, "/", body)).AssertStatus(t, http.StatusCreated)
	serve(router, as(t, testutil.TestMember(), http.MethodPost, "/", body)).AssertStatus(t, http.StatusTooManyRequests)
	serve(router, as(t, testutil.OtherMember(), http.MethodPost, "/", body)).AssertStatus(t, http.StatusCreated)
}

func TestServeList_ThreadsAndLikes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHandler(t, db)
	router := comments.Routes(h)
	video := fx.CreateVideo(ctx, "Panorama", models.StatusPublished)
	older := fx.CreateComment(ctx, models.TargetVideo, video.ID, nil, "user_a", "primeiro")
	newer := fx.CreateComment(ctx, models.TargetVideo, video.ID, nil, "user_b", "segundo")
	fx.CreateComment(ctx, models.TargetVideo, video.ID, &older.ID, "user_b", "resposta")

	like := serve(router, as(t, testutil.TestMember(), http.MethodPost, "/"+older.ID.Hex()+"/like", nil))
	like.AssertStatus(t, http.StatusOK)
	like.AssertContains(t, `"liked":true`)
	like.AssertContains(t, `"like_count":1`)

	req := testutil.AsMember(testutil.NewRequest(http.MethodGet, "/?target_type=video&target_id="+video.ID.Hex()), testutil.TestMember())
	rec := serve(router, req)
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Items []struct {
			commentBody
			Replies []commentBody `json:"replies"`
		} `json:"items"`
	}
	rec.DecodeJSON(t, &body)
	require.Len(t, body.Items, 2)
	assert.Equal(t, newer.ID.Hex(), body.Items[0].ID)
	assert.Empty(t, body.Items[0].Replies)
	assert.Equal(t, older.ID.Hex(), body.Items[1].ID)
	assert.True(t, body.Items[1].LikedByMe)
	assert.Equal(t, 1, body.Items[1].LikeCount)
	require.Len(t, body.Items[1].Replies, 1)
	assert.Equal(t, "resposta", body.Items[1].Replies[0].Content)

	unlike := serve(router, as(t, testutil.TestMember(), http.MethodPost, "/"+older.ID.Hex()+"/like", nil))
	unlike.AssertContains(t, `"liked":false`)
	unlike.AssertContains(t, `"like_count":0`)

	serve(router, as(t, testutil.TestMember(), http.MethodPost, "/"+primitive.NewObjectID().Hex()+"/like", nil)).
		AssertStatus(t, http.StatusNotFound)
	serve(router, testutil.NewRequest(http.MethodGet, "/?target_type=podcast&target_id="+video.ID.Hex())).
		AssertStatus(t, http.StatusBadRequest)
}

func TestEditAndDelete_Ownership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHandler(t, db)
	router := comments.Routes(h)
	video := fx.CreateVideo(ctx, "Panorama", models.StatusPublished)
	mine := fx.CreateComment(ctx, models.TargetVideo, video.ID, nil, testutil.TestMember().UserID, "original")
	fx.CreateComment(ctx, models.TargetVideo, video.ID, &mine.ID, "user_b", "resposta")

	edit := serve(router, as(t, testutil.TestMember(), http.MethodPut, "/"+mine.ID.Hex(), map[string]any{"content": "editado"}))
	edit.AssertStatus(t, http.StatusOK)
	var got commentBody
	edit.DecodeJSON(t, &got)
	assert.Equal(t, "editado", got.Content)
	assert.True(t, got.Edited)

	serve(router, as(t, testutil.OtherMember(), http.MethodPut, "/"+mine.ID.Hex(), map[string]any{"content": "x"})).
		AssertStatus(t, http.StatusForbidden)
	serve(router, as(t, testutil.OtherMember(), http.MethodDelete, "/"+mine.ID.Hex(), nil)).
		AssertStatus(t, http.StatusForbidden)
	serve(router, testutil.NewRequest(http.MethodDelete, "/"+mine.ID.Hex())).
		AssertStatus(t, http.StatusUnauthorized)

	serve(router, as(t, testutil.TestMember(), http.MethodDelete, "/"+mine.ID.Hex(), nil)).
		AssertStatus(t, http.StatusNoContent)
	serve(router, as(t, testutil.TestMember(), http.MethodDelete, "/"+mine.ID.Hex(), nil)).
		AssertStatus(t, http.StatusNotFound)

	page, err := h.Comments.ListRecent(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items, "replies are removed with their root")
}

func TestAdminRoutes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHandler(t, db)
	router := comments.AdminRoutes(h)
	video := fx.CreateVideo(ctx, "Panorama", models.StatusPublished)
	report := fx.CreateReport(ctx, "Relatório", models.StatusPublished)
	c1 := fx.CreateComment(ctx, models.TargetVideo, video.ID, nil, "user_a", "no vídeo")
	c2 := fx.CreateComment(ctx, models.TargetReport, report.ID, nil, "user_b", "no relatório")

	rec := serve(router, testutil.AsAdmin(testutil.NewRequest(http.MethodGet, "/?limit=1"), testutil.TestAdmin()))
	rec.AssertStatus(t, http.StatusOK)
	var page struct {
		Items      []commentBody `json:"items"`
		NextBefore string        `json:"next_before"`
		HasMore    bool          `json:"has_more"`
	}
	rec.DecodeJSON(t, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, c2.ID.Hex(), page.Items[0].ID)
	assert.True(t, page.HasMore)

	serve(router, testutil.AsAdmin(testutil.NewRequest(http.MethodDelete, "/"+c1.ID.Hex()), testutil.TestAdmin())).
		AssertStatus(t, http.StatusNoContent)
	serve(router, testutil.AsAdmin(testutil.NewRequest(http.MethodDelete, "/"+c1.ID.Hex()), testutil.TestAdmin())).
		AssertStatus(t, http.StatusNotFound)

	// admins may also delete through the member API
	serve(comments.Routes(h), testutil.AsAdmin(testutil.NewRequest(http.MethodDelete, "/"+c2.ID.Hex()), testutil.TestAdmin())).
		AssertStatus(t, http.StatusNoContent)
}

package notificationstore_test

import (
	"testing"
	"time"

	notificationstore "github.com/dalemusser/fiiportal/internal/app/store/notifications"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/dalemusser/fiiportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seed(t *testing.T, store *notificationstore.Store, userID string, n int) []models.Notification {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ns := make([]models.Notification, n)
	for i := range ns {
		ns[i] = models.Notification{UserID: userID, Type: models.NotificationBroadcast, Title: "Aviso"}
	}
	created, err := store.CreateMany(ctx, ns)
	require.NoError(t, err)
	require.Equal(t, n, created)
	return ns
}

func TestListAndUnread(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := notificationstore.New(db)

	ns := seed(t, store, "u1", 3)
	seed(t, store, "u2", 1)

	require.NoError(t, store.MarkRead(ctx, "u1", ns[0].ID))

	page, err := store.ListForUser(ctx, "u1", false, nil, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, ns[2].ID, page.Items[0].ID)

	page, err = store.ListForUser(ctx, "u1", true, nil, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	n, err := store.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestMarkRead_OtherMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := notificationstore.New(db)

	ns := seed(t, store, "u1", 1)
	assert.ErrorIs(t, store.MarkRead(ctx, "u2", ns[0].ID), notificationstore.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "u2", ns[0].ID), notificationstore.ErrNotFound)
	assert.ErrorIs(t, store.MarkRead(ctx, "u1", primitive.NewObjectID()), notificationstore.ErrNotFound)

	// marking twice keeps the first read_at
	require.NoError(t, store.MarkRead(ctx, "u1", ns[0].ID))
	var first models.Notification
	require.NoError(t, db.Collection("notifications").FindOne(ctx, bson.M{"_id": ns[0].ID}).Decode(&first))
	require.NoError(t, store.MarkRead(ctx, "u1", ns[0].ID))
	var second models.Notification
	require.NoError(t, db.Collection("notifications").FindOne(ctx, bson.M{"_id": ns[0].ID}).Decode(&second))
	require.NotNil(t, first.ReadAt)
	assert.True(t, first.ReadAt.Equal(*second.ReadAt))

	require.NoError(t, store.Delete(ctx, "u1", ns[0].ID))
}

func TestMarkAllRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := notificationstore.New(db)

	seed(t, store, "u1", 4)
	n, err := store.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	n, err = store.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestDeleteReadBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := notificationstore.New(db)

	ns := seed(t, store, "u1", 3)
	old := time.Now().UTC().Add(-100 * 24 * time.Hour)
	_, err := db.Collection("notifications").UpdateOne(ctx,
		bson.M{"_id": ns[0].ID}, bson.M{"$set": bson.M{"read": true, "read_at": old}})
	require.NoError(t, err)
	require.NoError(t, store.MarkRead(ctx, "u1", ns[1].ID))

	n, err := store.DeleteReadBefore(ctx, time.Now().UTC().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

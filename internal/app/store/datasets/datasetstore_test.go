package datasetstore_test

import (
	"testing"

	datasetstore "github.com/dalemusser/fiiportal/internal/app/store/datasets"
	"github.com/dalemusser/fiiportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestUpsertGetList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := datasetstore.New(db)

	_, created, err := store.Upsert(ctx, "indicators", "hglg11", bson.M{"_id": "ignored", "dy": 8.5, "pvp": 0.97})
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = store.Upsert(ctx, "indicators", "HGLG11", bson.M{"dy": 9.1})
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = store.Upsert(ctx, "indicators", "KNRI11", bson.M{"dy": 7.0})
	require.NoError(t, err)

	doc, err := store.Get(ctx, "indicators", "hglg11")
	require.NoError(t, err)
	assert.Equal(t, "HGLG11", doc["ticker"])
	assert.Equal(t, 9.1, doc["dy"])
	_, hasPVP := doc["pvp"]
	assert.False(t, hasPVP, "upsert replaces the whole document")
	_, hasID := doc["_id"]
	assert.False(t, hasID)

	rows, err := store.List(ctx, "indicators", "", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "HGLG11", rows[0]["ticker"])

	rows, err = store.List(ctx, "indicators", "knri11", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	many, err := store.GetMany(ctx, "indicators", []string{"HGLG11", "XPML11"})
	require.NoError(t, err)
	assert.Len(t, many, 1)
	assert.Contains(t, many, "HGLG11")
}

func TestErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := datasetstore.New(db)

	_, err := store.List(ctx, "users", "", 10)
	assert.ErrorIs(t, err, datasetstore.ErrUnknownDataset)

	_, err = store.Get(ctx, "dividends", "HGLG11")
	assert.ErrorIs(t, err, datasetstore.ErrNotFound)

	_, _, err = store.Upsert(ctx, "dividends", "bad", bson.M{})
	assert.ErrorIs(t, err, datasetstore.ErrInvalidTicker)

	for _, key := range []string{"$set", "a.b", ""} {
		_, _, err = store.Upsert(ctx, "dividends", "HGLG11", bson.M{key: 1})
		assert.ErrorIs(t, err, datasetstore.ErrInvalidField, "key %q", key)
	}

	assert.ErrorIs(t, store.Delete(ctx, "dividends", "HGLG11"), datasetstore.ErrNotFound)
	_, _, err = store.Upsert(ctx, "dividends", "HGLG11", bson.M{"valor": 1.1})
	require.NoError(t, err)
	assert.NoError(t, store.Delete(ctx, "dividends", "HGLG11"))
}

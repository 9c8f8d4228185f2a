package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	"github.com/dalemusser/fiiportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := audit.New(db)

	events := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, ActorEmail: "a@fii.com", Success: true},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginFailedWrongPassword, ActorEmail: "a@fii.com"},
		{Category: audit.CategoryAdmin, EventType: audit.EventCreated, ActorEmail: "a@fii.com", Success: true,
			Details: map[string]string{"resource": "video"}},
	}
	for _, e := range events {
		require.NoError(t, store.Log(ctx, e))
	}

	page, err := store.Query(ctx, audit.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, audit.EventCreated, page.Items[0].EventType)
	assert.False(t, page.Items[0].Timestamp.IsZero())

	page, err = store.Query(ctx, audit.QueryFilter{Category: audit.CategoryAuth, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.True(t, page.HasMore)
	assert.Equal(t, audit.EventLoginFailedWrongPassword, page.Items[0].EventType)

	n, err := store.CountFailedLogins(ctx, "a@fii.com", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

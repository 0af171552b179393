package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/db"
	hithttp "github.com/abdul-hamid-achik/hitdesk/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	client, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	j, err := OpenJournal(context.Background(), client)
	require.NoError(t, err)
	return j
}

func entryAt(id, ws, url string, at time.Time) Entry {
	return Entry{
		ID:          id,
		WorkspaceID: ws,
		Request: hithttp.Template{
			Method:  "GET",
			URL:     url,
			Headers: hithttp.Headers{{Key: "Accept", Value: "*/*"}},
		},
		Timestamp:  at,
		StatusCode: 200,
		TimeMs:     30,
	}
}

func TestJournal_PrependAndList(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.Prepend(entryAt("a", "ws1", "http://a", t0)))
	require.NoError(t, j.Prepend(entryAt("b", "ws2", "http://b", t0.Add(time.Second))))
	require.NoError(t, j.Prepend(entryAt("c", "ws1", "http://c", t0.Add(2*time.Second))))

	all, err := j.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, hithttp.Headers{{Key: "Accept", Value: "*/*"}}, all[0].Request.Headers)
	assert.Equal(t, t0.Add(2*time.Second), all[0].Timestamp)

	ws1, err := j.List(ctx, "ws1", 1)
	require.NoError(t, err)
	require.Len(t, ws1, 1)
	assert.Equal(t, "c", ws1[0].ID)

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestJournal_Get(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, j.Prepend(entryAt("abc-1", "", "http://a", now)))
	require.NoError(t, j.Prepend(entryAt("abc-2", "", "http://b", now)))
	require.NoError(t, j.Prepend(entryAt("xyz", "", "http://c", now)))

	e, err := j.Get(ctx, "xy")
	require.NoError(t, err)
	assert.Equal(t, "xyz", e.ID)

	e, err = j.Get(ctx, "abc-2")
	require.NoError(t, err)
	assert.Equal(t, "http://b", e.Request.URL)

	_, err = j.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrAmbiguousID)

	_, err = j.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestJournal_SetRemoteID(t *testing.T) {
	j := openJournal(t)
	require.NoError(t, j.Prepend(entryAt("a", "ws1", "http://a", time.Now())))

	require.NoError(t, j.SetRemoteID("a", "r1"))
	e, err := j.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "r1", e.RemoteID)

	assert.ErrorIs(t, j.SetRemoteID("missing", "r2"), ErrEntryNotFound)
}

func TestJournal_Clear(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, j.Prepend(entryAt("a", "ws1", "http://a", now)))
	require.NoError(t, j.Prepend(entryAt("b", "ws2", "http://b", now)))

	n, err := j.Clear(ctx, "ws1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = j.Clear(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := j.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestJournal_AsRecorderSink(t *testing.T) {
	j := openJournal(t)
	persister := &fakePersister{id: "remote-1"}
	r := NewRecorder(WithSink(j), WithPersister(persister))

	entry, ok, err := r.Record(context.Background(), hithttp.Template{Method: "delete", URL: "http://x/1"}, okResult(), "ws1")
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := j.Get(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "DELETE", stored.Request.Method)
	assert.Equal(t, "remote-1", stored.RemoteID)
	assert.Equal(t, 201, stored.StatusCode)
}

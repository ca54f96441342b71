package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/searchvault/internal/model"
)

// ---------- Codec ----------

func TestEncodeDecode(t *testing.T) {
	cursor := "2024-01-01T00:00:00Z"
	in := model.BackupQueueMessage{
		Datetime:       "2024-06-01T01:00:00Z",
		Endpoint:       "https://kb.search.windows.net",
		IndexName:      "documents",
		SortFieldValue: &cursor,
	}

	body, err := Encode(in)
	require.NoError(t, err)
	assert.NotContains(t, body, "{", "body must be base64, not raw JSON")

	var out model.BackupQueueMessage
	require.NoError(t, Decode(body, &out))
	assert.Equal(t, in, out)
}

func TestEncode_NullCursor(t *testing.T) {
	body, err := Encode(model.RestoreQueueMessage{FolderName: "f", Endpoint: "e", IndexName: "i"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, Decode(body, &raw))
	v, ok := raw["last_blob_version_id"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestDecode_Errors(t *testing.T) {
	var m model.BackupQueueMessage
	err := Decode("%%%", &m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base64")

	err = Decode("bm90IGpzb24=", &m) // "not json"
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json")
}

// ---------- Send ----------

func TestQueue_Send(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		return len(args) == 4 && args[1] == "search-backup" && args[2] == "Ym9keQ==" && args[3] == model.StatusReady
	})).Return(pgconn.CommandTag{}, nil)

	id, err := q.Send(ctx, "search-backup", "Ym9keQ==")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	db.AssertExpectations(t)
}

func TestQueue_Send_Error(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, errors.New("db down"))

	_, err := q.Send(ctx, "search-backup", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send to search-backup")
}

func TestQueue_SendMessage_EncodesBody(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()

	msg := model.RestoreQueueMessage{FolderName: "2024-06-01T01:00:00Z", Endpoint: "https://kb", IndexName: "docs"}
	want, err := Encode(msg)
	require.NoError(t, err)

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		return args[2] == want
	})).Return(pgconn.CommandTag{}, nil)

	_, err = q.SendMessage(ctx, "search-restore", msg)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

// ---------- Receive ----------

func TestQueue_Receive_Message(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()
	now := time.Now()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"search-backup", 600.0, model.StatusReady}).
		Return(&mockRow{scanFunc: func(dest ...any) error {
			*(dest[0].(*string)) = "msg-1"
			*(dest[1].(*string)) = "search-backup"
			*(dest[2].(*string)) = "Ym9keQ=="
			*(dest[3].(*string)) = model.StatusReady
			*(dest[4].(*int)) = 2
			*(dest[5].(*time.Time)) = now.Add(10 * time.Minute)
			*(dest[6].(*time.Time)) = now
			*(dest[7].(*time.Time)) = now
			return nil
		}})

	m, err := q.Receive(ctx, "search-backup", 10*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "msg-1", m.ID)
	assert.Equal(t, 2, m.DequeueCount)
	assert.Equal(t, "Ym9keQ==", m.Body)
}

func TestQueue_Receive_Empty(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }})

	m, err := q.Receive(ctx, "search-backup", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestQueue_Receive_Error(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: func(dest ...any) error { return errors.New("conn reset") }})

	_, err := q.Receive(ctx, "search-backup", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "receive from search-backup")
}

// ---------- Delete / Poison ----------

func TestQueue_Delete(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"msg-1"}).Return(pgconn.CommandTag{}, nil)

	require.NoError(t, q.Delete(ctx, "msg-1"))
	db.AssertExpectations(t)
}

func TestQueue_Poison(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"msg-1", model.StatusPoisoned, "invalid endpoint"}).
		Return(pgconn.CommandTag{}, nil)

	require.NoError(t, q.Poison(ctx, "msg-1", "invalid endpoint"))
	db.AssertExpectations(t)
}

func TestQueue_Extend(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "visible_at = now() + make_interval")
	}), []any{"msg-1", 600.0, model.StatusReady}).Return(pgconn.CommandTag{}, nil)

	require.NoError(t, q.Extend(ctx, "msg-1", 10*time.Minute))
	db.AssertExpectations(t)
}

func TestQueue_Extend_Error(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, errors.New("conn reset"))

	err := q.Extend(ctx, "msg-1", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extend message msg-1")
}

// ---------- Stats ----------

func TestQueue_Stats_FillsMissingQueues(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()

	rows := newMockRows(func(dest ...any) error {
		*(dest[0].(*string)) = "search-restore"
		*(dest[1].(*int)) = 3
		*(dest[2].(*int)) = 1
		*(dest[3].(*int)) = 2
		return nil
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	stats, err := q.Stats(ctx, []string{"search-backup", "search-restore"})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, model.QueueStats{Queue: "search-backup"}, stats[0])
	assert.Equal(t, model.QueueStats{Queue: "search-restore", Ready: 3, InFlight: 1, Poisoned: 2}, stats[1])
}

func TestQueue_Stats_QueryError(t *testing.T) {
	db := &mockDB{}
	q := New(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(nil, errors.New("boom"))

	_, err := q.Stats(ctx, []string{"search-backup"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue stats")
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/searchvault/internal/model"
)

const testEndpoint = "https://kb.search.windows.net"

func newTestSnapshot(q *mockQueue) *Snapshot {
	h := NewSnapshot(q, allowList{testEndpoint: true}, "search-backup", "search-restore")
	h.now = func() time.Time { return time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC) }
	return h
}

func TestSnapshot_CreateRestore(t *testing.T) {
	q := &mockQueue{}
	h := newTestSnapshot(q)

	cp := "2024-06-01T01:02:03.1234567Z"
	want := model.RestoreQueueMessage{
		FolderName:        "2024-06-01T01:00:00Z",
		Endpoint:          testEndpoint,
		IndexName:         "documents",
		LastBlobVersionID: &cp,
	}
	q.On("SendMessage", mock.Anything, "search-restore", want).Return("msg-1", nil)

	rec := httptest.NewRecorder()
	h.CreateRestore(rec, newRequest(http.MethodPost, "/v1/restores", map[string]any{
		"folder_name":          "2024-06-01T01:00:00Z",
		"endpoint":             testEndpoint,
		"index_name":           "documents",
		"last_blob_version_id": cp,
	}))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var body struct {
		MessageID string                    `json:"message_id"`
		Queue     string                    `json:"queue"`
		Message   model.RestoreQueueMessage `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "msg-1", body.MessageID)
	assert.Equal(t, "search-restore", body.Queue)
	assert.Equal(t, want, body.Message)
	q.AssertExpectations(t)
}

func TestSnapshot_CreateRestore_EndpointNotAllowed(t *testing.T) {
	q := &mockQueue{}
	h := newTestSnapshot(q)

	rec := httptest.NewRecorder()
	h.CreateRestore(rec, newRequest(http.MethodPost, "/v1/restores", map[string]any{
		"folder_name": "2024-06-01T01:00:00Z",
		"endpoint":    "https://other.search.windows.net",
		"index_name":  "documents",
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "allow-list")
	q.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestSnapshot_CreateRestore_InvalidCheckpoint(t *testing.T) {
	q := &mockQueue{}
	h := newTestSnapshot(q)

	rec := httptest.NewRecorder()
	h.CreateRestore(rec, newRequest(http.MethodPost, "/v1/restores", map[string]any{
		"folder_name":          "2024-06-01T01:00:00Z",
		"endpoint":             testEndpoint,
		"index_name":           "documents",
		"last_blob_version_id": "last tuesday",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "validation error")
}

func TestSnapshot_CreateRestore_QueueError(t *testing.T) {
	q := &mockQueue{}
	h := newTestSnapshot(q)
	q.On("SendMessage", mock.Anything, "search-restore", mock.Anything).Return("", errors.New("db down"))

	rec := httptest.NewRecorder()
	h.CreateRestore(rec, newRequest(http.MethodPost, "/v1/restores", map[string]any{
		"folder_name": "2024-06-01T01:00:00Z",
		"endpoint":    testEndpoint,
		"index_name":  "documents",
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSnapshot_CreateBackup(t *testing.T) {
	q := &mockQueue{}
	h := newTestSnapshot(q)
	q.On("SendMessage", mock.Anything, "search-backup", model.BackupQueueMessage{
		Datetime:  "2024-06-01T13:30:00Z",
		Endpoint:  testEndpoint,
		IndexName: "documents",
	}).Return("msg-2", nil)

	rec := httptest.NewRecorder()
	h.CreateBackup(rec, newRequest(http.MethodPost, "/v1/backups", map[string]any{
		"endpoint":   testEndpoint,
		"index_name": "documents",
	}))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	q.AssertExpectations(t)
}

func TestSnapshot_CreateBackup_MissingIndex(t *testing.T) {
	h := newTestSnapshot(&mockQueue{})

	rec := httptest.NewRecorder()
	h.CreateBackup(rec, newRequest(http.MethodPost, "/v1/backups", map[string]any{"endpoint": testEndpoint}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

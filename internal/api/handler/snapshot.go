package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/edvin/searchvault/internal/api/request"
	"github.com/edvin/searchvault/internal/api/response"
	"github.com/edvin/searchvault/internal/indexbackup"
	"github.com/edvin/searchvault/internal/model"
	"github.com/edvin/searchvault/internal/platform"
)

// Queue is the queue API the handlers use.
type Queue interface {
	SendMessage(ctx context.Context, queue string, v any) (string, error)
	Stats(ctx context.Context, queues []string) ([]model.QueueStats, error)
}

// EndpointChecker reports whether an endpoint is on the allow-list.
type EndpointChecker interface {
	Allowed(endpoint string) bool
}

// Enqueued is returned for every message an operator request enqueues.
type Enqueued struct {
	MessageID string `json:"message_id"`
	Queue     string `json:"queue"`
	Message   any    `json:"message"`
}

type Snapshot struct {
	queue        Queue
	endpoints    EndpointChecker
	backupQueue  string
	restoreQueue string
	now          func() time.Time
}

func NewSnapshot(q Queue, endpoints EndpointChecker, backupQueue, restoreQueue string) *Snapshot {
	return &Snapshot{
		queue:        q,
		endpoints:    endpoints,
		backupQueue:  backupQueue,
		restoreQueue: restoreQueue,
		now:          time.Now,
	}
}

// CreateRestore enqueues the first message of an index restore.
func (h *Snapshot) CreateRestore(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRestore
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.endpoints.Allowed(req.Endpoint) {
		response.WriteError(w, http.StatusUnprocessableEntity, "endpoint is not on the allow-list: "+req.Endpoint)
		return
	}

	msg := model.RestoreQueueMessage{
		FolderName:        req.FolderName,
		Endpoint:          req.Endpoint,
		IndexName:         req.IndexName,
		LastBlobVersionID: req.LastBlobVersionID,
	}
	h.enqueue(w, r, h.restoreQueue, msg)
}

// CreateBackup enqueues a backup of a single index under a fresh run id.
func (h *Snapshot) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBackup
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.endpoints.Allowed(req.Endpoint) {
		response.WriteError(w, http.StatusUnprocessableEntity, "endpoint is not on the allow-list: "+req.Endpoint)
		return
	}

	msg := indexbackup.NewBackupMessage(platform.NewRunID(h.now()), req.Endpoint, req.IndexName)
	h.enqueue(w, r, h.backupQueue, msg)
}

func (h *Snapshot) enqueue(w http.ResponseWriter, r *http.Request, queue string, msg any) {
	id, err := h.queue.SendMessage(r.Context(), queue, msg)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusAccepted, Enqueued{MessageID: id, Queue: queue, Message: msg})
}

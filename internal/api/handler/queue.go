package handler

import (
	"net/http"

	"github.com/edvin/searchvault/internal/api/response"
)

type Queues struct {
	queue Queue
	names []string
}

func NewQueues(q Queue, names ...string) *Queues {
	return &Queues{queue: q, names: names}
}

// List reports ready, in-flight and poisoned counts per queue.
func (h *Queues) List(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context(), h.names)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteList(w, http.StatusOK, stats)
}

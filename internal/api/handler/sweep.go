package handler

import (
	"net/http"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/searchvault/internal/api/response"
	"github.com/edvin/searchvault/internal/platform"
	"github.com/edvin/searchvault/internal/workflow"
)

type Sweep struct {
	tc temporalclient.Client
}

func NewSweep(tc temporalclient.Client) *Sweep {
	return &Sweep{tc: tc}
}

// Start runs an unscheduled backup sweep.
func (h *Sweep) Start(w http.ResponseWriter, r *http.Request) {
	run, err := h.tc.ExecuteWorkflow(r.Context(), temporalclient.StartWorkflowOptions{
		ID:        "backup-sweep-" + platform.NewID(),
		TaskQueue: workflow.TaskQueue,
	}, workflow.BackupSweepWorkflow)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusAccepted, map[string]string{
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
	})
}

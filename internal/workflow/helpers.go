package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// TaskQueue is the Temporal task queue served by the worker.
const TaskQueue = "searchvault-tasks"

// sweepActivityCtx bounds the fan-out activity. Listing indexes on every
// endpoint is quick; the queue work it starts runs outside the workflow.
func sweepActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    5 * time.Second,
			MaximumInterval:    30 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})
}

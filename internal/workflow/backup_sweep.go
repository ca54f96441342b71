package workflow

import (
	"fmt"
	"strings"

	"go.temporal.io/sdk/workflow"

	"github.com/edvin/searchvault/internal/activity"
	"github.com/edvin/searchvault/internal/platform"
)

// BackupSweepWorkflow starts a backup sweep of every index on every
// allow-listed endpoint. The run id comes from the workflow clock so a
// retried fan-out writes into the same snapshot folder.
func BackupSweepWorkflow(ctx workflow.Context) (*activity.FanOutBackupsResult, error) {
	ctx = sweepActivityCtx(ctx)
	run := platform.NewRunID(workflow.Now(ctx))

	var result activity.FanOutBackupsResult
	err := workflow.ExecuteActivity(ctx, "FanOutBackups", activity.FanOutBackupsParams{RunID: run}).Get(ctx, &result)
	if err != nil {
		return nil, fmt.Errorf("backup sweep %s: %w", run, err)
	}

	logger := workflow.GetLogger(ctx)
	if len(result.Failures) > 0 {
		logger.Warn("backup sweep partially enqueued", "run", run, "enqueued", result.Enqueued, "failures", len(result.Failures))
		return &result, fmt.Errorf("backup sweep %s: %d failures: %s", run, len(result.Failures), strings.Join(result.Failures, "; "))
	}

	logger.Info("backup sweep enqueued", "run", run, "enqueued", result.Enqueued)
	return &result, nil
}

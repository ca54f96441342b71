package indexbackup

import (
	"context"

	"github.com/edvin/searchvault/internal/model"
)

// DrainBackup runs backup invocations in process until the sweep of one
// index completes, returning the number of invocations.
func DrainBackup(ctx context.Context, job *BackupJob, msg model.BackupQueueMessage) (int, error) {
	n := 0
	for next := &msg; next != nil; {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		var err error
		next, err = job.Run(ctx, *next)
		n++
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// DrainRestore runs restore invocations in process until the index is
// fully restored, returning the number of invocations.
func DrainRestore(ctx context.Context, job *RestoreJob, msg model.RestoreQueueMessage) (int, error) {
	n := 0
	for next := &msg; next != nil; {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		var err error
		next, err = job.Run(ctx, *next)
		n++
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

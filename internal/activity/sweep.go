package activity

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/edvin/searchvault/internal/search"
)

// FanOutRunner enqueues the initial backup messages of a sweep.
type FanOutRunner interface {
	RunAs(ctx context.Context, run string) (int, error)
}

// Sweep contains the activities of the scheduled backup sweep.
type Sweep struct {
	fanOut FanOutRunner
}

func NewSweep(f FanOutRunner) *Sweep {
	return &Sweep{fanOut: f}
}

// FanOutBackupsParams holds parameters for FanOutBackups.
type FanOutBackupsParams struct {
	RunID string `json:"run_id"`
}

// FanOutBackupsResult reports what a fan-out enqueued. Failures lists the
// endpoints or indexes that could not be enqueued.
type FanOutBackupsResult struct {
	RunID    string   `json:"run_id"`
	Enqueued int      `json:"enqueued"`
	Failures []string `json:"failures,omitempty"`
}

// FanOutBackups enqueues one backup message per index of every endpoint.
// Only a fan-out that enqueued nothing fails the activity; partial
// failures are reported in the result so a retry does not duplicate the
// messages already sent.
func (a *Sweep) FanOutBackups(ctx context.Context, params FanOutBackupsParams) (*FanOutBackupsResult, error) {
	sent, err := a.fanOut.RunAs(ctx, params.RunID)
	res := &FanOutBackupsResult{RunID: params.RunID, Enqueued: sent}
	if err == nil {
		return res, nil
	}
	if sent == 0 {
		if errors.Is(err, search.ErrInvalidEndpoint) {
			return nil, temporal.NewNonRetryableApplicationError("fan out backups", "INVALID_ENDPOINT", err)
		}
		return nil, err
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			res.Failures = append(res.Failures, e.Error())
		}
	} else {
		res.Failures = []string{err.Error()}
	}
	return res, nil
}

package indexbackup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/searchvault/internal/model"
	"github.com/edvin/searchvault/internal/platform"
)

// FanOut starts a backup sweep: one backup message per index on every
// allow-listed endpoint, all sharing one run id.
type FanOut struct {
	lister      IndexLister
	sender      Sender
	backupQueue string
	logger      zerolog.Logger
	now         func() time.Time
}

func NewFanOut(lister IndexLister, sender Sender, backupQueue string, logger zerolog.Logger) *FanOut {
	return &FanOut{
		lister:      lister,
		sender:      sender,
		backupQueue: backupQueue,
		logger:      logger.With().Str("component", "fan-out").Logger(),
		now:         time.Now,
	}
}

// Run starts a sweep under a run id taken from the current time.
func (f *FanOut) Run(ctx context.Context) (int, error) {
	return f.RunAs(ctx, platform.NewRunID(f.now()))
}

// RunAs enqueues the initial backup messages of sweep run and returns how
// many were sent. A failing endpoint does not stop the others; its error
// is returned joined with any other failures after all endpoints were
// tried. Repeating a run re-enqueues the same messages, which rewrite the
// same snapshots.
func (f *FanOut) RunAs(ctx context.Context, run string) (int, error) {
	log := f.logger.With().Str("run", run).Logger()

	var (
		sent int
		errs []error
	)
	for _, endpoint := range f.lister.Endpoints() {
		indexes, err := f.lister.ListIndexes(ctx, endpoint)
		if err != nil {
			log.Error().Err(err).Str("endpoint", endpoint).Msg("failed to list indexes")
			errs = append(errs, fmt.Errorf("endpoint %s: %w", endpoint, err))
			continue
		}

		for _, index := range indexes {
			msg := NewBackupMessage(run, endpoint, index)
			if _, err := f.sender.SendMessage(ctx, f.backupQueue, msg); err != nil {
				log.Error().Err(err).Str("endpoint", endpoint).Str("index", index).Msg("failed to enqueue backup")
				errs = append(errs, fmt.Errorf("endpoint %s index %s: %w", endpoint, index, err))
				continue
			}
			sent++
		}
		log.Info().Str("endpoint", endpoint).Int("indexes", len(indexes)).Msg("backup sweep enqueued")
	}

	return sent, errors.Join(errs...)
}

// NewBackupMessage returns the first message of a sweep over one index.
func NewBackupMessage(run, endpoint, index string) model.BackupQueueMessage {
	return model.BackupQueueMessage{
		Datetime:  run,
		Endpoint:  endpoint,
		IndexName: index,
	}
}

package indexbackup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edvin/searchvault/internal/metrics"
	"github.com/edvin/searchvault/internal/model"
)

const (
	// PageSize is the number of documents per snapshot blob.
	PageSize = 1000
	// MaxIterations caps the pages one backup invocation writes.
	MaxIterations = 20
)

// ErrCursorStuck means a full invocation worth of documents shares the
// incoming cursor value, so a continuation would repeat the same work.
var ErrCursorStuck = errors.New("sort field cursor did not advance")

// BackupJob copies one window of an index into snapshot blobs.
type BackupJob struct {
	index   SearchIndex
	store   BlobStore
	logger  zerolog.Logger
	metrics *metrics.Pipeline

	PageSize      int
	MaxIterations int
	SortFields    []string
}

func NewBackupJob(index SearchIndex, store BlobStore, logger zerolog.Logger, m *metrics.Pipeline) *BackupJob {
	return &BackupJob{
		index:         index,
		store:         store,
		logger:        logger.With().Str("component", "backup-job").Logger(),
		metrics:       m,
		PageSize:      PageSize,
		MaxIterations: MaxIterations,
		SortFields:    SortFields,
	}
}

// Run performs one backup invocation for msg. It returns the continuation
// message when documents remain beyond this invocation's window, nil when
// the sweep of the index is complete.
//
// Pages are read at increasing offsets under the incoming cursor; the
// filter itself only advances between invocations.
func (j *BackupJob) Run(ctx context.Context, msg model.BackupQueueMessage) (*model.BackupQueueMessage, error) {
	log := j.logger.With().
		Str("run", msg.Datetime).
		Str("endpoint", msg.Endpoint).
		Str("index", msg.IndexName).
		Logger()

	schema, err := j.index.GetIndexSchema(ctx, msg.Endpoint, msg.IndexName)
	if err != nil {
		return nil, fmt.Errorf("backup %s: %w", msg.IndexName, err)
	}
	key, err := ResolveSortField(schema.Fields, j.SortFields)
	if err != nil {
		return nil, fmt.Errorf("backup %s: %w", msg.IndexName, err)
	}
	sf := model.SortField{Key: key, Value: msg.SortFieldValue, Type: schema.FieldTypes[key]}

	remaining, err := j.index.CountDocumentsFrom(ctx, msg.Endpoint, msg.IndexName, sf)
	if err != nil {
		return nil, fmt.Errorf("backup %s: %w", msg.IndexName, err)
	}

	if remaining == 0 {
		path := SnapshotPath(msg.Datetime, msg.IndexName, EmptySnapshotName)
		if err := j.writeSnapshot(ctx, path, msg.IndexName, []model.Document{}); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("index has no documents to back up")
		return nil, nil
	}

	needed := (remaining + j.PageSize - 1) / j.PageSize
	iterations := min(needed, j.MaxIterations)
	log.Info().
		Str("sort_field", key).
		Int("remaining", remaining).
		Int("pages", iterations).
		Int("pages_needed", needed).
		Msg("starting backup invocation")

	var last string
	for i := 0; i < iterations; i++ {
		offset := i * j.PageSize
		docs, err := j.index.GetDocumentsPage(ctx, msg.Endpoint, msg.IndexName, sf, j.PageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("backup %s page %d: %w", msg.IndexName, i, err)
		}
		if len(docs) == 0 {
			log.Warn().Int("offset", offset).Msg("empty page before expected end, index shrank during backup")
			break
		}

		cursor, err := cursorValue(docs[len(docs)-1], key)
		if err != nil {
			return nil, fmt.Errorf("backup %s page %d: %w", msg.IndexName, i, err)
		}
		path := SnapshotPath(msg.Datetime, msg.IndexName, cursor)
		if err := j.writeSnapshot(ctx, path, msg.IndexName, docs); err != nil {
			return nil, err
		}
		last = cursor
		log.Debug().Str("path", path).Int("documents", len(docs)).Int("offset", offset).Msg("snapshot written")
	}

	if needed <= j.MaxIterations || last == "" {
		log.Info().Msg("backup of index complete")
		return nil, nil
	}

	if msg.SortFieldValue != nil && *msg.SortFieldValue == last {
		return nil, fmt.Errorf("backup %s: %w: more than %d documents share %s=%s",
			msg.IndexName, ErrCursorStuck, j.PageSize*j.MaxIterations, key, last)
	}

	next := &model.BackupQueueMessage{
		Datetime:       msg.Datetime,
		Endpoint:       msg.Endpoint,
		IndexName:      msg.IndexName,
		SortFieldValue: &last,
	}
	log.Info().Str("cursor", last).Int("pages_left", needed-iterations).Msg("backup continues in next invocation")
	return next, nil
}

func (j *BackupJob) writeSnapshot(ctx context.Context, path, index string, docs []model.Document) error {
	data, err := json.Marshal(model.Snapshot{Documents: docs})
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", path, err)
	}
	if err := j.store.Put(ctx, path, data); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	j.metrics.SnapshotWritten(index, len(docs))
	return nil
}

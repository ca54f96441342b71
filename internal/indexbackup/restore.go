package indexbackup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/searchvault/internal/metrics"
	"github.com/edvin/searchvault/internal/model"
)

// RestoreBlobsLimit caps the snapshot blobs one restore invocation replays.
const RestoreBlobsLimit = 20

// RestoreJob replays snapshot blobs into an index in version order.
type RestoreJob struct {
	index   SearchIndex
	store   BlobStore
	logger  zerolog.Logger
	metrics *metrics.Pipeline

	BlobsLimit int
}

func NewRestoreJob(index SearchIndex, store BlobStore, logger zerolog.Logger, m *metrics.Pipeline) *RestoreJob {
	return &RestoreJob{
		index:      index,
		store:      store,
		logger:     logger.With().Str("component", "restore-job").Logger(),
		metrics:    m,
		BlobsLimit: RestoreBlobsLimit,
	}
}

type versionedBlob struct {
	ref     model.BlobRef
	version time.Time
}

// Run performs one restore invocation for msg and returns the continuation
// message, or nil once every blob newer than the checkpoint was replayed.
func (j *RestoreJob) Run(ctx context.Context, msg model.RestoreQueueMessage) (*model.RestoreQueueMessage, error) {
	log := j.logger.With().
		Str("folder", msg.FolderName).
		Str("endpoint", msg.Endpoint).
		Str("index", msg.IndexName).
		Logger()

	prefix := SnapshotPrefix(msg.FolderName, msg.IndexName)
	refs, err := j.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", msg.IndexName, err)
	}
	if len(refs) == 0 {
		log.Info().Str("prefix", prefix).Msg("no snapshots to restore")
		return nil, nil
	}

	blobs := make([]versionedBlob, 0, len(refs))
	for _, ref := range refs {
		v, err := model.ParseVersionID(ref.VersionID)
		if err != nil {
			return nil, fmt.Errorf("restore %s: blob %s: %w", msg.IndexName, ref.Name, err)
		}
		blobs = append(blobs, versionedBlob{ref: ref, version: v})
	}
	sort.SliceStable(blobs, func(a, b int) bool {
		if blobs[a].version.Equal(blobs[b].version) {
			return blobs[a].ref.Name < blobs[b].ref.Name
		}
		return blobs[a].version.Before(blobs[b].version)
	})

	pending := blobs
	if msg.LastBlobVersionID != nil {
		checkpoint, err := model.ParseVersionID(*msg.LastBlobVersionID)
		if err != nil {
			return nil, fmt.Errorf("restore %s: checkpoint: %w", msg.IndexName, err)
		}
		pending = newerThan(blobs, checkpoint)
	}
	if len(pending) == 0 {
		log.Info().Msg("restore of index complete, nothing newer than checkpoint")
		return nil, nil
	}

	window := pending[:min(j.BlobsLimit, len(pending))]
	// Blobs sharing the boundary version must be replayed together or the
	// strict checkpoint comparison would skip the rest.
	for len(window) < len(pending) && pending[len(window)].version.Equal(window[len(window)-1].version) {
		window = pending[:len(window)+1]
	}

	log.Info().Int("pending", len(pending)).Int("window", len(window)).Msg("starting restore invocation")

	for _, b := range window {
		n, err := j.replay(ctx, msg, b.ref.Name)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("blob", b.ref.Name).Str("version", b.ref.VersionID).Int("documents", n).Msg("snapshot replayed")
	}

	last := window[len(window)-1]
	checkpoint := last.version
	remaining := len(newerThan(pending, checkpoint))
	if remaining == 0 {
		log.Info().Msg("restore of index complete")
		return nil, nil
	}

	// The blob's own version id, not a reformatted one: reformatting could
	// drop digits and make the next invocation replay this blob again.
	cp := last.ref.VersionID
	log.Info().Str("checkpoint", cp).Int("remaining", remaining).Msg("restore continues in next invocation")
	return &model.RestoreQueueMessage{
		FolderName:        msg.FolderName,
		Endpoint:          msg.Endpoint,
		IndexName:         msg.IndexName,
		LastBlobVersionID: &cp,
	}, nil
}

func (j *RestoreJob) replay(ctx context.Context, msg model.RestoreQueueMessage, name string) (int, error) {
	data, err := j.store.Get(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("restore %s: %w", msg.IndexName, err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("restore %s: decode snapshot %s: %w", msg.IndexName, name, err)
	}
	if len(snap.Documents) > 0 {
		if err := j.index.UpsertDocuments(ctx, msg.Endpoint, msg.IndexName, snap.Documents); err != nil {
			return 0, fmt.Errorf("restore %s: replay %s: %w", msg.IndexName, name, err)
		}
	}
	j.metrics.BlobRestored(msg.IndexName, len(snap.Documents))
	return len(snap.Documents), nil
}

// newerThan returns the suffix of the version-sorted blobs strictly after t.
func newerThan(blobs []versionedBlob, t time.Time) []versionedBlob {
	i := sort.Search(len(blobs), func(i int) bool { return blobs[i].version.After(t) })
	return blobs[i:]
}

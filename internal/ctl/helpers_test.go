package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edvin/searchvault/internal/indexbackup"
	"github.com/edvin/searchvault/internal/model"
	"github.com/edvin/searchvault/internal/objectstore"
)

var versionBase = time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC)

// seed writes n single-document snapshot blobs with increasing versions.
func seed(t *testing.T, store *objectstore.MemStore, folder string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		data, err := json.Marshal(model.Snapshot{Documents: []model.Document{{"id": fmt.Sprintf("doc-%03d", i)}}})
		require.NoError(t, err)
		path := indexbackup.SnapshotPath(folder, "documents", fmt.Sprintf("cursor-%03d", i))
		require.NoError(t, store.Put(context.Background(), path, data))
		store.SetVersion(path, model.FormatVersionID(versionBase.Add(time.Duration(i+1)*time.Millisecond)))
	}
}

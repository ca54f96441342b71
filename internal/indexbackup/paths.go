package indexbackup

import "fmt"

// EmptySnapshotName is written instead of pages when a sweep finds no
// documents.
const EmptySnapshotName = "empty"

// SnapshotPrefix is the folder holding all snapshots of index for one run.
func SnapshotPrefix(run, index string) string {
	return fmt.Sprintf("%s/%s/", run, index)
}

// SnapshotPath names the snapshot whose last document has the given cursor.
func SnapshotPath(run, index, cursor string) string {
	return SnapshotPrefix(run, index) + cursor + ".json"
}

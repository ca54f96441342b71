package model

// Snapshot is the content of one snapshot blob.
type Snapshot struct {
	Documents []Document `json:"documents"`
}

// BlobRef is a listed object store entry.
type BlobRef struct {
	Name      string `json:"name"`
	VersionID string `json:"version_id"`
}

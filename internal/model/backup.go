package model

// BackupQueueMessage identifies one continuation of a backup sweep over a
// single index. Datetime is the sweep's run id and prefixes every snapshot
// written for it.
type BackupQueueMessage struct {
	Datetime       string  `json:"datetime" validate:"required"`
	Endpoint       string  `json:"endpoint" validate:"required,url"`
	IndexName      string  `json:"index_name" validate:"required"`
	SortFieldValue *string `json:"sort_field_value"`
}

// RestoreQueueMessage identifies one continuation of a restore of a single
// index from the snapshots under FolderName.
type RestoreQueueMessage struct {
	FolderName        string  `json:"folder_name" validate:"required"`
	Endpoint          string  `json:"endpoint" validate:"required,url"`
	IndexName         string  `json:"index_name" validate:"required"`
	LastBlobVersionID *string `json:"last_blob_version_id"`
}

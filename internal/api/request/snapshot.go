package request

// CreateRestore starts restoring one index from the snapshots of a run.
// LastBlobVersionID resumes after the given blob version.
type CreateRestore struct {
	FolderName        string  `json:"folder_name" validate:"required,max=255"`
	Endpoint          string  `json:"endpoint" validate:"required,url"`
	IndexName         string  `json:"index_name" validate:"required,index_name"`
	LastBlobVersionID *string `json:"last_blob_version_id" validate:"omitempty,version_id"`
}

// CreateBackup starts a backup of a single index outside the scheduled
// sweep.
type CreateBackup struct {
	Endpoint  string `json:"endpoint" validate:"required,url"`
	IndexName string `json:"index_name" validate:"required,index_name"`
}

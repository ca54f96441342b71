package platform

import (
	"time"

	"github.com/google/uuid"
)

// RunIDLayout formats the run id shared by all snapshots of one sweep.
const RunIDLayout = "2006-01-02T15:04:05Z"

func NewID() string {
	return uuid.New().String()
}

// NewRunID returns the run id for a sweep started at t.
func NewRunID(t time.Time) string {
	return t.UTC().Format(RunIDLayout)
}

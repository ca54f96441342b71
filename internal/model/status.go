package model

// Queue message status constants.
const (
	StatusReady    = "ready"
	StatusPoisoned = "poisoned"
)

package model

import "time"

type QueueMessage struct {
	ID            string    `json:"id"`
	Queue         string    `json:"queue"`
	Body          string    `json:"body"`
	Status        string    `json:"status"`
	StatusMessage *string   `json:"status_message,omitempty"`
	DequeueCount  int       `json:"dequeue_count"`
	VisibleAt     time.Time `json:"visible_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QueueStats summarizes the messages of one queue.
type QueueStats struct {
	Queue    string `json:"queue"`
	Ready    int    `json:"ready"`
	InFlight int    `json:"in_flight"`
	Poisoned int    `json:"poisoned"`
}

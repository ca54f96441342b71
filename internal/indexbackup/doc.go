// Package indexbackup snapshots search indexes into blob storage and
// replays those snapshots back into an index.
//
// Each job invocation does a bounded amount of work and returns the message
// for the next invocation, or nil when it is done. The caller owns the
// trampoline: the queue worker enqueues the continuation, Drain* helpers
// loop in process.
package indexbackup

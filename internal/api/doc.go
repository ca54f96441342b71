// Package api provides the operator REST API: start restores and
// single-index backups, trigger a backup sweep, inspect queues.
package api

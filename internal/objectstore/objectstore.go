// Package objectstore stores snapshot blobs. Every write is stamped with a
// version id that increases strictly within the writing process, so blobs
// can be replayed in write order.
package objectstore

import (
	"errors"
	"sync"
	"time"

	"github.com/edvin/searchvault/internal/model"
)

// ErrNotFound is returned by Get for a missing path.
var ErrNotFound = errors.New("blob not found")

// versionClock hands out strictly increasing version ids at the 100ns
// resolution of model.VersionIDLayout.
type versionClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newVersionClock() *versionClock {
	return &versionClock{now: time.Now}
}

func (c *versionClock) next() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(100 * time.Nanosecond)
	if !t.After(c.last) {
		t = c.last.Add(100 * time.Nanosecond)
	}
	c.last = t
	return model.FormatVersionID(t)
}

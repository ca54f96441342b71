package model

import (
	"fmt"
	"time"
)

// VersionIDLayout renders blob version ids: UTC with 100ns precision, the
// format the object stores stamp on every write.
const VersionIDLayout = "2006-01-02T15:04:05.0000000Z"

func FormatVersionID(t time.Time) string {
	return t.UTC().Format(VersionIDLayout)
}

// ParseVersionID parses a blob version id at full precision. Any number of
// fractional digits is accepted; a trailing Z means UTC.
func ParseVersionID(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse version id %q: %w", s, err)
	}
	return t.UTC(), nil
}

package indexbackup

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/edvin/searchvault/internal/model"
)

// SortFields are the timestamp-like fields usable as a pagination cursor,
// in order of preference.
var SortFields = []string{"created_at", "construction_start_date"}

// ErrSortFieldNotFound means the index has none of the allowed sort fields
// and cannot be backed up.
var ErrSortFieldNotFound = errors.New("no sort field found")

// ResolveSortField returns the first entry of allowed present in fields.
func ResolveSortField(fields []string, allowed []string) (string, error) {
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f] = true
	}
	for _, a := range allowed {
		if present[a] {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: index fields %v contain none of %v", ErrSortFieldNotFound, fields, allowed)
}

// cursorValue extracts the cursor value of doc for the sort field key.
func cursorValue(doc model.Document, key string) (string, error) {
	switch v := doc[key].(type) {
	case nil:
		return "", fmt.Errorf("document has no value for sort field %s", key)
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return fmt.Sprint(v), nil
	}
}

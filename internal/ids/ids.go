package ids

import "github.com/segmentio/ksuid"

// New returns a URL-safe, sortable unique identifier.
func New() string {
	return ksuid.New().String()
}

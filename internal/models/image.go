package models

import "time"

// Image is the sole persisted entity: the transcoded payload stored inline
// alongside its metadata. Rows are created once and never updated.
type Image struct {
	ID          string
	Filename    string
	ContentType string
	SizeBytes   int64
	Data        []byte
	CreatedAt   time.Time
}

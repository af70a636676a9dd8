package model

import "time"

// Coordinate sources recorded on every ImageRecord.
const (
	SourceEXIF      = "exif"
	SourceSynthetic = "synthetic"
	SourceNone      = "none"
)

// Location is a resolved image position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Place     string  `json:"place,omitempty"`
	Source    string  `json:"source"`
}

// ImageRecord is the result for one processed image. Records are never mutated after creation.
type ImageRecord struct {
	ID          int64     `json:"id" db:"id"`
	RunID       int64     `json:"run_id" db:"run_id"`
	Name        string    `json:"name" db:"name"`
	Path        string    `json:"path" db:"path"`
	Detections  []float64 `json:"detections" db:"-"`
	Latitude    float64   `json:"latitude" db:"latitude"`
	Longitude   float64   `json:"longitude" db:"longitude"`
	Place       string    `json:"place" db:"place"`
	Source      string    `json:"source" db:"source"`
	Probability float64   `json:"probability" db:"probability"`
	ProcessedAt time.Time `json:"processed_at" db:"processed_at"`
}

// HasFire reports whether any fire-relevant detection was found.
func (r ImageRecord) HasFire() bool {
	return len(r.Detections) > 0
}

// Place is one row of the synthetic coordinate table.
type Place struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"place"`
}

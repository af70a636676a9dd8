package model

import "time"

// Run is one batch evaluation over a directory.
type Run struct {
	ID         int64      `json:"id" db:"id"`
	Directory  string     `json:"directory" db:"directory"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Processed  int        `json:"processed" db:"processed"`
	Skipped    int        `json:"skipped" db:"skipped"`
	WithFire   int        `json:"with_fire" db:"with_fire"`
}

package model

import "fmt"

// Detection is one stored detector box belonging to an ImageRecord.
type Detection struct {
	ID         int64   `json:"id" db:"id"`
	RecordID   int64   `json:"record_id" db:"record_id"`
	Label      string  `json:"label" db:"label"`
	X          int     `json:"x" db:"x"`
	Y          int     `json:"y" db:"y"`
	Width      int     `json:"width" db:"width"`
	Height     int     `json:"height" db:"height"`
	Confidence float64 `json:"confidence" db:"confidence"`
}

// MapMarker is a labeled point on the results map. Fire only affects the marker colour.
type MapMarker struct {
	Latitude  float64 `json:"lat" db:"latitude"`
	Longitude float64 `json:"lon" db:"longitude"`
	Label     string  `json:"label" db:"label"`
	Fire      bool    `json:"fire" db:"fire"`
}

// Classification labels shown in the results table and on markers.
const (
	LabelFire   = "fire"
	LabelNoFire = "no fire"
)

// MarkerFor builds the map marker of a record: "name: fire (0.75)" or "name: no fire".
func MarkerFor(record ImageRecord) MapMarker {
	label := fmt.Sprintf("%s: %s", record.Name, LabelNoFire)
	if record.HasFire() {
		label = fmt.Sprintf("%s: %s (%.2f)", record.Name, LabelFire, record.Probability)
	}
	return MapMarker{
		Latitude:  record.Latitude,
		Longitude: record.Longitude,
		Label:     label,
		Fire:      record.HasFire(),
	}
}

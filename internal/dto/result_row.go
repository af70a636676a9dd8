package dto

import "github.com/DanilSvechnikar/wildfire-detection/internal/model"

// Classification labels shown in the results table.
const (
	LabelFire   = model.LabelFire
	LabelNoFire = model.LabelNoFire
)

// ResultRow is the display form of an ImageRecord: probability rounded to 2 places,
// coordinates to 6.
type ResultRow struct {
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Place       string  `json:"place,omitempty"`
}

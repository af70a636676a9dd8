package dto

import "github.com/DanilSvechnikar/wildfire-detection/internal/model"

// RunSummary is the outcome of evaluating one directory.
type RunSummary struct {
	Run     model.Run     `json:"run"`
	Rows    []ResultRow   `json:"rows"`
	Skipped []SkippedFile `json:"skipped"`
	MapPath string        `json:"map_path"`
}

// RunStarted is the payload of EventRunStarted.
type RunStarted struct {
	Directory string `json:"directory"`
	Total     int    `json:"total"`
}

// Prediction is the outcome of evaluating a single image.
type Prediction struct {
	Evaluation Evaluation     `json:"evaluation"`
	Location   model.Location `json:"location"`
	Row        ResultRow      `json:"row"`
}

package dto

import "github.com/DanilSvechnikar/wildfire-detection/internal/model"

// BufferedRecord holds a record and its raw detections before flushing to the repository.
type BufferedRecord struct {
	Record     model.ImageRecord
	Detections []DetectionResult
}

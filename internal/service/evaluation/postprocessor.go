package evaluation

import (
	"strings"

	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
)

// Postprocessor filters or modifies detector output.
type Postprocessor func([]dto.DetectionResult) []dto.DetectionResult

// NewScoreFilter drops detections below conf.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in []dto.DetectionResult) []dto.DetectionResult {
		out := make([]dto.DetectionResult, 0, len(in))
		for _, d := range in {
			if d.Confidence >= conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewClassFilter keeps detections whose label is in classes. An empty list keeps everything.
func NewClassFilter(classes []string) Postprocessor {
	allowed := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		allowed[strings.ToLower(c)] = struct{}{}
	}
	return func(in []dto.DetectionResult) []dto.DetectionResult {
		if len(allowed) == 0 {
			return append([]dto.DetectionResult{}, in...)
		}
		out := make([]dto.DetectionResult, 0, len(in))
		for _, d := range in {
			if _, ok := allowed[strings.ToLower(d.Label)]; ok {
				out = append(out, d)
			}
		}
		return out
	}
}

// Chain applies postprocessors in order.
func Chain(steps ...Postprocessor) Postprocessor {
	return func(in []dto.DetectionResult) []dto.DetectionResult {
		out := in
		for _, step := range steps {
			out = step(out)
		}
		return out
	}
}

// Confidences extracts the confidence of every detection.
func Confidences(detections []dto.DetectionResult) []float64 {
	out := make([]float64, len(detections))
	for i, d := range detections {
		out[i] = d.Confidence
	}
	return out
}

package dto

// Evaluation is the detection adapter output for a single input path.
type Evaluation struct {
	Path          string            `json:"path"`
	AnnotatedPath string            `json:"annotated_path,omitempty"`
	Detections    []DetectionResult `json:"detections"`
	Confidences   []float64         `json:"confidences"`
	Err           error             `json:"-"`
}

// Failed reports whether the file could not be evaluated.
func (e Evaluation) Failed() bool {
	return e.Err != nil
}

// SkippedFile is a file the run could not process.
type SkippedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// VideoSummary is returned by the video and camera evaluation loops.
type VideoSummary struct {
	Source         string  `json:"source"`
	Frames         int     `json:"frames"`
	FramesWithFire int     `json:"frames_with_fire"`
	MaxProbability float64 `json:"max_probability"`
}

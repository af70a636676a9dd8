package dto

// Event types pushed to viewers.
const (
	EventRunStarted  = "run_started"
	EventBatch       = "batch"
	EventRecord      = "record"
	EventSkipped     = "skipped"
	EventRunFinished = "run_finished"
)

// Event is the JSON envelope broadcast over the viewer websocket.
type Event struct {
	Type    string      `json:"type"`
	RunID   int64       `json:"run_id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// BatchProgress is the payload of EventBatch.
type BatchProgress struct {
	Index int      `json:"index"`
	Paths []string `json:"paths"`
	Done  int      `json:"done"`
	Total int      `json:"total"`
}

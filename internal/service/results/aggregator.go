// Package results turns per-image confidence lists into records and display rows.
package results

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
)

// ErrConfidenceRange is returned for confidences outside [0, 1].
var ErrConfidenceRange = errors.New("confidence outside [0, 1]")

// FireProbability combines independent detections: 1 - Π(1 - c). Empty input gives 0.
func FireProbability(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	none := 1.0
	for _, c := range confidences {
		none *= 1 - c
	}
	return 1 - none
}

// Label classifies a confidence list.
func Label(confidences []float64) string {
	if len(confidences) > 0 {
		return dto.LabelFire
	}
	return dto.LabelNoFire
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Validate checks every confidence is a number in [0, 1].
func Validate(confidences []float64) error {
	for i, c := range confidences {
		if math.IsNaN(c) || c < 0 || c > 1 {
			return fmt.Errorf("%w: confidences[%d] = %v", ErrConfidenceRange, i, c)
		}
	}
	return nil
}

// Row renders a record for display without touching the record.
func Row(record model.ImageRecord) dto.ResultRow {
	return dto.ResultRow{
		Name:        record.Name,
		Label:       Label(record.Detections),
		Probability: Round(FireProbability(record.Detections), 2),
		Latitude:    Round(record.Latitude, 6),
		Longitude:   Round(record.Longitude, 6),
		Place:       record.Place,
	}
}

// Aggregator collects the records of one run in processing order.
type Aggregator struct {
	mu      sync.RWMutex
	records []model.ImageRecord
	clock   clock.Clock
}

// NewAggregator returns an empty aggregator. A nil clock uses the wall clock.
func NewAggregator(clk clock.Clock) *Aggregator {
	if clk == nil {
		clk = clock.New()
	}
	return &Aggregator{clock: clk}
}

// Record appends one image result. The confidence slice is copied.
func (a *Aggregator) Record(name, path string, confidences []float64, loc model.Location) (model.ImageRecord, error) {
	if err := Validate(confidences); err != nil {
		return model.ImageRecord{}, fmt.Errorf("invalid detections for %s: %w", name, err)
	}

	record := model.ImageRecord{
		Name:        name,
		Path:        path,
		Detections:  append([]float64{}, confidences...),
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Place:       loc.Place,
		Source:      loc.Source,
		Probability: FireProbability(confidences),
		ProcessedAt: a.clock.Now(),
	}

	a.mu.Lock()
	a.records = append(a.records, record)
	a.mu.Unlock()

	return copyRecord(record), nil
}

// Records returns copies of all records in processing order.
func (a *Aggregator) Records() []model.ImageRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]model.ImageRecord, len(a.records))
	for i, r := range a.records {
		out[i] = copyRecord(r)
	}
	return out
}

// Table returns the display rows in processing order.
func (a *Aggregator) Table() []dto.ResultRow {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rows := make([]dto.ResultRow, len(a.records))
	for i, r := range a.records {
		rows[i] = Row(r)
	}
	return rows
}

// Len returns the number of records.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}

// Reset discards all records for a new run.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.records = nil
	a.mu.Unlock()
}

func copyRecord(r model.ImageRecord) model.ImageRecord {
	r.Detections = append([]float64{}, r.Detections...)
	return r
}

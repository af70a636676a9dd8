package repository

import (
	"context"

	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
)

// RunRepository defines the interface for evaluation run operations.
type RunRepository interface {
	// Create operations
	Create(ctx context.Context, run *model.Run) (int64, error)
	Finish(ctx context.Context, run *model.Run) error

	// Read operations
	GetByID(ctx context.Context, id int64) (*model.Run, error)
	List(ctx context.Context, limit int) ([]model.Run, error)
}

// RecordRepository defines the interface for processed image records.
type RecordRepository interface {
	// Create operations
	InsertBatch(ctx context.Context, records []dto.BufferedRecord) error

	// Read operations
	ListByRun(ctx context.Context, filter *dto.RecordFilters) ([]model.ImageRecord, error)
	CountByRun(ctx context.Context, filter *dto.RecordFilters) (int, error)
	DetectionsByRecord(ctx context.Context, recordID int64) ([]model.Detection, error)
	Markers(ctx context.Context, runID int64, fireOnly bool) ([]model.MapMarker, error)
}

// PlaceRepository names the place nearest to a coordinate.
type PlaceRepository interface {
	PlaceNear(ctx context.Context, lat, lon float64) (string, error)
}

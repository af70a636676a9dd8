package storage

import (
	"context"
	"sync"

	"github.com/DanilSvechnikar/wildfire-detection/internal/config"
	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
	"github.com/DanilSvechnikar/wildfire-detection/internal/repository"
)

// DefaultBufferLimit is how many records are buffered before an automatic flush.
const DefaultBufferLimit = 10

// BufferService buffers processed records in memory and flushes them to the repository.
type BufferService struct {
	records    []dto.BufferedRecord
	limit      int
	mu         sync.Mutex
	logger     *logger.Logger
	recordRepo repository.RecordRepository
}

// NewBufferService creates a BufferService. A nil repository keeps records in memory only.
func NewBufferService(config *config.Config, logger *logger.Logger, recordRepo repository.RecordRepository) *BufferService {
	limit := config.ResultBufferSize
	if limit < 1 {
		limit = DefaultBufferLimit
	}
	return &BufferService{
		records:    make([]dto.BufferedRecord, 0, limit),
		limit:      limit,
		logger:     logger,
		recordRepo: recordRepo,
	}
}

// AddRecord appends a record of run runID and flushes when the buffer is full.
func (s *BufferService) AddRecord(ctx context.Context, runID int64, record model.ImageRecord, detections []dto.DetectionResult) {
	s.mu.Lock()
	record.RunID = runID
	s.records = append(s.records, dto.BufferedRecord{
		Record:     record,
		Detections: append([]dto.DetectionResult(nil), detections...),
	})
	full := len(s.records) >= s.limit
	s.mu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Pending returns the number of buffered records.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Flush writes buffered records to the repository. On failure the records are kept for the
// next flush.
func (s *BufferService) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return nil
	}

	if s.recordRepo == nil {
		s.records = s.records[:0]
		return nil
	}

	if err := s.recordRepo.InsertBatch(ctx, s.records); err != nil {
		s.logger.Error("Error saving %d records to database: %v", len(s.records), err)
		return err
	}

	s.logger.Info("Flushed %d records to database", len(s.records))
	s.records = s.records[:0]
	return nil
}

// Discard drops every buffered record and returns how many were dropped.
func (s *BufferService) Discard() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.records)
	s.records = s.records[:0]
	return n
}

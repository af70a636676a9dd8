package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
	"github.com/DanilSvechnikar/wildfire-detection/internal/testutil"
)

type fakeRecordRepo struct {
	batches [][]dto.BufferedRecord
	err     error
}

func (r *fakeRecordRepo) InsertBatch(_ context.Context, records []dto.BufferedRecord) error {
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, append([]dto.BufferedRecord(nil), records...))
	return nil
}

func (r *fakeRecordRepo) ListByRun(context.Context, *dto.RecordFilters) ([]model.ImageRecord, error) {
	return nil, nil
}

func (r *fakeRecordRepo) CountByRun(context.Context, *dto.RecordFilters) (int, error) {
	return 0, nil
}

func (r *fakeRecordRepo) DetectionsByRecord(context.Context, int64) ([]model.Detection, error) {
	return nil, nil
}

func (r *fakeRecordRepo) Markers(context.Context, int64, bool) ([]model.MapMarker, error) {
	return nil, nil
}

func TestBufferService_AutoFlushAtLimit(t *testing.T) {
	cfg := testutil.Config(t)
	cfg.ResultBufferSize = 2
	repo := &fakeRecordRepo{}
	buffer := NewBufferService(cfg, testutil.Logger(t), repo)
	ctx := context.Background()

	buffer.AddRecord(ctx, 7, model.ImageRecord{Name: "a.jpg"}, nil)
	if len(repo.batches) != 0 || buffer.Pending() != 1 {
		t.Fatalf("expected no flush below the limit, got %d batches", len(repo.batches))
	}

	buffer.AddRecord(ctx, 7, model.ImageRecord{Name: "b.jpg"}, []dto.DetectionResult{{Label: "fire", Confidence: 0.4}})
	if len(repo.batches) != 1 || len(repo.batches[0]) != 2 {
		t.Fatalf("expected one flushed batch of 2, got %+v", repo.batches)
	}
	if repo.batches[0][1].Record.RunID != 7 || len(repo.batches[0][1].Detections) != 1 {
		t.Errorf("unexpected flushed record %+v", repo.batches[0][1])
	}
	if buffer.Pending() != 0 {
		t.Errorf("buffer should be empty after flush, has %d", buffer.Pending())
	}
}

func TestBufferService_KeepsRecordsOnFailure(t *testing.T) {
	repo := &fakeRecordRepo{err: errors.New("database locked")}
	buffer := NewBufferService(testutil.Config(t), testutil.Logger(t), repo)
	ctx := context.Background()

	buffer.AddRecord(ctx, 1, model.ImageRecord{Name: "a.jpg"}, nil)
	if err := buffer.Flush(ctx); err == nil {
		t.Fatal("expected flush error")
	}
	if buffer.Pending() != 1 {
		t.Fatalf("records must be kept after a failed flush, have %d", buffer.Pending())
	}

	repo.err = nil
	if err := buffer.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if len(repo.batches) != 1 || buffer.Pending() != 0 {
		t.Errorf("expected retried flush to succeed, got %d batches", len(repo.batches))
	}
}

func TestBufferService_NoRepository(t *testing.T) {
	buffer := NewBufferService(testutil.Config(t), testutil.Logger(t), nil)
	buffer.AddRecord(context.Background(), 1, model.ImageRecord{Name: "a.jpg"}, nil)
	if err := buffer.Flush(context.Background()); err != nil || buffer.Pending() != 0 {
		t.Errorf("expected in-memory flush to succeed, got %v with %d pending", err, buffer.Pending())
	}
}

func TestBufferService_Discard(t *testing.T) {
	repo := &fakeRecordRepo{err: errors.New("FOREIGN KEY constraint failed")}
	buffer := NewBufferService(testutil.Config(t), testutil.Logger(t), repo)
	ctx := context.Background()

	buffer.AddRecord(ctx, 3, model.ImageRecord{Name: "a.jpg"}, nil)
	buffer.AddRecord(ctx, 3, model.ImageRecord{Name: "b.jpg"}, nil)
	if err := buffer.Flush(ctx); err == nil {
		t.Fatal("expected flush error")
	}

	if n := buffer.Discard(); n != 2 {
		t.Errorf("expected 2 discarded records, got %d", n)
	}

	repo.err = nil
	buffer.AddRecord(ctx, 4, model.ImageRecord{Name: "c.jpg"}, nil)
	if err := buffer.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if len(repo.batches) != 1 || len(repo.batches[0]) != 1 || repo.batches[0][0].Record.Name != "c.jpg" {
		t.Errorf("expected only the new record to be written, got %+v", repo.batches)
	}
}

package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
)

// RecordRepository implements repository.RecordRepository.
type RecordRepository struct {
	db *DB
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// InsertBatch stores records and their detections in a single transaction.
func (r *RecordRepository) InsertBatch(ctx context.Context, records []dto.BufferedRecord) error {
	if len(records) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	recordQuery := tx.Rebind(`
		INSERT INTO records (run_id, name, path, latitude, longitude, place, source, probability, fire, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	detectionStmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO detections (record_id, label, x, y, width, height, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer detectionStmt.Close()

	for _, buffered := range records {
		rec := buffered.Record

		var id int64
		if err := tx.QueryRowxContext(ctx, recordQuery,
			rec.RunID, rec.Name, rec.Path, rec.Latitude, rec.Longitude, rec.Place, rec.Source,
			rec.Probability, rec.HasFire(), rec.ProcessedAt,
		).Scan(&id); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.Name, err)
		}

		for _, det := range buffered.Detections {
			if _, err := detectionStmt.ExecContext(ctx, id, det.Label, det.X, det.Y, det.Width, det.Height, det.Confidence); err != nil {
				return fmt.Errorf("failed to insert detection: %w", err)
			}
		}
	}

	return tx.Commit()
}

// ListByRun returns one page of a run's records in processing order, with confidences loaded.
func (r *RecordRepository) ListByRun(ctx context.Context, filter *dto.RecordFilters) ([]model.ImageRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)
	query := `
		SELECT id, run_id, name, path, latitude, longitude, place, source, probability, processed_at
		FROM records` + where + ` ORDER BY id`

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
	}

	records := []model.ImageRecord{}
	if err := r.db.Conn().SelectContext(ctx, &records, r.db.Conn().Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	if err := r.loadConfidences(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// loadConfidences fills Detections for records from the detections table.
func (r *RecordRepository) loadConfidences(ctx context.Context, records []model.ImageRecord) error {
	ids := make([]int64, len(records))
	index := make(map[int64]int, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		index[rec.ID] = i
		records[i].Detections = []float64{}
	}

	query, args, err := sqlx.In(`SELECT record_id, confidence FROM detections WHERE record_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("failed to build detections query: %w", err)
	}

	rows, err := r.db.Conn().QueryxContext(ctx, r.db.Conn().Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recordID int64
		var confidence float64
		if err := rows.Scan(&recordID, &confidence); err != nil {
			return fmt.Errorf("failed to scan detection: %w", err)
		}
		i := index[recordID]
		records[i].Detections = append(records[i].Detections, confidence)
	}
	return rows.Err()
}

// CountByRun returns the number of records matching filter.
func (r *RecordRepository) CountByRun(ctx context.Context, filter *dto.RecordFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)

	var count int
	if err := r.db.Conn().GetContext(ctx, &count, r.db.Conn().Rebind(`SELECT COUNT(*) FROM records`+where), args...); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// DetectionsByRecord returns the stored boxes of one record.
func (r *RecordRepository) DetectionsByRecord(ctx context.Context, recordID int64) ([]model.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	detections := []model.Detection{}
	err := r.db.Conn().SelectContext(ctx, &detections, r.db.Conn().Rebind(`
		SELECT id, record_id, label, x, y, width, height, confidence
		FROM detections WHERE record_id = ? ORDER BY id
	`), recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	return detections, nil
}

// Markers rebuilds the map markers of a run.
func (r *RecordRepository) Markers(ctx context.Context, runID int64, fireOnly bool) ([]model.MapMarker, error) {
	label := ""
	if fireOnly {
		label = model.LabelFire
	}
	records, err := r.ListByRun(ctx, &dto.RecordFilters{RunID: runID, Label: label})
	if err != nil {
		return nil, err
	}

	markers := make([]model.MapMarker, 0, len(records))
	for _, rec := range records {
		markers = append(markers, model.MarkerFor(rec))
	}
	return markers, nil
}

// buildWhere creates a WHERE clause and args from filter.
func buildWhere(filter *dto.RecordFilters) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.RunID > 0 {
		conditions = append(conditions, "run_id = ?")
		args = append(args, filter.RunID)
	}
	switch filter.Label {
	case model.LabelFire:
		conditions = append(conditions, "fire = ?")
		args = append(args, true)
	case model.LabelNoFire:
		conditions = append(conditions, "fire = ?")
		args = append(args, false)
	}
	if filter.MinProb > 0 {
		conditions = append(conditions, "probability >= ?")
		args = append(args, filter.MinProb)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
)

// RunRepository implements repository.RunRepository.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run and stores the new ID on it.
func (r *RunRepository) Create(ctx context.Context, run *model.Run) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	query := r.db.Conn().Rebind(`
		INSERT INTO runs (directory, started_at, processed, skipped, with_fire)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	if err := r.db.Conn().QueryRowxContext(ctx, query,
		run.Directory, run.StartedAt, run.Processed, run.Skipped, run.WithFire,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	run.ID = id
	return id, nil
}

// Finish stores the final counters and completion time.
func (r *RunRepository) Finish(ctx context.Context, run *model.Run) error {
	r.db.Lock()
	defer r.db.Unlock()

	query := r.db.Conn().Rebind(`
		UPDATE runs SET finished_at = ?, processed = ?, skipped = ?, with_fire = ?
		WHERE id = ?
	`)

	result, err := r.db.Conn().ExecContext(ctx, query,
		run.FinishedAt, run.Processed, run.Skipped, run.WithFire, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to finish run: run %d not found", run.ID)
	}
	return nil
}

// GetByID retrieves a run by its ID. It returns nil when no run matches.
func (r *RunRepository) GetByID(ctx context.Context, id int64) (*model.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var run model.Run
	err := r.db.Conn().GetContext(ctx, &run, r.db.Conn().Rebind(`
		SELECT id, directory, started_at, finished_at, processed, skipped, with_fire
		FROM runs WHERE id = ?
	`), id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// List returns the most recent runs first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]model.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	runs := []model.Run{}
	err := r.db.Conn().SelectContext(ctx, &runs, r.db.Conn().Rebind(`
		SELECT id, directory, started_at, finished_at, processed, skipped, with_fire
		FROM runs ORDER BY id DESC LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

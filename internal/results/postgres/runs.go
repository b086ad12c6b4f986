package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/couckoo/couckoo/internal/lsh"
)

// Run is one persisted deduplication run with its parameters and outputs.
type Run struct {
	ID        uuid.UUID
	InputDir  string
	HashSize  int
	Bands     int
	Threshold float64
	Labels    map[string]int
	Scores    []lsh.Score
	CreatedAt time.Time
}

// ErrRunNotFound indicates the requested run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunRepository stores and retrieves deduplication runs.
type RunRepository struct {
	pool *Pool
}

// NewRunRepository creates a repository over the given pool.
func NewRunRepository(pool *Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Save persists a run with its label table and score table in a single
// transaction and returns the generated run id.
func (r *RunRepository) Save(ctx context.Context, run *Run) (uuid.UUID, error) {
	id := uuid.New()

	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, input_dir, hash_size, bands, threshold, image_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, run.InputDir, run.HashSize, run.Bands, run.Threshold, len(run.Labels))
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting run: %w", err)
	}

	labelStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO run_labels (run_id, file_path, label) VALUES ($1, $2, $3)")
	if err != nil {
		return uuid.Nil, fmt.Errorf("preparing label insert: %w", err)
	}
	defer labelStmt.Close()
	for file, label := range run.Labels {
		if _, err := labelStmt.ExecContext(ctx, id, file, label); err != nil {
			return uuid.Nil, fmt.Errorf("inserting label for %s: %w", file, err)
		}
	}

	scoreStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO run_scores (run_id, image_a, image_b, similarity) VALUES ($1, $2, $3, $4)")
	if err != nil {
		return uuid.Nil, fmt.Errorf("preparing score insert: %w", err)
	}
	defer scoreStmt.Close()
	for _, s := range run.Scores {
		if _, err := scoreStmt.ExecContext(ctx, id, s.A, s.B, s.Similarity); err != nil {
			return uuid.Nil, fmt.Errorf("inserting score (%s, %s): %w", s.A, s.B, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// Get loads a run with its labels and scores.
func (r *RunRepository) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	run := &Run{ID: id, Labels: make(map[string]int)}

	err := r.pool.db.QueryRowContext(ctx, `
		SELECT input_dir, hash_size, bands, threshold, created_at
		FROM runs WHERE id = $1
	`, id).Scan(&run.InputDir, &run.HashSize, &run.Bands, &run.Threshold, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	labels, err := r.Labels(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Labels = labels

	scores, err := r.Scores(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Scores = scores

	return run, nil
}

// Labels returns the label table of a run.
func (r *RunRepository) Labels(ctx context.Context, id uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT file_path, label FROM run_labels WHERE run_id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("querying labels: %w", err)
	}
	defer rows.Close()

	labels := make(map[string]int)
	for rows.Next() {
		var file string
		var label int
		if err := rows.Scan(&file, &label); err != nil {
			return nil, fmt.Errorf("scanning label row: %w", err)
		}
		labels[file] = label
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating label rows: %w", err)
	}
	return labels, nil
}

// Scores returns the score table of a run.
func (r *RunRepository) Scores(ctx context.Context, id uuid.UUID) ([]lsh.Score, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT image_a, image_b, similarity FROM run_scores WHERE run_id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("querying scores: %w", err)
	}
	defer rows.Close()

	var scores []lsh.Score
	for rows.Next() {
		var s lsh.Score
		if err := rows.Scan(&s.A, &s.B, &s.Similarity); err != nil {
			return nil, fmt.Errorf("scanning score row: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating score rows: %w", err)
	}
	return scores, nil
}

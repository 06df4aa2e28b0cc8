package scans

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/contador-app/contador/pkg/repository"
)

var jobColumns = []string{
	"id", "unit_id", "status", "progress",
	"total_items", "processed_count", "results", "error",
	"created_at", "completed_at",
}

// jobStore persists scan job state. The orchestrator is its only writer.
type jobStore interface {
	create(ctx context.Context, unitID uuid.UUID) (*ScanJob, error)
	find(ctx context.Context, id uuid.UUID) (*ScanJob, error)
	markProcessing(ctx context.Context, id uuid.UUID, total int) error
	checkpoint(ctx context.Context, id uuid.UUID, progress, processed int, results []Item) error
	complete(ctx context.Context, id uuid.UUID, results []Item) error
	fail(ctx context.Context, id uuid.UUID, message string, results []Item) error
}

type pgJobStore struct {
	db *sql.DB
}

func (s *pgJobStore) create(ctx context.Context, unitID uuid.UUID) (*ScanJob, error) {
	q := fmt.Sprintf(`
		INSERT INTO scan_jobs(unit_id, status, progress, results)
		VALUES ($1, $2, 0, '[]')
		RETURNING %s`, strings.Join(jobColumns, ", "))

	job, err := repository.QueryOne(ctx, s.db, q, []any{unitID, StatusPending}, scanJob)
	if err != nil {
		return nil, fmt.Errorf("create scan job: %w", err)
	}
	return &job, nil
}

func (s *pgJobStore) find(ctx context.Context, id uuid.UUID) (*ScanJob, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM scan_jobs WHERE id = $1",
		strings.Join(jobColumns, ", "),
	)

	job, err := repository.QueryOne(ctx, s.db, q, []any{id}, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &job, nil
}

func (s *pgJobStore) markProcessing(ctx context.Context, id uuid.UUID, total int) error {
	return repository.ExecExpectOne(
		ctx, s.db,
		"UPDATE scan_jobs SET status = $1, progress = 10, total_items = $2 WHERE id = $3",
		StatusProcessing, total, id,
	)
}

func (s *pgJobStore) checkpoint(ctx context.Context, id uuid.UUID, progress, processed int, results []Item) error {
	encoded, err := marshalResults(results)
	if err != nil {
		return err
	}

	return repository.ExecExpectOne(
		ctx, s.db,
		"UPDATE scan_jobs SET progress = $1, processed_count = $2, results = $3 WHERE id = $4",
		progress, processed, encoded, id,
	)
}

func (s *pgJobStore) complete(ctx context.Context, id uuid.UUID, results []Item) error {
	encoded, err := marshalResults(results)
	if err != nil {
		return err
	}

	return repository.ExecExpectOne(
		ctx, s.db,
		`UPDATE scan_jobs
		 SET status = $1, progress = 100, results = $2, completed_at = now()
		 WHERE id = $3`,
		StatusCompleted, encoded, id,
	)
}

func (s *pgJobStore) fail(ctx context.Context, id uuid.UUID, message string, results []Item) error {
	encoded, err := marshalResults(results)
	if err != nil {
		return err
	}

	return repository.ExecExpectOne(
		ctx, s.db,
		`UPDATE scan_jobs
		 SET status = $1, error = $2, results = $3, completed_at = now()
		 WHERE id = $4`,
		StatusFailed, message, encoded, id,
	)
}

func marshalResults(results []Item) ([]byte, error) {
	if results == nil {
		results = []Item{}
	}

	encoded, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode scan results: %w", err)
	}
	return encoded, nil
}

func scanJob(s repository.Scanner) (ScanJob, error) {
	var j ScanJob
	var results []byte

	err := s.Scan(
		&j.ID,
		&j.UnitID,
		&j.Status,
		&j.Progress,
		&j.TotalItems,
		&j.ProcessedCount,
		&results,
		&j.Error,
		&j.CreatedAt,
		&j.CompletedAt,
	)
	if err != nil {
		return j, err
	}

	if len(results) > 0 {
		if err := json.Unmarshal(results, &j.Results); err != nil {
			return j, fmt.Errorf("decode scan results: %w", err)
		}
	}
	return j, nil
}

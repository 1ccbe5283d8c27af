package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"printwatch"

	"github.com/google/uuid"
)

type JobSQLite struct {
	db *sql.DB
}

func NewJobSQLite(db *sql.DB) *JobSQLite { return &JobSQLite{db: db} }

// Ensure implementation of JobRepo interface at compile time.
var _ JobRepo = (*JobSQLite)(nil)

const (
	upsertJobSQL = `
		INSERT INTO print_jobs (id, filename, size_bytes, estimated_s, filament_g, uploaded_at, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			size_bytes=excluded.size_bytes,
			estimated_s=excluded.estimated_s,
			filament_g=excluded.filament_g,
			uploaded_at=excluded.uploaded_at,
			started_at=excluded.started_at
	`

	markStartedSQL = `UPDATE print_jobs SET started_at = ? WHERE filename = ?`

	selectLatestJobSQL = `
		SELECT id, filename, size_bytes, estimated_s, filament_g, uploaded_at, started_at
		FROM print_jobs
		ORDER BY COALESCE(started_at, uploaded_at) DESC
		LIMIT 1
	`

	selectJobsSQL = `
		SELECT id, filename, size_bytes, estimated_s, filament_g, uploaded_at, started_at
		FROM print_jobs ORDER BY uploaded_at DESC
	`
)

// ErrNoJobs is returned by Latest when the catalog is empty.
var ErrNoJobs = errors.New("no print jobs recorded")

// Save upserts a job keyed by filename. Missing ID and UploadedAt are filled.
func (r *JobSQLite) Save(ctx context.Context, j printwatch.PrintJob) error {
	if j.JobID == "" {
		j.JobID = uuid.NewString()
	}
	if j.UploadedAt.IsZero() {
		j.UploadedAt = time.Now().UTC()
	}
	var started *time.Time
	if !j.StartedAt.IsZero() {
		t := j.StartedAt.UTC()
		started = &t
	}
	_, err := r.db.ExecContext(ctx, upsertJobSQL,
		j.JobID, j.Filename, j.SizeBytes, j.EstimatedSeconds, j.FilamentGrams,
		j.UploadedAt.UTC(), started,
	)
	if err != nil {
		return fmt.Errorf("save job %q: %w", j.Filename, err)
	}
	return nil
}

// MarkStarted stamps the start time on the job with the given filename.
func (r *JobSQLite) MarkStarted(ctx context.Context, filename string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, markStartedSQL, at.UTC(), filename)
	if err != nil {
		return fmt.Errorf("mark job %q started: %w", filename, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Print started for a file the service never saw uploaded (e.g.
		// already on the printer). Record it so the estimate still works.
		return r.Save(ctx, printwatch.PrintJob{
			Filename:   filename,
			UploadedAt: at,
			StartedAt:  at,
		})
	}
	return nil
}

// Latest returns the most recently started (or uploaded) job.
func (r *JobSQLite) Latest(ctx context.Context) (printwatch.PrintJob, error) {
	j, err := r.scanJob(r.db.QueryRowContext(ctx, selectLatestJobSQL))
	if errors.Is(err, sql.ErrNoRows) {
		return printwatch.PrintJob{}, ErrNoJobs
	}
	return j, err
}

// List returns all known jobs, most recently uploaded first.
func (r *JobSQLite) List(ctx context.Context) ([]printwatch.PrintJob, error) {
	rows, err := r.db.QueryContext(ctx, selectJobsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []printwatch.PrintJob
	for rows.Next() {
		j, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *JobSQLite) scanJob(row rowScanner) (printwatch.PrintJob, error) {
	var (
		j       printwatch.PrintJob
		started sql.NullTime
	)
	err := row.Scan(&j.JobID, &j.Filename, &j.SizeBytes, &j.EstimatedSeconds,
		&j.FilamentGrams, &j.UploadedAt, &started)
	if err != nil {
		return printwatch.PrintJob{}, err
	}
	j.UploadedAt = j.UploadedAt.UTC()
	if started.Valid {
		j.StartedAt = started.Time.UTC()
	}
	return j, nil
}

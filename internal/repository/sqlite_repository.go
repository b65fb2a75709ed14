package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-image-enhancer/pkg/models"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	image_url TEXT NOT NULL,
	filename TEXT NOT NULL,
	format TEXT NOT NULL,
	quality INTEGER NOT NULL,
	size_bytes INTEGER NOT NULL,
	labels TEXT NOT NULL,
	metrics TEXT NOT NULL,
	storage_location TEXT NOT NULL,
	processing_ns INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_image_url ON jobs(image_url, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_filename ON jobs(filename);
`

const selectColumns = `SELECT id, image_url, filename, format, quality, size_bytes, labels, metrics,
	storage_location, processing_ns, created_at FROM jobs`

// SQLiteJobRepository stores job history in a SQLite database
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewSQLiteJobRepository opens (or creates) the database at dbPath.
// Use ":memory:" for an ephemeral store.
func NewSQLiteJobRepository(dbPath string) (*SQLiteJobRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
		}
	}

	repo := &SQLiteJobRepository{db: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteJobRepository) initSchema() error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteJobRepository) Save(ctx context.Context, job *models.JobRecord) error {
	labels, err := json.Marshal(job.Labels)
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(job.Metrics)
	if err != nil {
		return err
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO jobs
		(id, image_url, filename, format, quality, size_bytes, labels, metrics, storage_location, processing_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.ImageURL, job.Filename, job.Format, job.Quality, job.SizeBytes,
		string(labels), string(metrics), job.StorageLocation,
		int64(job.ProcessingTime), job.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

func (r *SQLiteJobRepository) Get(ctx context.Context, id string) (*models.JobRecord, error) {
	return r.queryOne(ctx, selectColumns+` WHERE id = ?`, id)
}

func (r *SQLiteJobRepository) FindByFilename(ctx context.Context, filename string) (*models.JobRecord, error) {
	return r.queryOne(ctx, selectColumns+` WHERE filename = ?`, filename)
}

func (r *SQLiteJobRepository) History(ctx context.Context, imageURL string, limit int) ([]*models.JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE image_url = ? ORDER BY created_at DESC LIMIT ?`, imageURL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	jobs := make([]*models.JobRecord, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *SQLiteJobRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *SQLiteJobRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteJobRepository) queryOne(ctx context.Context, query string, arg string) (*models.JobRecord, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, arg)
	}
	return job, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*models.JobRecord, error) {
	var (
		job            models.JobRecord
		labels         string
		metrics        string
		processingNS   int64
		createdAtNanos int64
	)
	if err := s.Scan(&job.ID, &job.ImageURL, &job.Filename, &job.Format, &job.Quality, &job.SizeBytes,
		&labels, &metrics, &job.StorageLocation, &processingNS, &createdAtNanos); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(labels), &job.Labels); err != nil {
		return nil, fmt.Errorf("corrupt labels for job %s: %w", job.ID, err)
	}
	if err := json.Unmarshal([]byte(metrics), &job.Metrics); err != nil {
		return nil, fmt.Errorf("corrupt metrics for job %s: %w", job.ID, err)
	}
	job.ProcessingTime = time.Duration(processingNS)
	job.CreatedAt = time.Unix(0, createdAtNanos).UTC()
	return &job, nil
}

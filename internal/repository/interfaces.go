package repository

import (
	"context"

	"go-image-enhancer/pkg/models"
)

// JobRepository defines the interface for enhancement job history
type JobRepository interface {
	// Save stores a job record
	Save(ctx context.Context, job *models.JobRecord) error

	// Get retrieves a stored job by ID
	Get(ctx context.Context, id string) (*models.JobRecord, error)

	// FindByFilename retrieves the job that produced an artifact
	FindByFilename(ctx context.Context, filename string) (*models.JobRecord, error)

	// History retrieves the most recent jobs for an image URL, newest first
	History(ctx context.Context, imageURL string, limit int) ([]*models.JobRecord, error)

	// Count returns the number of stored jobs
	Count(ctx context.Context) (int, error)

	Close() error
}

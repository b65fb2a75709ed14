package repository

import "errors"

var (
	// ErrJobNotFound indicates the job record was not found
	ErrJobNotFound = errors.New("job not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go-image-enhancer/internal/analyzer"
	"go-image-enhancer/internal/codec"
	"go-image-enhancer/internal/enhancer"
	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/internal/logger"
	"go-image-enhancer/internal/observer"
	"go-image-enhancer/internal/repository"
	"go-image-enhancer/internal/storage"
	"go-image-enhancer/pkg/models"
	"go-image-enhancer/pkg/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultHistoryLimit = 20

// EnhancementService defines the operations exposed over HTTP
type EnhancementService interface {
	// Convert fetches, enhances, encodes and stores an image
	Convert(ctx context.Context, req models.ConvertRequest) (*models.ConvertResponse, error)

	// Analyze fetches an image and reports its quality metrics only
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error)

	// OpenArtifact opens a stored output file by name
	OpenArtifact(ctx context.Context, filename string) (*Artifact, error)

	GetJob(ctx context.Context, id string) (*models.JobRecord, error)
	History(ctx context.Context, imageURL string, limit int) ([]*models.JobRecord, error)

	// Stats returns pipeline counters for the health endpoint
	Stats(ctx context.Context) map[string]interface{}
}

// ImageProcessor decodes, analyzes and enhances encoded image bytes
type ImageProcessor interface {
	Process(data []byte) (*enhancer.EnhancementResult, error)
}

// Artifact is an open stored output file
type Artifact struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Options tunes limits and preview generation
type Options struct {
	MaxImagePixels  int
	PreviewMaxBytes int
	PreviewSize     int
	HistoryLimit    int
}

// Dependencies groups the collaborators of the enhancement service
type Dependencies struct {
	Fetcher   storage.ImageFetcher
	Artifacts storage.ArtifactStore
	Jobs      repository.JobRepository
	Processor ImageProcessor
	Analyzer  analyzer.QualityAnalyzer
	Pool      *WorkerPool
	Requests  *validation.RequestValidator
	Quality   *validation.QualityValidator
	Events    observer.Subject
	Metrics   *observer.MetricsObserver
}

type enhancementService struct {
	deps    Dependencies
	options Options
}

// NewEnhancementService creates a new enhancement service
func NewEnhancementService(deps Dependencies, options Options) EnhancementService {
	if deps.Quality == nil {
		deps.Quality = validation.NewQualityValidator()
	}
	if deps.Requests == nil {
		deps.Requests = validation.NewRequestValidator(nil, string(codec.PNG), 95)
	}
	if options.HistoryLimit <= 0 {
		options.HistoryLimit = defaultHistoryLimit
	}
	return &enhancementService{deps: deps, options: options}
}

func (s *enhancementService) Convert(ctx context.Context, req models.ConvertRequest) (*models.ConvertResponse, error) {
	opts, err := s.deps.Requests.ValidateConvert(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	jobID := uuid.New().String()
	s.publish(ctx, observer.PipelineEvent{EventType: observer.JobStarted, JobID: jobID, ImageURL: req.ImageURL})

	fetched, err := s.fetch(ctx, jobID, req.ImageURL)
	if err != nil {
		return nil, s.fail(ctx, jobID, req.ImageURL, err)
	}

	var (
		result  *enhancer.EnhancementResult
		encoded []byte
		preview *Preview
	)
	err = s.deps.Pool.Run(ctx, func() error {
		var runErr error
		result, runErr = s.deps.Processor.Process(fetched.Data)
		if runErr != nil {
			return runErr
		}
		encoded, runErr = codec.Encode(result.Image, opts.Format, opts.Quality)
		if runErr != nil {
			return runErr
		}
		preview, runErr = BuildPreview(encoded, opts.Format, result.Image, s.options.PreviewMaxBytes, s.options.PreviewSize)
		return runErr
	})
	if err != nil {
		return nil, s.fail(ctx, jobID, req.ImageURL, mapProcessingError(err))
	}

	if result.Failed() {
		s.publish(ctx, observer.PipelineEvent{
			EventType: observer.EnhancementFallback,
			JobID:     jobID,
			ImageURL:  req.ImageURL,
		})
	}

	filename := ArtifactName(fetched.Name, jobID, opts.Format)
	location, err := s.deps.Artifacts.Save(ctx, filename, encoded, codec.MIMEType(opts.Format))
	if err != nil {
		return nil, s.fail(ctx, jobID, req.ImageURL, apperrors.NewInternalError("failed to store enhanced image", err))
	}

	elapsed := time.Since(start)
	s.record(ctx, &models.JobRecord{
		ID:              jobID,
		ImageURL:        req.ImageURL,
		Filename:        filename,
		Format:          string(opts.Format),
		Quality:         opts.Quality,
		SizeBytes:       len(encoded),
		Labels:          result.Labels,
		Metrics:         result.Metrics,
		StorageLocation: location,
		ProcessingTime:  elapsed,
		CreatedAt:       time.Now().UTC(),
	})

	s.publish(ctx, observer.PipelineEvent{
		EventType:      observer.JobCompleted,
		JobID:          jobID,
		ImageURL:       req.ImageURL,
		ProcessingTime: elapsed,
		Success:        true,
		Labels:         result.Labels,
		Metadata: map[string]interface{}{
			"format":     string(opts.Format),
			"size_bytes": len(encoded),
		},
	})

	return &models.ConvertResponse{
		Success:             true,
		ID:                  jobID,
		Filename:            filename,
		SizeBytes:           len(encoded),
		Format:              string(opts.Format),
		MIMEType:            codec.MIMEType(opts.Format),
		Preview:             preview.Data,
		PreviewMIMEType:     preview.MIMEType,
		EnhancementsApplied: result.Summary(),
		AppliedLabels:       result.Labels,
		Analysis:            result.Metrics,
		Issues:              s.deps.Quality.Issues(result.Metrics),
	}, nil
}

func (s *enhancementService) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	if err := s.deps.Requests.ValidateURL(req.ImageURL); err != nil {
		return nil, err
	}

	fetched, err := s.fetch(ctx, "", req.ImageURL)
	if err != nil {
		return nil, err
	}

	var (
		metrics       models.QualityMetrics
		width, height int
	)
	err = s.deps.Pool.Run(ctx, func() error {
		cfg, _, runErr := codec.DecodeConfig(fetched.Data)
		if runErr != nil {
			return fmt.Errorf("%w: %v", enhancer.ErrProcessingFailed, runErr)
		}
		if s.options.MaxImagePixels > 0 && cfg.Width*cfg.Height > s.options.MaxImagePixels {
			return fmt.Errorf("%w: %dx%d exceeds %d pixels", enhancer.ErrImageTooLarge, cfg.Width, cfg.Height, s.options.MaxImagePixels)
		}
		buf, _, runErr := codec.Decode(fetched.Data)
		if runErr != nil {
			return fmt.Errorf("%w: %v", enhancer.ErrProcessingFailed, runErr)
		}
		width, height = buf.Width, buf.Height
		metrics = s.deps.Analyzer.Analyze(buf)
		return nil
	})
	if err != nil {
		return nil, mapProcessingError(err)
	}

	return &models.AnalyzeResponse{
		Success:  true,
		ImageURL: req.ImageURL,
		Width:    width,
		Height:   height,
		Analysis: metrics,
		Issues:   s.deps.Quality.Issues(metrics),
	}, nil
}

func (s *enhancementService) OpenArtifact(ctx context.Context, filename string) (*Artifact, error) {
	if err := storage.ValidateArtifactName(filename); err != nil {
		return nil, apperrors.NewValidationError("invalid filename", err)
	}

	body, size, err := s.deps.Artifacts.Open(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrArtifactNotFound) {
			return nil, apperrors.NewNotFoundError("File not found", nil)
		}
		return nil, apperrors.NewInternalError("failed to open file", err)
	}

	contentType := "application/octet-stream"
	if job, err := s.deps.Jobs.FindByFilename(ctx, filename); err == nil {
		contentType = codec.MIMEType(codec.Format(job.Format))
	} else if format, ok := formatFromName(filename); ok {
		contentType = codec.MIMEType(format)
	}

	return &Artifact{Name: filename, ContentType: contentType, Size: size, Body: body}, nil
}

func (s *enhancementService) GetJob(ctx context.Context, id string) (*models.JobRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewValidationError("invalid job id", err)
	}
	job, err := s.deps.Jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperrors.NewNotFoundError("job not found", nil)
		}
		return nil, apperrors.NewInternalError("failed to load job", err)
	}
	return job, nil
}

func (s *enhancementService) History(ctx context.Context, imageURL string, limit int) ([]*models.JobRecord, error) {
	if err := s.deps.Requests.ValidateURL(imageURL); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.options.HistoryLimit {
		limit = s.options.HistoryLimit
	}
	jobs, err := s.deps.Jobs.History(ctx, imageURL, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load history", err)
	}
	return jobs, nil
}

func (s *enhancementService) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"pool": s.deps.Pool.GetStats(),
	}
	if s.deps.Metrics != nil {
		stats["pipeline"] = s.deps.Metrics.GetMetrics()
	}
	if count, err := s.deps.Jobs.Count(ctx); err == nil {
		stats["stored_jobs"] = count
	} else {
		logger.WithError(err).Warn("Failed to count stored jobs")
	}
	return stats
}

func (s *enhancementService) fetch(ctx context.Context, jobID, imageURL string) (*storage.FetchedImage, error) {
	start := time.Now()
	fetched, err := s.deps.Fetcher.Fetch(ctx, imageURL)
	if err != nil {
		s.publish(ctx, observer.PipelineEvent{
			EventType:      observer.ImageFetchFailed,
			JobID:          jobID,
			ImageURL:       imageURL,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, mapFetchError(err)
	}

	s.publish(ctx, observer.PipelineEvent{
		EventType:      observer.ImageFetched,
		JobID:          jobID,
		ImageURL:       imageURL,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"size_bytes":   len(fetched.Data),
			"content_type": fetched.ContentType,
		},
	})
	return fetched, nil
}

// record stores a job. The artifact already exists at this point, so a
// repository failure is logged and the conversion still succeeds.
func (s *enhancementService) record(ctx context.Context, job *models.JobRecord) {
	if err := s.deps.Jobs.Save(ctx, job); err != nil {
		logger.WithFields(logrus.Fields{
			"job_id":   job.ID,
			"filename": job.Filename,
		}).WithError(err).Error("Failed to record job")
	}
}

func (s *enhancementService) fail(ctx context.Context, jobID, imageURL string, err error) error {
	s.publish(ctx, observer.PipelineEvent{
		EventType:    observer.JobFailed,
		JobID:        jobID,
		ImageURL:     imageURL,
		ErrorMessage: err.Error(),
	})
	return err
}

func (s *enhancementService) publish(ctx context.Context, event observer.PipelineEvent) {
	if s.deps.Events != nil {
		s.deps.Events.NotifyObservers(ctx, event)
	}
}

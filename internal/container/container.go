package container

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go-image-enhancer/internal/analyzer"
	"go-image-enhancer/internal/config"
	"go-image-enhancer/internal/enhancer"
	"go-image-enhancer/internal/factory"
	"go-image-enhancer/internal/logger"
	"go-image-enhancer/internal/observer"
	"go-image-enhancer/internal/repository"
	"go-image-enhancer/internal/service"
	"go-image-enhancer/internal/storage"
	"go-image-enhancer/internal/transport"
	"go-image-enhancer/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config             *config.Config
	imageFetcher       storage.ImageFetcher
	artifactStore      storage.ArtifactStore
	jobRepository      repository.JobRepository
	workerPool         *service.WorkerPool
	events             *observer.EventPublisher
	enhancementService service.EnhancementService
	handler            http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.SetLevel(cfg.LogLevel)

	components := factory.NewComponentFactory(cfg)
	imageFetcher, err := components.Fetchers.CreateFetcher(factory.StorageType(cfg.FetchBackend))
	if err != nil {
		return nil, fmt.Errorf("failed to create image fetcher: %w", err)
	}
	artifactStore, err := components.Artifacts.CreateArtifactStore(factory.StorageType(cfg.ArtifactBackend))
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	jobRepository, err := repository.NewSQLiteJobRepository(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open job repository: %w", err)
	}

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	qualityAnalyzer := analyzer.New()
	workerPool := service.NewWorkerPool(cfg.MaxConcurrentJobs)
	workerPool.Start()

	enhancementService := service.NewEnhancementService(service.Dependencies{
		Fetcher:   imageFetcher,
		Artifacts: artifactStore,
		Jobs:      jobRepository,
		Processor: enhancer.New(
			enhancer.WithAnalyzer(qualityAnalyzer),
			enhancer.WithMaxPixels(cfg.MaxImagePixels),
		),
		Analyzer: qualityAnalyzer,
		Pool:     workerPool,
		Requests: validation.NewRequestValidator(validation.NewURLValidator(), cfg.DefaultFormat, cfg.DefaultQuality),
		Quality:  validation.NewQualityValidator(),
		Events:   events,
		Metrics:  metrics,
	}, service.Options{
		MaxImagePixels:  cfg.MaxImagePixels,
		PreviewMaxBytes: cfg.PreviewMaxBytes,
		PreviewSize:     cfg.PreviewSize,
	})

	handler := transport.NewHandler(enhancementService, cfg)

	return &Container{
		config:             cfg,
		imageFetcher:       imageFetcher,
		artifactStore:      artifactStore,
		jobRepository:      jobRepository,
		workerPool:         workerPool,
		events:             events,
		enhancementService: enhancementService,
		handler:            handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the enhancement service
func (c *Container) Service() service.EnhancementService {
	return c.enhancementService
}

// Close drains in-flight jobs and releases the job repository
func (c *Container) Close() error {
	c.workerPool.Close()
	c.events.Flush()
	return c.jobRepository.Close()
}

package factory

import (
	"fmt"
	"sync"

	"go-image-enhancer/internal/config"
	"go-image-enhancer/internal/storage"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage fetches source images over HTTP
	HTTPStorage StorageType = "http"
	// AzureStorage uses Azure Blob Storage for sources or artifacts
	AzureStorage StorageType = "azure"
	// LocalStorage writes artifacts to the local file system
	LocalStorage StorageType = "local"
)

// FetcherFactory creates source image fetchers
type FetcherFactory interface {
	CreateFetcher(storageType StorageType) (storage.ImageFetcher, error)
}

// ArtifactStoreFactory creates artifact stores
type ArtifactStoreFactory interface {
	CreateArtifactStore(storageType StorageType) (storage.ArtifactStore, error)
}

// StorageFactory builds fetchers and artifact stores and shares one Azure client
type StorageFactory struct {
	cfg *config.Config

	azureOnce   sync.Once
	azureClient *azblob.Client
	azureErr    error
}

// NewStorageFactory creates a storage factory backed by cfg
func NewStorageFactory(cfg *config.Config) *StorageFactory {
	return &StorageFactory{cfg: cfg}
}

func (f *StorageFactory) CreateFetcher(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		options := storage.DefaultHTTPOptions()
		options.Timeout = f.cfg.ImageFetchTimeout
		options.MaxBytes = f.cfg.MaxImageBytes
		return storage.NewHTTPImageFetcher(options), nil
	case AzureStorage:
		client, err := f.azure()
		if err != nil {
			return nil, err
		}
		return storage.NewAzureImageFetcher(client, f.cfg.MaxImageBytes), nil
	default:
		return nil, fmt.Errorf("unsupported fetch backend: %s", storageType)
	}
}

func (f *StorageFactory) CreateArtifactStore(storageType StorageType) (storage.ArtifactStore, error) {
	switch storageType {
	case LocalStorage:
		return storage.NewLocalArtifactStore(f.cfg.OutputDir)
	case AzureStorage:
		client, err := f.azure()
		if err != nil {
			return nil, err
		}
		return storage.NewAzureArtifactStore(client, f.cfg.AzureArtifactContainer), nil
	default:
		return nil, fmt.Errorf("unsupported artifact backend: %s", storageType)
	}
}

func (f *StorageFactory) azure() (*azblob.Client, error) {
	f.azureOnce.Do(func() {
		f.azureClient, f.azureErr = storage.NewAzureClient(f.cfg.AzureAccountName, f.cfg.AzureAccountKey)
	})
	return f.azureClient, f.azureErr
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	Fetchers  FetcherFactory
	Artifacts ArtifactStoreFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	storageFactory := NewStorageFactory(cfg)
	return &ComponentFactory{
		Fetchers:  storageFactory,
		Artifacts: storageFactory,
	}
}

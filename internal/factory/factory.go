// Package factory builds configured components from a Config.
package factory

import (
	"fmt"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	"github.com/anime-shed/ai-detector-go/internal/config"
	"github.com/anime-shed/ai-detector-go/internal/session"
	"github.com/anime-shed/ai-detector-go/internal/storage"
	"github.com/anime-shed/ai-detector-go/pkg/validation"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage fetches images over http(s)
	HTTPStorage StorageType = config.StorageHTTP
	// AzureStorage reads blobs from an Azure storage account
	AzureStorage StorageType = config.StorageAzure
)

// StorageFactory creates image sources
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageSource, error)
	CreateLocal() (storage.ImageSource, error)
}

type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates the remote source for storageType.
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageSource, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.cfg.ImageFetchTimeout, storage.DefaultMaxImageBytes), nil
	case AzureStorage:
		src, err := storage.NewAzureBlobSource(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey, storage.DefaultMaxImageBytes)
		if err != nil {
			return nil, fmt.Errorf("azure storage: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// CreateLocal returns the file source rooted at LocalImageRoot, or nil when
// local files are disabled.
func (f *storageFactory) CreateLocal() (storage.ImageSource, error) {
	if f.cfg.LocalImageRoot == "" {
		return nil, nil
	}
	src, err := storage.NewLocalFileSource(f.cfg.LocalImageRoot, storage.DefaultMaxImageBytes)
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	return src, nil
}

// NewURLValidator applies the configured host allow-list.
func NewURLValidator(cfg *config.Config) *validation.URLValidator {
	if len(cfg.AllowedHosts) == 0 {
		return validation.NewURLValidator()
	}
	return validation.NewURLValidatorWithOptions([]string{"http", "https"}, cfg.AllowedHosts)
}

// DetectorOptions maps config toggles onto detector options.
func DetectorOptions(cfg *config.Config) analyzer.DetectorOptions {
	opts := analyzer.DefaultOptions().
		WithAuxiliaryFeatures(cfg.AuxiliaryFeatures).
		WithParallelExtraction(cfg.ParallelExtraction).
		WithMaxWorkers(cfg.MaxWorkers)
	if !cfg.EventPhotoRule {
		opts = opts.WithoutEventPhotoRule()
	}
	return opts
}

// SessionConfig builds the detector session configuration.
func SessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		MaxSamples:         cfg.MaxSamples,
		MinTrainingSamples: cfg.MinTrainingSamples,
		CacheSize:          cfg.CacheSize,
		Detector:           DetectorOptions(cfg),
	}
}

// Package container wires the application's dependency graph.
package container

import (
	"fmt"
	"io"
	"net/http"

	"github.com/anime-shed/ai-detector-go/internal/config"
	"github.com/anime-shed/ai-detector-go/internal/factory"
	"github.com/anime-shed/ai-detector-go/internal/logger"
	"github.com/anime-shed/ai-detector-go/internal/model"
	"github.com/anime-shed/ai-detector-go/internal/modelstore"
	"github.com/anime-shed/ai-detector-go/internal/observer"
	"github.com/anime-shed/ai-detector-go/internal/repository"
	"github.com/anime-shed/ai-detector-go/internal/service"
	"github.com/anime-shed/ai-detector-go/internal/session"
	"github.com/anime-shed/ai-detector-go/internal/transport"
	"github.com/anime-shed/ai-detector-go/internal/watermark"
	"github.com/anime-shed/ai-detector-go/internal/watermark/tesseract"
)

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	session          *session.Session
	publisher        *observer.EventPublisher
	snapshots        *modelstore.Store
	modelWatcher     *model.Watcher
	detectionService service.DetectionService
	handler          http.Handler
	closers          []io.Closer
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.SetLevel(cfg.LogLevel)
	c := &Container{config: cfg}

	storageFactory := factory.NewStorageFactory(cfg)
	remote, err := storageFactory.CreateStorage(factory.StorageType(cfg.StorageBackend))
	if err != nil {
		return nil, err
	}
	local, err := storageFactory.CreateLocal()
	if err != nil {
		return nil, err
	}
	imageRepository := repository.NewSourceImageRepository(remote, local, factory.NewURLValidator(cfg))

	c.session = session.New(factory.SessionConfig(cfg))

	metrics := observer.NewMetricsObserver()
	c.publisher = observer.NewEventPublisher()
	c.publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	c.publisher.Subscribe(metrics)

	opts := service.Options{
		FetchTimeout:    cfg.ImageFetchTimeout,
		AnalysisTimeout: cfg.AnalysisTimeout,
		Publisher:       c.publisher,
		Metrics:         metrics,
	}

	if cfg.SnapshotDB != "" {
		c.snapshots, err = modelstore.NewStore(cfg.SnapshotDB)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		c.closers = append(c.closers, c.snapshots)
		opts.Snapshots = c.snapshots
	}

	if cfg.WatermarkScan {
		engine, err := tesseract.NewEngine(cfg.WatermarkLanguage)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("start OCR engine: %w", err)
		}
		c.closers = append(c.closers, engine)
		opts.Watermarks = watermark.NewScanner(engine, nil)
	}

	if cfg.ModelPath != "" {
		c.modelWatcher = model.NewWatcher(cfg.ModelPath, func(data []byte) error {
			_, err := c.session.ImportModel(data)
			return err
		})
	}

	c.detectionService = service.NewDetectionService(imageRepository, c.session, opts)
	c.handler = transport.NewHandler(c.detectionService, transport.Options{
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		RequestTimeout:     cfg.RequestTimeout,
	})
	return c, nil
}

// StartModelWatcher loads MODEL_PATH and re-imports it on change. It is a
// no-op when no model path is configured. A missing or invalid file at
// startup is logged and the defaults stay live.
func (c *Container) StartModelWatcher() error {
	if c.modelWatcher == nil {
		return nil
	}
	if err := c.modelWatcher.Load(); err != nil {
		logger.WithError(err).WithField("path", c.config.ModelPath).Warn("Initial model load failed, using default thresholds")
	}
	if err := c.modelWatcher.Watch(); err != nil {
		return fmt.Errorf("watch model file: %w", err)
	}
	c.closers = append(c.closers, c.modelWatcher)
	return nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the detection service
func (c *Container) Service() service.DetectionService {
	return c.detectionService
}

// Close flushes pending events and releases resources in reverse order.
func (c *Container) Close() {
	if c.publisher != nil {
		c.publisher.Flush()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			logger.WithError(err).Warn("Failed to close resource")
		}
	}
	c.closers = nil
	if c.session != nil {
		c.session.Close()
	}
}

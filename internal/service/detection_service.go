// Package service orchestrates image fetching, detection, training and
// model management on top of one detector session.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
	"github.com/anime-shed/ai-detector-go/internal/logger"
	"github.com/anime-shed/ai-detector-go/internal/modelstore"
	"github.com/anime-shed/ai-detector-go/internal/observer"
	"github.com/anime-shed/ai-detector-go/internal/repository"
	"github.com/anime-shed/ai-detector-go/internal/session"
	"github.com/anime-shed/ai-detector-go/internal/training"
	"github.com/anime-shed/ai-detector-go/internal/watermark"
	"github.com/anime-shed/ai-detector-go/pkg/models"
)

// fetchConcurrency bounds parallel downloads for one training request.
const fetchConcurrency = 4

// DetectionService defines the operations exposed over HTTP.
type DetectionService interface {
	AnalyzeURL(ctx context.Context, imageURL string, withBlocks bool) (*models.AnalysisResponse, error)
	AnalyzeUpload(ctx context.Context, data []byte, contentType, name string, withBlocks bool) (*models.AnalysisResponse, error)

	Train(ctx context.Context, urls []string, label string) (*models.TrainResponse, error)
	StartTraining(ctx context.Context) models.TrainingStatus
	AddTrainingSample(ctx context.Context, imageURL, label string) (models.TrainingStatus, error)
	AddTrainingUpload(ctx context.Context, data []byte, contentType, name, label string) (models.TrainingStatus, error)
	StopTraining(ctx context.Context) (*models.TrainResponse, error)
	TrainingStatus() models.TrainingStatus
	Statistics(ctx context.Context) training.Report

	ExportModel(ctx context.Context) ([]byte, error)
	ImportModel(ctx context.Context, data []byte) (*models.ModelImportResponse, error)
	ResetModel(ctx context.Context) analyzer.ThresholdTable

	ListSnapshots(ctx context.Context, limit int) (*models.SnapshotList, error)
	SaveSnapshot(ctx context.Context, note string) (*modelstore.Snapshot, error)
	RestoreSnapshot(ctx context.Context, id string) (*models.ModelImportResponse, error)

	Health() models.HealthResponse
	Metrics() models.MetricsResponse
}

// Options holds the optional collaborators and timeouts.
type Options struct {
	FetchTimeout    time.Duration
	AnalysisTimeout time.Duration
	Snapshots       *modelstore.Store
	Watermarks      *watermark.Scanner
	Publisher       observer.Subject
	Metrics         *observer.MetricsObserver
}

type detectionService struct {
	repo    repository.ImageRepository
	session *session.Session
	opts    Options
}

// NewDetectionService creates the service.
func NewDetectionService(repo repository.ImageRepository, sess *session.Session, opts Options) DetectionService {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = 20 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = observer.NewMetricsObserver()
	}
	if opts.Publisher == nil {
		pub := observer.NewEventPublisher()
		pub.Subscribe(opts.Metrics)
		opts.Publisher = pub
	}
	return &detectionService{repo: repo, session: sess, opts: opts}
}

func (s *detectionService) publish(ctx context.Context, e observer.Event) {
	s.opts.Publisher.NotifyObservers(ctx, e)
}

func (s *detectionService) fetch(ctx context.Context, imageURL string) (*repository.FetchedImage, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	img, err := s.repo.FetchImage(fetchCtx, imageURL)
	if err != nil {
		s.publish(ctx, observer.Event{
			EventType:      observer.ImageFetchFailed,
			Source:         imageURL,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}
	s.publish(ctx, observer.Event{
		EventType:      observer.ImageFetched,
		Source:         imageURL,
		ProcessingTime: time.Since(start),
		Success:        true,
	})
	return img, nil
}

// AnalyzeURL fetches and analyzes a remote image.
func (s *detectionService) AnalyzeURL(ctx context.Context, imageURL string, withBlocks bool) (*models.AnalysisResponse, error) {
	img, err := s.fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, img, withBlocks)
}

// AnalyzeUpload analyzes an image from the request body.
func (s *detectionService) AnalyzeUpload(ctx context.Context, data []byte, contentType, name string, withBlocks bool) (*models.AnalysisResponse, error) {
	img, err := s.repo.DecodeUpload(data, contentType, name)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, img, withBlocks)
}

func (s *detectionService) analyze(ctx context.Context, img *repository.FetchedImage, withBlocks bool) (*models.AnalysisResponse, error) {
	id := uuid.New().String()
	source := img.Metadata.Source
	start := time.Now()
	s.publish(ctx, observer.Event{ID: id, EventType: observer.AnalysisStarted, Source: source})

	buf := analyzer.FromImage(img.Image)
	var (
		result analyzer.AnalysisResult
		blocks *analyzer.BlockMap
	)
	err := s.withTimeout(ctx, func() error {
		var err error
		if result, err = s.session.Analyze(buf); err != nil {
			return err
		}
		if withBlocks {
			blocks, err = s.session.BlockMap(buf)
		}
		return err
	})
	if err != nil {
		s.publish(ctx, observer.Event{
			ID:             id,
			EventType:      observer.AnalysisFailed,
			Source:         source,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	resp := &models.AnalysisResponse{
		ID:         id,
		Source:     source,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Score:      result.Score,
		Analysis:   result.Features,
		Indicators: result.Indicators,
		Details:    result.Details,
		Metadata:   metadataMap(img.Metadata),
		BlockMap:   blocks,
	}
	if s.opts.Watermarks != nil {
		wm, err := s.opts.Watermarks.Scan(ctx, img.Data)
		if err != nil {
			logger.WithFields(logrus.Fields{"analysis_id": id, "error": err.Error()}).Warn("Watermark scan failed")
		} else {
			resp.Watermark = wm
		}
	}

	elapsed := time.Since(start)
	resp.ProcessingTimeSec = elapsed.Seconds()
	s.publish(ctx, observer.Event{
		ID:             id,
		EventType:      observer.AnalysisCompleted,
		Source:         source,
		ProcessingTime: elapsed,
		Success:        true,
		Score:          result.Score,
		Metadata:       map[string]interface{}{"indicators": len(result.Indicators)},
	})
	return resp, nil
}

// withTimeout runs fn and gives up waiting once the analysis timeout or ctx
// expires. fn keeps running to completion in the background.
func (s *detectionService) withTimeout(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.AnalysisTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return apperrors.NewTimeoutError("analysis timed out", ctx.Err())
	}
}

func metadataMap(m repository.ImageMetadata) map[string]interface{} {
	out := map[string]interface{}{
		"format":        m.Format,
		"width":         m.Width,
		"height":        m.Height,
		"contentLength": m.ContentLength,
	}
	if m.ContentType != "" {
		out["contentType"] = m.ContentType
	}
	return out
}

// fetchAll downloads urls with bounded concurrency, failing with the error of
// the lowest failing index.
func (s *detectionService) fetchAll(ctx context.Context, urls []string) ([]*analyzer.PixelBuffer, error) {
	bufs := make([]*analyzer.PixelBuffer, len(urls))
	errs := make([]error, len(urls))
	sem := make(chan struct{}, fetchConcurrency)

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, u string) {
			defer wg.Done()
			defer func() { <-sem }()
			img, err := s.fetch(ctx, u)
			if err != nil {
				errs[i] = err
				return
			}
			bufs[i] = analyzer.FromImage(img.Image)
		}(i, u)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("url %d (%s): %w", i, urls[i], err)
		}
	}
	return bufs, nil
}

// Train fetches urls and trains them under label.
func (s *detectionService) Train(ctx context.Context, urls []string, label string) (*models.TrainResponse, error) {
	start := time.Now()
	if _, err := training.ParseLabel(label); err != nil {
		return nil, s.trainingFailed(ctx, err)
	}
	if len(urls) == 0 {
		return nil, s.trainingFailed(ctx, apperrors.NewValidationError("no training URLs provided", nil))
	}

	bufs, err := s.fetchAll(ctx, urls)
	if err != nil {
		return nil, s.trainingFailed(ctx, err)
	}

	// The session checks the deadline before storing any sample.
	tctx, cancel := context.WithTimeout(ctx, s.opts.AnalysisTimeout)
	defer cancel()
	res, err := s.session.Train(tctx, bufs, label)
	if err != nil {
		return nil, s.trainingFailed(ctx, err)
	}
	return s.trainingDone(ctx, res, start), nil
}

func (s *detectionService) trainingFailed(ctx context.Context, err error) error {
	s.publish(ctx, observer.Event{EventType: observer.TrainingFailed, ErrorMessage: err.Error()})
	return err
}

func (s *detectionService) trainingDone(ctx context.Context, res session.TrainResult, start time.Time) *models.TrainResponse {
	added := 0
	for _, n := range res.Added {
		added += n
	}
	elapsed := time.Since(start)
	s.publish(ctx, observer.Event{
		EventType:      observer.TrainingCompleted,
		ProcessingTime: elapsed,
		Success:        true,
		Samples:        added,
		Metadata: map[string]interface{}{
			"ai_count":   res.AICount,
			"real_count": res.RealCount,
			"calibrated": res.Calibrated,
		},
	})
	return &models.TrainResponse{TrainResult: res, ProcessingTimeSec: elapsed.Seconds()}
}

func (s *detectionService) StartTraining(ctx context.Context) models.TrainingStatus {
	s.session.StartTraining()
	return s.session.Pending()
}

func (s *detectionService) AddTrainingSample(ctx context.Context, imageURL, label string) (models.TrainingStatus, error) {
	if _, err := training.ParseLabel(label); err != nil {
		return models.TrainingStatus{}, err
	}
	img, err := s.fetch(ctx, imageURL)
	if err != nil {
		return models.TrainingStatus{}, err
	}
	return s.session.AddSample(analyzer.FromImage(img.Image), label)
}

func (s *detectionService) AddTrainingUpload(ctx context.Context, data []byte, contentType, name, label string) (models.TrainingStatus, error) {
	if _, err := training.ParseLabel(label); err != nil {
		return models.TrainingStatus{}, err
	}
	img, err := s.repo.DecodeUpload(data, contentType, name)
	if err != nil {
		return models.TrainingStatus{}, err
	}
	return s.session.AddSample(analyzer.FromImage(img.Image), label)
}

func (s *detectionService) StopTraining(ctx context.Context) (*models.TrainResponse, error) {
	start := time.Now()
	res, err := s.session.StopTraining()
	if err != nil {
		return nil, s.trainingFailed(ctx, err)
	}
	return s.trainingDone(ctx, res, start), nil
}

func (s *detectionService) TrainingStatus() models.TrainingStatus {
	return s.session.Pending()
}

func (s *detectionService) Statistics(ctx context.Context) training.Report {
	return s.session.Statistics()
}

func (s *detectionService) ExportModel(ctx context.Context) ([]byte, error) {
	data, err := s.session.ExportModel()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, observer.Event{EventType: observer.ModelExported, Success: true})
	return data, nil
}

func (s *detectionService) ImportModel(ctx context.Context, data []byte) (*models.ModelImportResponse, error) {
	stats, err := s.session.ImportModel(data)
	if err != nil {
		s.publish(ctx, observer.Event{EventType: observer.ModelImportFailed, ErrorMessage: err.Error()})
		return nil, err
	}
	s.publish(ctx, observer.Event{EventType: observer.ModelImported, Success: true})
	return &models.ModelImportResponse{
		Thresholds:      s.session.Thresholds(),
		AIImagesCount:   stats.AIImagesCount,
		RealImagesCount: stats.RealImagesCount,
		LastUpdate:      stats.LastUpdate,
	}, nil
}

func (s *detectionService) ResetModel(ctx context.Context) analyzer.ThresholdTable {
	t := s.session.Reset()
	s.publish(ctx, observer.Event{EventType: observer.ModelReset, Success: true})
	return t
}

var errNoSnapshots = errors.New("SNAPSHOT_DB is not set")

func (s *detectionService) snapshots() (*modelstore.Store, error) {
	if s.opts.Snapshots == nil {
		return nil, apperrors.NewNotFoundError("model snapshots are not enabled", errNoSnapshots)
	}
	return s.opts.Snapshots, nil
}

func (s *detectionService) ListSnapshots(ctx context.Context, limit int) (*models.SnapshotList, error) {
	store, err := s.snapshots()
	if err != nil {
		return nil, err
	}
	list, err := store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &models.SnapshotList{Snapshots: list}, nil
}

func (s *detectionService) SaveSnapshot(ctx context.Context, note string) (*modelstore.Snapshot, error) {
	store, err := s.snapshots()
	if err != nil {
		return nil, err
	}
	data, err := s.session.ExportModel()
	if err != nil {
		return nil, err
	}
	ai, real := s.session.Counts()
	snap, err := store.Save(ctx, note, data, ai, real)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"snapshot_id": snap.ID, "ai_count": ai, "real_count": real}).Info("Model snapshot saved")
	return &snap, nil
}

// RestoreSnapshot imports a stored model. The restore is recorded only after
// the import succeeds.
func (s *detectionService) RestoreSnapshot(ctx context.Context, id string) (*models.ModelImportResponse, error) {
	store, err := s.snapshots()
	if err != nil {
		return nil, err
	}
	snap, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := s.ImportModel(ctx, snap.Model)
	if err != nil {
		return nil, err
	}
	if err := store.RecordRestore(ctx, id); err != nil {
		logger.WithFields(logrus.Fields{"snapshot_id": id, "error": err.Error()}).Warn("Failed to record snapshot restore")
	}
	return resp, nil
}

func (s *detectionService) Health() models.HealthResponse {
	ai, real := s.session.Counts()
	return models.HealthResponse{
		Status:          "healthy",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		AIImagesCount:   ai,
		RealImagesCount: real,
		TrainingActive:  s.session.Pending().Active,
	}
}

func (s *detectionService) Metrics() models.MetricsResponse {
	hits, misses, size := s.session.CacheStats()
	return models.MetricsResponse{
		Events:      s.opts.Metrics.GetMetrics(),
		CacheHits:   hits,
		CacheMisses: misses,
		CacheSize:   size,
		Pool:        s.session.PoolStats(),
	}
}

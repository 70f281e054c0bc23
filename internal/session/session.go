// Package session owns one live threshold table together with the training
// corpus that calibrates it.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
	"github.com/anime-shed/ai-detector-go/internal/logger"
	"github.com/anime-shed/ai-detector-go/internal/model"
	"github.com/anime-shed/ai-detector-go/internal/training"
)

// DefaultMinTrainingSamples is the per-class minimum for StopTraining.
const DefaultMinTrainingSamples = 5

// Config configures a Session.
type Config struct {
	MaxSamples         int
	MinTrainingSamples int
	CacheSize          int
	Detector           analyzer.DetectorOptions
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		MaxSamples:         training.DefaultMaxSamples,
		MinTrainingSamples: DefaultMinTrainingSamples,
		CacheSize:          training.DefaultCacheSize,
		Detector:           analyzer.DefaultOptions(),
	}
}

// TrainResult describes the corpus after a training call.
type TrainResult struct {
	Added      map[training.Label]int  `json:"added"`
	AICount    int                     `json:"aiImagesCount"`
	RealCount  int                     `json:"realImagesCount"`
	Calibrated bool                    `json:"calibrated"`
	Thresholds analyzer.ThresholdTable `json:"thresholds"`
}

// PendingCounts reports samples queued in training mode.
type PendingCounts struct {
	Active bool `json:"active"`
	AI     int  `json:"ai"`
	Real   int  `json:"real"`
}

// Session is safe for concurrent use. Readers score against an atomically
// swapped table snapshot; every mutation holds mu.
type Session struct {
	detector   analyzer.Detector
	pool       *analyzer.WorkerPool
	cache      *training.FeatureCache
	thresholds atomic.Pointer[analyzer.ThresholdTable]

	mu         sync.Mutex
	corpus     *training.Corpus
	minSamples int
	training   bool
	pending    map[training.Label][]analyzer.FeatureSet

	now func() time.Time
}

// New creates a session with default thresholds and an empty corpus.
func New(cfg Config) *Session {
	if cfg.MinTrainingSamples < 1 {
		cfg.MinTrainingSamples = DefaultMinTrainingSamples
	}
	cache := training.NewFeatureCache(cfg.CacheSize)
	pool := analyzer.NewWorkerPool(cfg.Detector.MaxWorkers)
	pool.Start()

	s := &Session{
		detector:   cachedDetector{Detector: analyzer.NewDetector(cfg.Detector), cache: cache},
		pool:       pool,
		cache:      cache,
		corpus:     training.NewCorpus(cfg.MaxSamples),
		minSamples: cfg.MinTrainingSamples,
		pending:    make(map[training.Label][]analyzer.FeatureSet),
		now:        time.Now,
	}
	defaults := analyzer.DefaultThresholds()
	s.thresholds.Store(&defaults)
	return s
}

// Close stops the session's worker pool.
func (s *Session) Close() {
	s.pool.Close()
}

// Thresholds returns a copy of the live table.
func (s *Session) Thresholds() analyzer.ThresholdTable {
	return *s.thresholds.Load()
}

// Analyze scores buf against the live table.
func (s *Session) Analyze(buf *analyzer.PixelBuffer) (analyzer.AnalysisResult, error) {
	return s.detector.Analyze(buf, s.Thresholds())
}

// BlockMap returns per-block suspicion values for overlays.
func (s *Session) BlockMap(buf *analyzer.PixelBuffer) (*analyzer.BlockMap, error) {
	return s.detector.BlockMap(buf)
}

// Train analyzes bufs, adds them to the corpus under label and recalibrates
// once both classes hold samples. On error, including ctx expiring before the
// results are stored, neither corpus nor table changes.
func (s *Session) Train(ctx context.Context, bufs []*analyzer.PixelBuffer, label string) (TrainResult, error) {
	lbl, err := training.ParseLabel(label)
	if err != nil {
		return TrainResult{}, err
	}
	if len(bufs) == 0 {
		return TrainResult{}, apperrors.NewValidationError("no training samples provided", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	if err := s.corpus.CheckCapacity(lbl, len(bufs)); err != nil {
		return TrainResult{}, err
	}

	current := s.Thresholds()
	results, err := analyzer.AnalyzeBatch(ctx, s.pool, s.detector, bufs, current)
	if cerr := ctx.Err(); cerr != nil {
		return TrainResult{}, apperrors.NewTimeoutError("training cancelled before samples were stored", cerr)
	}
	if err != nil {
		return TrainResult{}, fmt.Errorf("%s samples: %w", lbl, err)
	}
	return s.commitLocked(map[training.Label][]analyzer.AnalysisResult{lbl: results}, current, start)
}

// commitLocked appends analyzed samples and recalibrates. Capacity must
// already have been checked for every batch.
func (s *Session) commitLocked(batches map[training.Label][]analyzer.AnalysisResult, current analyzer.ThresholdTable, start time.Time) (TrainResult, error) {
	added := make(map[training.Label]int, len(batches))
	for label, results := range batches {
		if err := s.corpus.Append(label, results...); err != nil {
			return TrainResult{}, err
		}
		added[label] = len(results)
	}

	aiCount, realCount := s.corpus.Counts()
	res := TrainResult{Added: added, AICount: aiCount, RealCount: realCount, Thresholds: current}
	if aiCount > 0 && realCount > 0 {
		next := training.Calibrate(current, s.corpus.Features(training.LabelAI), s.corpus.Features(training.LabelReal))
		s.thresholds.Store(&next)
		res.Calibrated = true
		res.Thresholds = next
	}

	logger.WithFields(logrus.Fields{
		"added_ai":    added[training.LabelAI],
		"added_real":  added[training.LabelReal],
		"ai_count":    aiCount,
		"real_count":  realCount,
		"calibrated":  res.Calibrated,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Training samples added")
	return res, nil
}

// StartTraining enters training mode with an empty corpus and pending set.
// The live table stays in place until StopTraining succeeds.
func (s *Session) StartTraining() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.training = true
	s.corpus.Reset()
	s.pending = make(map[training.Label][]analyzer.FeatureSet)
	logger.Info("Training mode started")
}

// AddSample extracts buf's features and queues them. Only the feature set is
// kept, never the pixels.
func (s *Session) AddSample(buf *analyzer.PixelBuffer, label string) (PendingCounts, error) {
	lbl, err := training.ParseLabel(label)
	if err != nil {
		return PendingCounts{}, err
	}
	if err := analyzer.ValidateBuffer(buf); err != nil {
		return PendingCounts{}, err
	}
	if !s.Pending().Active {
		return PendingCounts{}, errNotTraining()
	}

	fs, err := s.detector.Extract(buf)
	if err != nil {
		return PendingCounts{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.training {
		return PendingCounts{}, errNotTraining()
	}
	if err := s.corpus.CheckCapacity(lbl, len(s.pending[lbl])+1); err != nil {
		return PendingCounts{}, err
	}
	s.pending[lbl] = append(s.pending[lbl], fs)
	return s.pendingLocked(), nil
}

func errNotTraining() error {
	return apperrors.NewProcessingError("training mode is not active", nil)
}

// StopTraining scores the pending features, trains on them and leaves
// training mode. With too few samples in either class it fails softly and
// stays in training mode.
func (s *Session) StopTraining() (TrainResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.training {
		return TrainResult{}, errNotTraining()
	}

	ai, real := len(s.pending[training.LabelAI]), len(s.pending[training.LabelReal])
	if ai < s.minSamples || real < s.minSamples {
		return TrainResult{}, apperrors.NewInsufficientSamplesError(fmt.Sprintf(
			"need at least %d samples per class, have ai=%d real=%d", s.minSamples, ai, real))
	}

	start := time.Now()
	current := s.Thresholds()
	batches := make(map[training.Label][]analyzer.AnalysisResult, len(s.pending))
	for label, feats := range s.pending {
		if err := s.corpus.CheckCapacity(label, len(feats)); err != nil {
			return TrainResult{}, err
		}
		results := make([]analyzer.AnalysisResult, len(feats))
		for i, fs := range feats {
			sr := s.detector.Score(fs, current)
			results[i] = analyzer.AnalysisResult{
				Score:      sr.Score,
				Features:   fs,
				Indicators: s.detector.Indicators(fs, current),
				Details:    sr.Details,
			}
		}
		batches[label] = results
	}

	res, err := s.commitLocked(batches, current, start)
	if err != nil {
		return TrainResult{}, err
	}
	s.training = false
	s.pending = make(map[training.Label][]analyzer.FeatureSet)
	return res, nil
}

// Pending returns the training-mode state.
func (s *Session) Pending() PendingCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *Session) pendingLocked() PendingCounts {
	return PendingCounts{
		Active: s.training,
		AI:     len(s.pending[training.LabelAI]),
		Real:   len(s.pending[training.LabelReal]),
	}
}

// Counts returns the corpus size per class.
func (s *Session) Counts() (ai, real int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corpus.Counts()
}

// Statistics rescores the corpus against the live table and summarizes it.
func (s *Session) Statistics() training.Report {
	s.mu.Lock()
	ai := s.corpus.Samples(training.LabelAI)
	real := s.corpus.Samples(training.LabelReal)
	s.mu.Unlock()

	current := s.Thresholds()
	rescore := func(results []analyzer.AnalysisResult) {
		for i := range results {
			results[i].Score = s.detector.Score(results[i].Features, current).Score
		}
	}
	rescore(ai)
	rescore(real)
	return training.BuildReport(ai, real, current)
}

// CacheStats returns feature cache hits, misses and size.
func (s *Session) CacheStats() (hits, misses uint64, size int) {
	hits, misses = s.cache.Stats()
	return hits, misses, s.cache.Len()
}

// PoolStats returns worker pool counters.
func (s *Session) PoolStats() analyzer.PoolStats {
	return s.pool.GetStats()
}

// ExportModel serializes the live table and corpus counts.
func (s *Session) ExportModel() ([]byte, error) {
	s.mu.Lock()
	ai, real := s.corpus.Counts()
	t := s.Thresholds()
	s.mu.Unlock()
	return model.Export(t, ai, real, s.now())
}

// ImportModel replaces the live table with the one in data. The table is
// untouched unless data validates completely.
func (s *Session) ImportModel(data []byte) (model.TrainingStats, error) {
	t, stats, err := model.Import(data)
	if err != nil {
		return model.TrainingStats{}, err
	}

	s.mu.Lock()
	s.thresholds.Store(&t)
	s.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"ai_count":    stats.AIImagesCount,
		"real_count":  stats.RealImagesCount,
		"last_update": stats.LastUpdate,
	}).Info("Model imported")
	return stats, nil
}

// Reset restores default thresholds and drops the corpus, pending samples and
// cached features.
func (s *Session) Reset() analyzer.ThresholdTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	defaults := analyzer.DefaultThresholds()
	s.thresholds.Store(&defaults)
	s.corpus.Reset()
	s.training = false
	s.pending = make(map[training.Label][]analyzer.FeatureSet)
	s.cache.Clear()
	logger.Info("Model reset to defaults")
	return defaults
}

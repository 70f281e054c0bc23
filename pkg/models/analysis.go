// Package models holds request and response bodies of the HTTP API.
package models

import (
	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	"github.com/anime-shed/ai-detector-go/internal/modelstore"
	"github.com/anime-shed/ai-detector-go/internal/observer"
	"github.com/anime-shed/ai-detector-go/internal/session"
	"github.com/anime-shed/ai-detector-go/internal/watermark"
)

// AnalysisResponse is the result of analyzing one image. Metadata and
// Watermark come from collaborators and do not affect the score.
type AnalysisResponse struct {
	ID                string                 `json:"id"`
	Source            string                 `json:"source"`
	Timestamp         string                 `json:"timestamp"`
	ProcessingTimeSec float64                `json:"processing_time_sec"`
	Score             float64                `json:"score"`
	Analysis          analyzer.FeatureSet    `json:"analysis"`
	Indicators        []string               `json:"indicators"`
	Details           map[string]float64     `json:"details"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	Watermark         *watermark.Result      `json:"watermark,omitempty"`
	BlockMap          *analyzer.BlockMap     `json:"blockMap,omitempty"`
}

// TrainResponse reports the corpus and table after training.
type TrainResponse struct {
	session.TrainResult
	ProcessingTimeSec float64 `json:"processing_time_sec"`
}

// TrainingStatus reports training mode and queued samples.
type TrainingStatus = session.PendingCounts

// ModelImportResponse acknowledges an import.
type ModelImportResponse struct {
	Thresholds      analyzer.ThresholdTable `json:"thresholds"`
	AIImagesCount   int                     `json:"aiImagesCount"`
	RealImagesCount int                     `json:"realImagesCount"`
	LastUpdate      string                  `json:"lastUpdate,omitempty"`
}

// SnapshotList wraps stored snapshots.
type SnapshotList struct {
	Snapshots []modelstore.Snapshot `json:"snapshots"`
}

// MetricsResponse combines event counters with cache and pool state.
type MetricsResponse struct {
	Events      observer.Metrics   `json:"events"`
	CacheHits   uint64             `json:"cache_hits"`
	CacheMisses uint64             `json:"cache_misses"`
	CacheSize   int                `json:"cache_size"`
	Pool        analyzer.PoolStats `json:"pool"`
}

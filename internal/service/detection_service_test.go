package service

import (
	"context"
	"errors"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	"github.com/anime-shed/ai-detector-go/internal/analyzer/analyzertest"
	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
	"github.com/anime-shed/ai-detector-go/internal/modelstore"
	"github.com/anime-shed/ai-detector-go/internal/observer"
	"github.com/anime-shed/ai-detector-go/internal/repository"
	"github.com/anime-shed/ai-detector-go/internal/session"
	"github.com/anime-shed/ai-detector-go/internal/watermark"
)

// stubRepository serves buffers by location.
type stubRepository struct {
	images map[string]*analyzer.PixelBuffer
	errs   map[string]error
}

func (r *stubRepository) FetchImage(ctx context.Context, location string) (*repository.FetchedImage, error) {
	if err, ok := r.errs[location]; ok {
		return nil, err
	}
	buf, ok := r.images[location]
	if !ok {
		return nil, apperrors.NewNotFoundError("no such image", nil)
	}
	return fetched(location, buf), nil
}

func (r *stubRepository) DecodeUpload(data []byte, contentType, name string) (*repository.FetchedImage, error) {
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("empty upload", repository.ErrEmptyImage)
	}
	return fetched("upload:"+name, analyzertest.Noise(64, 64, int64(len(data)))), nil
}

func (r *stubRepository) ValidateImageURL(location string) error { return nil }

func fetched(source string, buf *analyzer.PixelBuffer) *repository.FetchedImage {
	return &repository.FetchedImage{
		Image: analyzertest.Image(buf),
		Data:  []byte("image bytes"),
		Metadata: repository.ImageMetadata{
			Source: source,
			Width:  buf.Width,
			Height: buf.Height,
			Format: "PNG",
		},
	}
}

type fakeRecognizer struct {
	text string
	err  error
}

func (f fakeRecognizer) Recognize(ctx context.Context, data []byte) (string, error) {
	return f.text, f.err
}

type fixture struct {
	svc     DetectionService
	repo    *stubRepository
	pub     *observer.EventPublisher
	metrics *observer.MetricsObserver
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	repo := &stubRepository{images: map[string]*analyzer.PixelBuffer{}, errs: map[string]error{}}
	for i := 0; i < 3; i++ {
		repo.images[urlFor("ai", i)] = analyzertest.Solid(64, 64, color.NRGBA{R: uint8(20 * i), G: 90, B: 140, A: 255})
		repo.images[urlFor("real", i)] = analyzertest.Noise(64, 64, int64(i+1))
	}

	cfg := session.DefaultConfig()
	cfg.MinTrainingSamples = 1
	sess := session.New(cfg)
	t.Cleanup(sess.Close)

	metrics := observer.NewMetricsObserver()
	pub := observer.NewEventPublisher()
	pub.Subscribe(metrics)
	opts.Publisher = pub
	opts.Metrics = metrics

	return &fixture{svc: NewDetectionService(repo, sess, opts), repo: repo, pub: pub, metrics: metrics}
}

func urlFor(label string, i int) string {
	return "https://images.test/" + label + "/" + string(rune('a'+i)) + ".png"
}

func urlsFor(label string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = urlFor(label, i)
	}
	return out
}

func TestAnalyzeURL(t *testing.T) {
	f := newFixture(t, Options{})

	resp, err := f.svc.AnalyzeURL(context.Background(), urlFor("real", 0), false)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, urlFor("real", 0), resp.Source)
	assert.GreaterOrEqual(t, resp.Score, 0.0)
	assert.LessOrEqual(t, resp.Score, 100.0)
	assert.Equal(t, 64, resp.Metadata["width"])
	assert.Nil(t, resp.BlockMap)
	assert.Nil(t, resp.Watermark)

	f.pub.Flush()
	m := f.metrics.GetMetrics()
	assert.Equal(t, int64(1), m.TotalAnalyses)
	assert.Equal(t, int64(1), m.SuccessfulAnalyses)
}

func TestAnalyzeURL_WithBlocks(t *testing.T) {
	f := newFixture(t, Options{})
	f.repo.images["big"] = analyzertest.Checkerboard(64, 64)

	resp, err := f.svc.AnalyzeURL(context.Background(), "big", true)
	require.NoError(t, err)
	require.NotNil(t, resp.BlockMap)
}

func TestAnalyzeURL_FetchFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.repo.errs["down"] = apperrors.NewNetworkError("connection refused", nil)

	_, err := f.svc.AnalyzeURL(context.Background(), "down", false)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNetwork), "got %v", err)

	f.pub.Flush()
	assert.Equal(t, int64(1), f.metrics.GetMetrics().FetchFailures)
}

func TestAnalyzeUpload(t *testing.T) {
	f := newFixture(t, Options{})

	resp, err := f.svc.AnalyzeUpload(context.Background(), []byte("abc"), "image/png", "x.png", false)
	require.NoError(t, err)
	assert.Equal(t, "upload:x.png", resp.Source)

	_, err = f.svc.AnalyzeUpload(context.Background(), nil, "image/png", "x.png", false)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestAnalyze_Timeout(t *testing.T) {
	f := newFixture(t, Options{})
	f.repo.images["huge"] = analyzertest.Noise(1024, 1024, 7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.AnalyzeURL(ctx, "huge", true)
	require.Error(t, err)
}

func TestAnalyze_Watermark(t *testing.T) {
	testCases := []struct {
		name     string
		rec      fakeRecognizer
		detected bool
		present  bool
	}{
		{"Detected", fakeRecognizer{text: "made with Midjourney"}, true, true},
		{"Clean", fakeRecognizer{text: "holiday 2019"}, false, true},
		{"Recognizer fails", fakeRecognizer{err: errors.New("tesseract missing")}, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{Watermarks: watermark.NewScanner(tc.rec, nil)})

			resp, err := f.svc.AnalyzeURL(context.Background(), urlFor("ai", 0), false)
			require.NoError(t, err)
			if !tc.present {
				assert.Nil(t, resp.Watermark)
				return
			}
			require.NotNil(t, resp.Watermark)
			assert.Equal(t, tc.detected, resp.Watermark.Detected())
		})
	}
}

func TestTrain(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	res, err := f.svc.Train(ctx, urlsFor("ai", 3), "ai")
	require.NoError(t, err)
	assert.False(t, res.Calibrated)

	res, err = f.svc.Train(ctx, urlsFor("real", 3), "Real")
	require.NoError(t, err)
	assert.True(t, res.Calibrated)
	assert.Equal(t, 3, res.AICount)
	assert.Equal(t, 3, res.RealCount)

	health := f.svc.Health()
	assert.Equal(t, 3, health.AIImagesCount)
	assert.Equal(t, 3, health.RealImagesCount)

	f.pub.Flush()
	m := f.metrics.GetMetrics()
	assert.Equal(t, int64(2), m.TrainingRuns)
	assert.Equal(t, int64(6), m.SamplesTrained)
}

func TestTrain_Rejects(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.Train(ctx, urlsFor("ai", 1), "maybe")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTrainingType))

	_, err = f.svc.Train(ctx, nil, "ai")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestTrain_ReportsLowestFailingURL(t *testing.T) {
	f := newFixture(t, Options{})
	f.repo.errs["bad-1"] = apperrors.NewNetworkError("first", nil)
	f.repo.errs["bad-3"] = apperrors.NewNotFoundError("second", nil)

	urls := []string{urlFor("ai", 0), "bad-1", urlFor("ai", 1), "bad-3"}
	_, err := f.svc.Train(context.Background(), urls, "ai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url 1 (bad-1)")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNetwork))

	assert.Zero(t, f.svc.Health().AIImagesCount, "failed fetch must not add samples")
}

func TestTrain_TimeoutStoresNothing(t *testing.T) {
	f := newFixture(t, Options{AnalysisTimeout: time.Nanosecond})

	_, err := f.svc.Train(context.Background(), urlsFor("ai", 3), "ai")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout), "got %v", err)

	// Nothing may land after the caller has seen the error.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, f.svc.Statistics(context.Background()).AI.Count)
	assert.Equal(t, analyzer.DefaultThresholds(), f.svc.(*detectionService).session.Thresholds())

	f.pub.Flush()
	assert.Equal(t, int64(0), f.metrics.GetMetrics().SamplesTrained)
}

func TestTrainingMode(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	status := f.svc.StartTraining(ctx)
	assert.True(t, status.Active)

	_, err := f.svc.AddTrainingSample(ctx, urlFor("ai", 0), "ai")
	require.NoError(t, err)
	status, err = f.svc.AddTrainingUpload(ctx, []byte("real-bytes"), "image/png", "r.png", "real")
	require.NoError(t, err)
	assert.Equal(t, 1, status.AI)
	assert.Equal(t, 1, status.Real)

	res, err := f.svc.StopTraining(ctx)
	require.NoError(t, err)
	assert.True(t, res.Calibrated)
	assert.False(t, f.svc.TrainingStatus().Active)

	report := f.svc.Statistics(ctx)
	assert.Equal(t, 1, report.AI.Count)
	assert.Equal(t, 1, report.Real.Count)
}

func TestModelExportImportReset(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	_, err := f.svc.Train(ctx, urlsFor("ai", 2), "ai")
	require.NoError(t, err)
	_, err = f.svc.Train(ctx, urlsFor("real", 2), "real")
	require.NoError(t, err)

	data, err := f.svc.ExportModel(ctx)
	require.NoError(t, err)

	assert.Equal(t, analyzer.DefaultThresholds(), f.svc.ResetModel(ctx))

	resp, err := f.svc.ImportModel(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.AIImagesCount)
	assert.NotEqual(t, analyzer.DefaultThresholds(), resp.Thresholds)

	_, err = f.svc.ImportModel(ctx, []byte(`{"thresholds":`))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMalformedModel))
	assert.Equal(t, resp.Thresholds, f.svc.(*detectionService).session.Thresholds())

	f.pub.Flush()
	m := f.metrics.GetMetrics()
	assert.Equal(t, int64(1), m.ModelImports)
	assert.Equal(t, int64(1), m.ModelResets)
}

func TestSnapshots_Disabled(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.ListSnapshots(ctx, 10)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	_, err = f.svc.SaveSnapshot(ctx, "x")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	_, err = f.svc.RestoreSnapshot(ctx, "x")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestSnapshots_SaveAndRestore(t *testing.T) {
	store, err := modelstore.NewStore(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := newFixture(t, Options{Snapshots: store})
	ctx := context.Background()
	_, err = f.svc.Train(ctx, urlsFor("ai", 2), "ai")
	require.NoError(t, err)
	res, err := f.svc.Train(ctx, urlsFor("real", 2), "real")
	require.NoError(t, err)

	snap, err := f.svc.SaveSnapshot(ctx, "calibrated")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.AICount)

	f.svc.ResetModel(ctx)
	restored, err := f.svc.RestoreSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Thresholds, restored.Thresholds)

	list, err := f.svc.ListSnapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list.Snapshots, 1)
	assert.Equal(t, "calibrated", list.Snapshots[0].Note)
	assert.Equal(t, 1, list.Snapshots[0].Restores)

	_, err = f.svc.RestoreSnapshot(ctx, "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.svc.AnalyzeURL(ctx, urlFor("real", 0), false)
		require.NoError(t, err)
	}

	f.pub.Flush()
	m := f.svc.Metrics()
	assert.Equal(t, int64(2), m.Events.SuccessfulAnalyses)
	assert.Equal(t, uint64(1), m.CacheHits)
	assert.Equal(t, uint64(1), m.CacheMisses)
}

// Package transport exposes the detection service over HTTP.
package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
	"github.com/anime-shed/ai-detector-go/internal/logger"
	"github.com/anime-shed/ai-detector-go/internal/service"
	"github.com/anime-shed/ai-detector-go/pkg/models"
)

const defaultSnapshotLimit = 50

// Options configures the HTTP layer.
type Options struct {
	MaxRequestBodySize int64
	RequestTimeout     time.Duration
}

type handler struct {
	svc  service.DetectionService
	opts Options
}

// NewHandler builds the gin router.
func NewHandler(svc service.DetectionService, opts Options) http.Handler {
	h := &handler{svc: svc, opts: opts}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(opts.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", h.health)
	r.GET("/metrics", h.metrics)
	r.POST("/analyze", h.analyze)
	r.POST("/train", h.train)

	tr := r.Group("/training")
	tr.POST("/start", h.startTraining)
	tr.POST("/samples", h.addSample)
	tr.POST("/stop", h.stopTraining)
	tr.GET("/stats", h.trainingStats)

	m := r.Group("/model")
	m.GET("", h.exportModel)
	m.PUT("", h.importModel)
	m.POST("/reset", h.resetModel)
	m.GET("/snapshots", h.listSnapshots)
	m.POST("/snapshots", h.saveSnapshot)
	m.POST("/snapshots/:id/restore", h.restoreSnapshot)

	return r
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.opts.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.opts.RequestTimeout)
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health())
}

func (h *handler) metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Metrics())
}

func (h *handler) analyze(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()
	withBlocks := c.Query("blocks") == "true"

	var (
		resp *models.AnalysisResponse
		err  error
	)
	if isMultipart(c) {
		up, uerr := readUpload(c, "image")
		if uerr != nil {
			respondError(c, uerr)
			return
		}
		resp, err = h.svc.AnalyzeUpload(ctx, up.data, up.contentType, up.name, withBlocks)
	} else {
		var req models.AnalyzeRequest
		if berr := c.ShouldBindJSON(&req); berr != nil {
			respondError(c, bindError(berr))
			return
		}
		resp, err = h.svc.AnalyzeURL(ctx, req.URL, withBlocks)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithFields(logrus.Fields{
		"analysis_id": resp.ID,
		"source":      resp.Source,
		"score":       resp.Score,
		"indicators":  len(resp.Indicators),
	}).Info("Image analysis completed")
	c.JSON(http.StatusOK, resp)
}

func (h *handler) train(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req models.TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	resp, err := h.svc.Train(ctx, req.URLs, req.Label)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) startTraining(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.StartTraining(c.Request.Context()))
}

func (h *handler) addSample(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var (
		status models.TrainingStatus
		err    error
	)
	if isMultipart(c) {
		up, uerr := readUpload(c, "image")
		if uerr != nil {
			respondError(c, uerr)
			return
		}
		status, err = h.svc.AddTrainingUpload(ctx, up.data, up.contentType, up.name, c.PostForm("label"))
	} else {
		var req models.TrainingSampleRequest
		if berr := c.ShouldBindJSON(&req); berr != nil {
			respondError(c, bindError(berr))
			return
		}
		status, err = h.svc.AddTrainingSample(ctx, req.URL, req.Label)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *handler) stopTraining(c *gin.Context) {
	resp, err := h.svc.StopTraining(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) trainingStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     h.svc.TrainingStatus(),
		"statistics": h.svc.Statistics(c.Request.Context()),
	})
}

func (h *handler) exportModel(c *gin.Context) {
	data, err := h.svc.ExportModel(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="ai-detector-model.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

func (h *handler) importModel(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, bodyError(err))
		return
	}
	resp, err := h.svc.ImportModel(c.Request.Context(), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) resetModel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"thresholds": h.svc.ResetModel(c.Request.Context())})
}

func (h *handler) listSnapshots(c *gin.Context) {
	limit := defaultSnapshotLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, apperrors.NewValidationError("limit must be a positive integer", err))
			return
		}
		limit = n
	}
	resp, err := h.svc.ListSnapshots(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) saveSnapshot(c *gin.Context) {
	var req models.SnapshotRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, bindError(err))
			return
		}
	}
	snap, err := h.svc.SaveSnapshot(c.Request.Context(), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *handler) restoreSnapshot(c *gin.Context) {
	resp, err := h.svc.RestoreSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

type upload struct {
	data        []byte
	name        string
	contentType string
}

func readUpload(c *gin.Context, field string) (*upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, bodyError(err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("cannot open uploaded file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, bodyError(err)
	}
	return &upload{data: data, name: fh.Filename, contentType: fh.Header.Get("Content-Type")}, nil
}

func bindError(err error) error {
	if tooLarge(err) {
		return bodyError(err)
	}
	return apperrors.NewValidationError("invalid request format", err)
}

func bodyError(err error) *apperrors.AppError {
	if tooLarge(err) {
		return apperrors.NewValidationError("request body too large", err).
			WithStatus(http.StatusRequestEntityTooLarge)
	}
	return apperrors.NewValidationError("invalid request body", err)
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"ip":          c.ClientIP(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)
	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: err.Error(),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Error = string(appErr.Type)
		resp.Message = appErr.Message
		resp.Details = err.Error()
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, resp)
}

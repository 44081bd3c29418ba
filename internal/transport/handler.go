package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/image-search-go/internal/config"
	apperrors "github.com/anime-shed/image-search-go/internal/errors"
	"github.com/anime-shed/image-search-go/internal/logger"
	"github.com/anime-shed/image-search-go/internal/service"
	"github.com/anime-shed/image-search-go/internal/worker"
	"github.com/anime-shed/image-search-go/pkg/models"
)

const defaultNeighbours = 10

// Status is the runtime state reported by /health
type Status struct {
	Workers worker.Stats
	Passes  map[string]interface{}
}

// NewHandler builds the HTTP API. status may be nil.
func NewHandler(svc service.CatalogueService, cfg *config.Config, hub *Hub, status func() Status) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck(svc, status))

	api := r.Group("/api/v1")
	api.GET("/taggers", listTaggers(svc))
	api.GET("/images", queryImages(svc, cfg))
	api.POST("/images", addImage(svc, cfg))
	api.GET("/images/:id", getImage(svc, cfg))
	api.GET("/images/:id/tags/:tag", getTag(svc, cfg))
	api.GET("/images/:id/distances/:tag", closestImages(svc, cfg))
	api.POST("/passes", runPass(svc))
	if hub != nil {
		api.GET("/events", hub.ServeWS)
	}

	return r
}

func healthCheck(svc service.CatalogueService, status func() Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:    "available",
			Timestamp: time.Now().UTC(),
			Taggers:   len(svc.Taggers()),
		}
		if status != nil {
			s := status()
			resp.Workers = s.Workers
			resp.Passes = s.Passes
		}
		c.JSON(http.StatusOK, resp)
	}
}

func listTaggers(svc service.CatalogueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.TaggersResponse{Taggers: svc.Taggers()})
	}
}

func queryImages(svc service.CatalogueService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		resp, err := svc.Query(ctx, c.QueryArray("select"))
		if err != nil {
			respondError(c, "query failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func getImage(svc service.CatalogueService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		resp, err := svc.GetImage(ctx, c.Param("id"))
		if err != nil {
			respondError(c, "image lookup failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func getTag(svc service.CatalogueService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		resp, err := svc.GetTag(ctx, c.Param("id"), c.Param("tag"))
		if err != nil {
			respondError(c, "tag lookup failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func closestImages(svc service.CatalogueService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		n := defaultNeighbours
		if raw := c.Query("n"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				respondError(c, "invalid neighbour count", apperrors.NewValidationError("n must be an integer", err))
				return
			}
			n = parsed
		}

		resp, err := svc.Closest(ctx, c.Param("id"), c.Param("tag"), n)
		if err != nil {
			respondError(c, "distance ranking failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func addImage(svc service.CatalogueService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var req models.AddImageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "invalid request format", bindError(err))
			return
		}

		// Log request start
		logger.WithFields(logrus.Fields{
			"path":         req.Path,
			"copy":         req.Copy,
			"skip_tagging": req.SkipTagging,
			"ip":           c.ClientIP(),
		}).Info("Processing add image request")

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		resp, err := svc.AddImage(ctx, req)
		if err != nil {
			respondError(c, "failed to add image", err)
			return
		}

		logger.WithFields(logrus.Fields{
			logger.FieldImageID:  resp.Image.ID,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Image added")
		c.JSON(http.StatusCreated, resp)
	}
}

// runPass does not apply the request timeout: a pass runs to completion
// once its rows are resolved.
func runPass(svc service.CatalogueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PassRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, "invalid request format", bindError(err))
			return
		}

		resp, err := svc.RunPass(c.Request.Context(), req)
		if err != nil && resp == nil {
			respondError(c, "pass failed", err)
			return
		}
		if err != nil {
			logger.ForPass(resp.PassID).WithError(err).Warn("Pass finished with failures")
			c.JSON(determineStatusCode(err), resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, "request processing failed", c.Errors.Last().Err)
		}
	}
}

func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &apperrors.AppError{
			Type:       apperrors.ErrorTypeValidation,
			Message:    "request body too large",
			StatusCode: http.StatusRequestEntityTooLarge,
			Cause:      err,
		}
	}
	return apperrors.NewValidationError("invalid request body", err)
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, message string, err error) {
	code := determineStatusCode(err)
	resp := models.ErrorResponse{Error: message}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Type = string(appErr.Type)
		resp.Details = appErr.Message
		if appErr.Details != "" {
			resp.Details += ": " + appErr.Details
		}
	} else if err != nil {
		resp.Details = err.Error()
	}

	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, resp)
}

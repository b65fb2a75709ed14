package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go-image-enhancer/internal/codec"
	"go-image-enhancer/internal/config"
	"go-image-enhancer/internal/enhancer"
	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/internal/logger"
	"go-image-enhancer/internal/service"
	"go-image-enhancer/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var aiFeatures = []string{
	enhancer.LabelBrightness,
	enhancer.LabelContrast,
	enhancer.LabelSharpening,
	enhancer.LabelColor,
	enhancer.LabelNoiseReduction,
}

func NewHandler(svc service.EnhancementService, cfg *config.Config) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck(svc))
	r.POST("/convert", convertImage(svc, cfg))
	r.POST("/analyze", analyzeImage(svc, cfg))
	r.GET("/download/:filename", downloadArtifact(svc))
	r.GET("/jobs/:id", getJob(svc))
	r.GET("/history", jobHistory(svc))

	r.NoRoute(func(c *gin.Context) {
		respondError(c, apperrors.NewNotFoundError("route not found", nil))
	})

	return r
}

func convertImage(svc service.EnhancementService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.ConvertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, bindError(err))
			return
		}

		resp, err := svc.Convert(ctx, req)
		if err != nil {
			respondError(c, err)
			return
		}

		logger.WithFields(logrus.Fields{
			"job_id":       resp.ID,
			"filename":     resp.Filename,
			"format":       resp.Format,
			"size_bytes":   resp.SizeBytes,
			"enhancements": resp.EnhancementsApplied,
		}).Info("Image conversion completed successfully")

		c.JSON(http.StatusOK, resp)
	}
}

func analyzeImage(svc service.EnhancementService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, bindError(err))
			return
		}

		resp, err := svc.Analyze(ctx, req)
		if err != nil {
			respondError(c, err)
			return
		}

		logger.WithFields(logrus.Fields{
			"url":             req.ImageURL,
			"is_dark":         resp.Analysis.IsDark,
			"is_low_contrast": resp.Analysis.IsLowContrast,
			"blurry":          resp.Analysis.NeedsSharpening,
			"noisy":           resp.Analysis.NeedsNoiseReduction,
		}).Info("Image analysis completed successfully")

		c.JSON(http.StatusOK, resp)
	}
}

func downloadArtifact(svc service.EnhancementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		artifact, err := svc.OpenArtifact(c.Request.Context(), c.Param("filename"))
		if err != nil {
			respondError(c, err)
			return
		}
		defer artifact.Body.Close()

		c.DataFromReader(http.StatusOK, artifact.Size, artifact.ContentType, artifact.Body, map[string]string{
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", artifact.Name),
		})
	}
}

func getJob(svc service.EnhancementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := svc.GetJob(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func jobHistory(svc service.EnhancementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				respondError(c, apperrors.NewValidationError("limit must be a positive integer", nil))
				return
			}
			limit = n
		}

		imageURL := c.Query("image_url")
		jobs, err := svc.History(c.Request.Context(), imageURL, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		if jobs == nil {
			jobs = []*models.JobRecord{}
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"image_url": imageURL,
			"jobs":      jobs,
		})
	}
}

func healthCheck(svc service.EnhancementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "healthy",
			"version":           "1.0.0",
			"time":              time.Now().UTC().Format(time.RFC3339),
			"supported_formats": codec.SupportedFormats(),
			"ai_features":       aiFeatures,
			"stats":             svc.Stats(c.Request.Context()),
		})
	}
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}
		logger.WithFields(fields).Debug("Processing request")

		c.Next()

		fields["status"] = c.Writer.Status()
		fields["processing_time_ms"] = time.Since(start).Milliseconds()
		logger.WithFields(fields).Info("Request completed")
	}
}

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
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func bindError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.NewTooLargeError("request body too large", nil)
	}
	return apperrors.NewValidationError("invalid request format", err)
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
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

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Success: false,
		Error:   apperrors.PublicMessage(err),
	})
}

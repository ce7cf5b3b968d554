package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/photo-validator/internal/catalog"
	"github.com/example/photo-validator/internal/config"
	"github.com/example/photo-validator/internal/usecase"
)

// MaxUploadSize caps the multipart photo upload.
const MaxUploadSize = 10 << 20

// RegisterRoutes wires the HTTP handlers to the Gin router. metricsAuth may
// be nil, leaving /metrics open (development setups without a JWT secret).
func RegisterRoutes(router *gin.Engine, uc *usecase.ValidationUseCase, cfg *config.Config, metricsAuth gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"msg":       "photo validator healthy",
			"preset":    cfg.PresetName,
			"target":    []int{cfg.Pipeline.TargetWidth, cfg.Pipeline.TargetHeight},
			"max_bytes": cfg.Pipeline.MaxBytes,
			"storage": gin.H{
				"bucket":     cfg.StorageBucket,
				"configured": cfg.StorageConfigured(),
			},
		})
	})

	router.POST("/validate", func(c *gin.Context) {
		studentID := c.PostForm("dni")

		fileHeader, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}
		if fileHeader.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return
		}
		if contentType := fileHeader.Header.Get("Content-Type"); contentType != "" &&
			!strings.HasPrefix(contentType, "image/") &&
			contentType != "application/octet-stream" {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported content type"})
			return
		}

		src, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
			return
		}
		if int64(len(data)) > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return
		}

		locale := catalog.Match(c.GetHeader("Accept-Language"))
		resp, err := uc.ValidatePhoto(c.Request.Context(), studentID, data, locale)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	router.GET("/result/:id", func(c *gin.Context) {
		requestID := c.Param("id")
		record, err := uc.GetResult(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"request_id":                record.RequestID,
			"dni":                       record.StudentID,
			"ok":                        record.Approved,
			"issues":                    record.Issues,
			"bytes":                     record.ByteCount,
			"background_white_fraction": record.WhiteFraction,
			"category":                  record.Category,
			"filename":                  record.Filename,
			"storage_url":               record.PublicURL,
			"created_at":                record.CreatedAt,
		})
	})

	metrics := func(c *gin.Context) {
		summary, err := uc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "metrics unavailable"})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
	if metricsAuth != nil {
		router.GET("/metrics", metricsAuth, metrics)
	} else {
		router.GET("/metrics", metrics)
	}
}

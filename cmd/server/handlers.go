package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/securevault-gateway/internal/access"
	"github.com/securevault-gateway/internal/analytics"
	"github.com/securevault-gateway/internal/config"
	"github.com/securevault-gateway/internal/metrics"
	"github.com/securevault-gateway/internal/middleware"
	"github.com/securevault-gateway/internal/models"
	"github.com/securevault-gateway/internal/share"
)

func handleUpload(shareService *share.Service, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
			return
		}
		if cfg.Upload.MaxSizeBytes > 0 && fileHeader.Size > cfg.Upload.MaxSizeBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}

		maxViews, _ := strconv.Atoi(c.PostForm("max_views"))
		expiryMins, _ := strconv.Atoi(c.PostForm("expiry_mins"))

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
			return
		}
		defer file.Close()

		rec, err := shareService.CreateShare(c.Request.Context(), share.CreateShareRequest{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			MaxViews:    maxViews,
			ExpiryMins:  expiryMins,
			OwnerID:     middleware.OwnerID(c),
			Password:    c.PostForm("password"),
		}, file)
		if err != nil {
			if errors.Is(err, share.ErrInvalidRequest) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to secure file"})
			return
		}

		metrics.UploadsTotal.Inc()

		c.JSON(http.StatusOK, models.UploadResponse{
			Message:   "File secured successfully!",
			ShareLink: rec.ID,
			ExpiresAt: rec.ExpiresAt,
		})
	}
}

func handleAccess(accessService *access.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		grant, err := accessService.AttemptAccess(c.Request.Context(), access.Request{
			ShareID:   c.Param("id"),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Password:  c.Query("password"),
		})
		if err != nil {
			var denied *access.DeniedError
			switch {
			case errors.Is(err, access.ErrShareNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
			case errors.As(err, &denied):
				c.JSON(http.StatusForbidden, gin.H{"error": denied.Reason})
			case errors.Is(err, access.ErrStorageUnavailable):
				c.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to access file"})
			}
			return
		}

		c.JSON(http.StatusOK, models.AccessResponse{
			FileURL:   grant.URL,
			Filename:  grant.Filename,
			ViewsLeft: grant.ViewsLeft,
		})
	}
}

func handleStats(analyticsService *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := analyticsService.ComputeStats(c.Request.Context(), middleware.OwnerID(c), c.Query("range"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

func handleLogs(analyticsService *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))

		logs, err := analyticsService.ListLogs(c.Request.Context(),
			middleware.OwnerID(c),
			c.Query("range"),
			c.Query("sort"),
			limit,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list logs"})
			return
		}

		c.JSON(http.StatusOK, logs)
	}
}

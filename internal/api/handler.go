package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/internal/adapters/storage"
	"github.com/selivandex/crypto-digest/internal/digest"
	"github.com/selivandex/crypto-digest/pkg/logger"
	"github.com/selivandex/crypto-digest/pkg/models"
)

// statusClientClosedRequest is the nginx convention for a caller that hung up
const statusClientClosedRequest = 499

// DigestService is what the handlers need from digest.Service
type DigestService interface {
	Today(ctx context.Context) (models.Digest, error)
	ForDate(ctx context.Context, key string) (models.Digest, error)
}

// DigestHandler serves daily digests
type DigestHandler struct {
	service DigestService
}

func NewDigestHandler(service DigestService) *DigestHandler {
	return &DigestHandler{service: service}
}

// GetToday returns today's digest, building it on the first request of the day
func (h *DigestHandler) GetToday(c *gin.Context) {
	result, err := h.service.Today(c.Request.Context())
	if errors.Is(err, context.Canceled) {
		logger.Debug("client went away before crypto summary was ready", zap.Error(err))
		c.AbortWithStatus(statusClientClosedRequest)
		return
	}
	if err != nil {
		logger.Error("failed to serve crypto summary", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to fetch and store summaries: %v", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetByDate returns a stored digest without building
func (h *DigestHandler) GetByDate(c *gin.Context) {
	key := c.Param("date")

	result, err := h.service.ForDate(c.Request.Context(), key)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, digest.ErrInvalidDateKey):
		c.String(http.StatusBadRequest, "Invalid date %q, expected YYYY-MM-DD", key)
	case errors.Is(err, storage.ErrNotFound):
		c.String(http.StatusNotFound, "No summary stored for %s", key)
	default:
		logger.Error("failed to read crypto summary", zap.String("date_key", key), zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to read summaries: %v", err)
	}
}

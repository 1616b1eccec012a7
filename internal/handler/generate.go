package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelgate/pixelgate/internal/service"
	"github.com/pixelgate/pixelgate/internal/upstream"
)

type GenerateHandler struct {
	rotator *service.RotatorService
	client  *upstream.Client
	logger  *slog.Logger
}

func NewGenerateHandler(rotator *service.RotatorService, client *upstream.Client, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{
		rotator: rotator,
		client:  client,
		logger:  logger.With("component", "generate"),
	}
}

// Generate allocates a pool credential and relays the image request
// upstream. Pool exhaustion is logged in full but reaches the caller
// only as a generic 502.
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req upstream.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	credential, err := h.rotator.AllocateCredential(ctx)
	if err != nil {
		if errors.Is(err, service.ErrPoolExhausted) {
			h.logger.Error("rejecting request, pool exhausted",
				"request_id", c.GetString("request_id"))
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "image service temporarily unavailable",
			})
			return
		}

		h.logger.Error("credential allocation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	result, err := h.client.Generate(ctx, credential.Key, req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "image service temporarily unavailable",
		})
		return
	}

	c.Data(result.StatusCode, "application/json", result.Body)
}

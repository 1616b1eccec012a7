package handler

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelgate/pixelgate/internal/service"
)

// WebhookHandler ingests billing-provider events. The provider's
// cryptographic signature is verified at the edge; here a shared secret
// header guards the route.
type WebhookHandler struct {
	subs   *service.SubscriptionService
	secret string
	logger *slog.Logger
}

func NewWebhookHandler(subs *service.SubscriptionService, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		subs:   subs,
		secret: secret,
		logger: logger.With("component", "billing-webhook"),
	}
}

func (h *WebhookHandler) HandleBillingEvent(c *gin.Context) {
	presented := c.GetHeader("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(presented), []byte(h.secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var ev service.BillingEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.subs.ApplyBillingEvent(c.Request.Context(), ev); err != nil {
		if errors.Is(err, service.ErrUnknownBillingEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		h.logger.Error("failed to apply billing event",
			"type", ev.Type,
			"billing_ref", ev.BillingRef,
			"error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

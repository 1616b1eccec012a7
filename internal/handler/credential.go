package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pixelgate/pixelgate/internal/repository"
	"github.com/pixelgate/pixelgate/internal/upstream"
)

// CredentialHandler is the admin surface for the provider key pool.
type CredentialHandler struct {
	repo   *repository.ProviderKeyRepository
	client *upstream.Client
	logger *slog.Logger
}

func NewCredentialHandler(repo *repository.ProviderKeyRepository, client *upstream.Client, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{
		repo:   repo,
		client: client,
		logger: logger.With("component", "credential-admin"),
	}
}

func (h *CredentialHandler) Add(c *gin.Context) {
	var req struct {
		Keys []string `json:"keys" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Keys) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Keys list cannot be empty"})
		return
	}

	if err := h.repo.BatchCreate(c.Request.Context(), req.Keys); err != nil {
		h.logger.Error("failed to add provider keys", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add keys"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"added": len(req.Keys)})
}

func (h *CredentialHandler) List(c *gin.Context) {
	keys, err := h.repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, keys)
}

func (h *CredentialHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credential id"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "credential deleted"})
}

// Reset triggers the daily reset out of schedule.
func (h *CredentialHandler) Reset(c *gin.Context) {
	affected, err := h.repo.ResetAll(c.Request.Context())
	if err != nil {
		h.logger.Error("manual pool reset failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys_reset": affected})
}

// Probe validates one pool credential against the upstream API.
func (h *CredentialHandler) Probe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credential id"})
		return
	}

	key, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if key == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "credential not found"})
		return
	}

	if err := h.client.TestCredential(c.Request.Context(), key.Key); err != nil {
		c.JSON(http.StatusOK, gin.H{"healthy": false, "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"healthy": true})
}

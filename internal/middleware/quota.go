package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelgate/pixelgate/internal/service"
)

// QuotaGate authenticates the caller's product key and admits or
// rejects the request against their quota. Per request it walks
// Unauthenticated -> KeyResolved -> UserResolved -> QuotaChecked ->
// Admitted|Rejected. Authorization failures short-circuit before any
// credential allocation or upstream call.
func QuotaGate(keys *service.ProductKeyService, quota *service.QuotaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": service.ErrMissingCredential.Error(),
			})
			return
		}

		ctx := c.Request.Context()
		key, user, sub, err := keys.Authenticate(ctx, token)
		if err != nil {
			status, msg := authFailure(err)
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		// User and key are resolved: from here on the request produces
		// a ledger entry no matter how it ends.
		c.Set(ContextProductKey, key)
		c.Set(ContextUser, user)
		if sub != nil {
			c.Set(ContextSubscription, sub)
		}

		policy, _, err := quota.Check(ctx, user.ID, sub, time.Now().UTC())

		var quotaErr *service.QuotaExceededError
		if errors.As(err, &quotaErr) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "quota exceeded",
				"limit": quotaErr.Limit,
				"used":  quotaErr.Used,
				"plan":  quotaErr.Plan,
			})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "quota check failed",
			})
			return
		}

		c.Set(ContextQuotaPolicy, policy)

		// Last-used touch stays off the critical path.
		go keys.TouchLastUsed(context.Background(), key.ID)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}

	return strings.TrimSpace(parts[1]), true
}

func authFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		return http.StatusUnauthorized, service.ErrMissingCredential.Error()
	case errors.Is(err, service.ErrInvalidCredential):
		return http.StatusUnauthorized, service.ErrInvalidCredential.Error()
	case errors.Is(err, service.ErrRevokedCredential):
		return http.StatusForbidden, service.ErrRevokedCredential.Error()
	case errors.Is(err, service.ErrAccountSuspended):
		return http.StatusForbidden, service.ErrAccountSuspended.Error()
	default:
		return http.StatusInternalServerError, "authentication failed"
	}
}

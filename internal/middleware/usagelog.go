package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/usage"
)

// UsageLogger writes one ledger entry per request after the response
// has been produced, but only when the quota gate resolved both a user
// and a product key. MissingCredential/InvalidCredential rejections
// therefore never reach the ledger.
func UsageLogger(recorder *usage.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		userVal, ok := c.Get(ContextUser)
		if !ok {
			return
		}
		keyVal, ok := c.Get(ContextProductKey)
		if !ok {
			return
		}

		user, ok := userVal.(*models.User)
		if !ok {
			return
		}
		key, ok := keyVal.(*models.ProductKey)
		if !ok {
			return
		}

		recorder.Record(models.UsageLog{
			Timestamp:      start.UTC(),
			UserID:         user.ID,
			ProductKeyID:   key.ID,
			Method:         c.Request.Method,
			Path:           c.Request.URL.Path,
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: int(time.Since(start).Milliseconds()),
			Credits:        1,
		})
	}
}

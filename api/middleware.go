package api

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"

	wrapErrors "github.com/linlinbupt123-crypto/seed_custody/errors"
)

// AccessLog logs one line per request. Bodies are never logged; they carry
// passwords and mnemonics.
func AccessLog(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := []interface{}{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		}
		if userID := c.Param("userID"); userID != "" {
			ctx = append(ctx, "user", userID)
		}
		if err := c.Errors.Last(); err != nil {
			ctx = append(ctx, "code", wrapErrors.CodeOf(err.Err))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("HTTP request", ctx...)
		case c.Writer.Status() >= 400:
			logger.Warn("HTTP request", ctx...)
		default:
			logger.Info("HTTP request", ctx...)
		}
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vidtube/api/internal/apperr"
)

// Errors is the single point where every handler failure becomes the
// uniform response envelope. Handlers record failures with c.Error and
// abort; this middleware classifies the last one and writes the body.
// The stack trace field is attached only outside production.
func Errors(log zerolog.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := apperr.From(err)

		if appErr.StatusCode >= 500 {
			log.Error().Err(err).
				Str("request_id", c.Writer.Header().Get(requestIDHeader)).
				Str("path", c.Request.URL.Path).
				Msg("request failed")
		}

		c.JSON(appErr.StatusCode, appErr.Envelope(!production))
	}
}

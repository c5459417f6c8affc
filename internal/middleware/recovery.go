package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vidtube/api/internal/apperr"
)

func Recovery(log zerolog.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("error", r).
					Str("request_id", c.Writer.Header().Get(requestIDHeader)).
					Msg("panic recovered")

				env := apperr.Internal("internal server error").Envelope(!production)
				c.AbortWithStatusJSON(http.StatusInternalServerError, env)
			}
		}()
		c.Next()
	}
}

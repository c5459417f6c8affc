package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"vidtube/api/internal/apperr"
	"vidtube/api/internal/config"
	"vidtube/api/internal/models"
	"vidtube/api/internal/security"
)

const (
	ContextUserKey = "current_user"

	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// UserLoader resolves the id carried by a verified access token.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

// Auth verifies the access token from the Authorization header or the
// accessToken cookie and attaches the account to the request context.
func Auth(cfg *config.AppConfig, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			tokenStr, _ = c.Cookie(AccessTokenCookie)
		}
		if tokenStr == "" {
			abortUnauthorized(c, "missing access token")
			return
		}

		userID, err := security.ParseToken(tokenStr, cfg.Security.AccessTokenSecret, security.TokenAccess)
		if err != nil {
			abortUnauthorized(c, "invalid access token")
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			abortUnauthorized(c, "invalid access token")
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	appErr := apperr.Authentication(message)
	c.AbortWithStatusJSON(appErr.StatusCode, appErr.Envelope(false))
}

// CurrentUser returns the account attached by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(ContextUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vidtube/api/internal/config"
	"vidtube/api/internal/middleware"
	"vidtube/api/internal/repository"
	"vidtube/api/internal/service"
	"vidtube/api/internal/storage"
)

type HandlerSet struct {
	log   zerolog.Logger
	cfg   *config.AppConfig
	users *service.UserService
	repo  middleware.UserLoader
	db    *pgxpool.Pool
	cache *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	userService := service.NewUserService(userRepo, store, cfg, log)

	return HandlerSet{
		log:   log,
		cfg:   cfg,
		users: userService,
		repo:  userRepo,
		db:    db,
		cache: cache,
	}
}

func (h HandlerSet) Routes(router *gin.RouterGroup) {
	v1 := router.Group("/v1")

	v1.GET("/healthcheck", h.Health)

	users := v1.Group("/users")
	users.POST("/register", h.Register)
	users.POST("/login",
		middleware.RateLimit(h.cache, h.log, h.cfg.Security.LoginRateLimit, h.cfg.Security.LoginRateWindow),
		h.Login,
	)
	users.POST("/refresh-token", h.Refresh)

	protected := v1.Group("/users")
	protected.Use(middleware.Auth(h.cfg, h.repo))
	protected.POST("/logout", h.Logout)
	protected.GET("/me", h.Me)
}

// respond writes the uniform success body.
func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"statusCode": status,
		"data":       data,
		"message":    message,
		"success":    true,
	})
}

// fail records the error for the normalizer middleware and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

package service

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"vidtube/api/internal/config"
	"vidtube/api/internal/models"
	"vidtube/api/internal/storage"
)

// UserStore is the credential-store surface the service needs.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	SetRefreshToken(ctx context.Context, id string, hash []byte, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, id string, oldHash, newHash []byte, expiresAt time.Time) error
	ClearRefreshToken(ctx context.Context, id string) error
}

// AssetStore is the external media store: upload yields a deletable handle,
// Remove compensates a partial registration.
type AssetStore interface {
	Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) (storage.AssetHandle, error)
	Remove(ctx context.Context, handle storage.AssetHandle) error
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthResult struct {
	User   models.PublicUser
	Tokens TokenPair
}

type UserService struct {
	users  UserStore
	assets AssetStore
	cfg    *config.AppConfig
	log    zerolog.Logger
}

func NewUserService(users UserStore, assets AssetStore, cfg *config.AppConfig, log zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		assets: assets,
		cfg:    cfg,
		log:    log,
	}
}

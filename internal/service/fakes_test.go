package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"vidtube/api/internal/apperr"
	"vidtube/api/internal/config"
	"vidtube/api/internal/models"
	"vidtube/api/internal/repository"
	"vidtube/api/internal/storage"
)

type fakeUserStore struct {
	mu        sync.Mutex
	users     map[string]models.User
	creates   int
	createErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]models.User{}}
}

func (f *fakeUserStore) Create(ctx context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == identifier || u.Username == identifier {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) SetRefreshToken(ctx context.Context, id string, hash []byte, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.RefreshTokenHash = hash
	u.RefreshExpiresAt = &expiresAt
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) RotateRefreshToken(ctx context.Context, id string, oldHash, newHash []byte, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok || !bytes.Equal(u.RefreshTokenHash, oldHash) {
		return repository.ErrRefreshTokenMismatch
	}
	u.RefreshTokenHash = newHash
	u.RefreshExpiresAt = &expiresAt
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) ClearRefreshToken(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil
	}
	u.RefreshTokenHash = nil
	u.RefreshExpiresAt = nil
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type fakeAssetStore struct {
	mu           sync.Mutex
	uploads      int
	failOnUpload int
	removed      map[string]int
	removeErr    error
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{removed: map[string]int{}}
}

func (f *fakeAssetStore) Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) (storage.AssetHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.uploads++
	if f.failOnUpload != 0 && f.uploads == f.failOnUpload {
		return storage.AssetHandle{}, fmt.Errorf("upload refused")
	}
	return storage.AssetHandle{
		URL:       "https://assets.test/" + objectKey,
		Bucket:    "test-bucket",
		ObjectKey: objectKey,
	}, nil
}

func (f *fakeAssetStore) Remove(ctx context.Context, handle storage.AssetHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removed[handle.ObjectKey]++
	return f.removeErr
}

func (f *fakeAssetStore) removeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.removed {
		total += n
	}
	return total
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			AccessTokenSecret:  "access-secret",
			RefreshTokenSecret: "refresh-secret",
			AccessTokenTTL:     time.Minute,
			RefreshTokenTTL:    time.Hour,
		},
	}
}

func newTestService(users *fakeUserStore, assets *fakeAssetStore) *UserService {
	return NewUserService(users, assets, testConfig(), zerolog.Nop())
}

var pngHead = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func pngUpload(name string) *FileUpload {
	return &FileUpload{
		Filename: name,
		Size:     int64(len(pngHead)),
		Reader:   bytes.NewReader(pngHead),
	}
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, status, appErr.StatusCode)
}

package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() RegisterInput {
	return RegisterInput{
		Fullname: "A B",
		Email:    "a@x.com",
		Username: "ab",
		Password: "secret1",
		Avatar:   pngUpload("avatar.png"),
	}
}

func TestRegisterSuccess(t *testing.T) {
	users := newFakeUserStore()
	assets := newFakeAssetStore()
	svc := newTestService(users, assets)

	user, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, "ab", user.Username)
	assert.Equal(t, "a@x.com", user.Email)
	assert.NotEmpty(t, user.AvatarURL)
	assert.Empty(t, user.CoverURL)

	assert.Equal(t, 1, users.count())
	assert.Equal(t, 1, assets.uploads)
	assert.Zero(t, assets.removeCount())

	stored, err := users.FindByIdentifier(context.Background(), "ab")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.Nil(t, stored.RefreshTokenHash)
}

func TestRegisterWithCover(t *testing.T) {
	users := newFakeUserStore()
	assets := newFakeAssetStore()
	svc := newTestService(users, assets)

	input := validInput()
	input.Cover = pngUpload("cover.png")

	user, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	assert.NotEmpty(t, user.CoverURL)
	assert.Equal(t, 2, assets.uploads)
	assert.Zero(t, assets.removeCount())
}

func TestRegisterMissingFields(t *testing.T) {
	for _, field := range []string{"fullname", "email", "username", "password"} {
		t.Run(field, func(t *testing.T) {
			users := newFakeUserStore()
			assets := newFakeAssetStore()
			svc := newTestService(users, assets)

			input := validInput()
			switch field {
			case "fullname":
				input.Fullname = "   "
			case "email":
				input.Email = ""
			case "username":
				input.Username = "\t"
			case "password":
				input.Password = ""
			}

			_, err := svc.Register(context.Background(), input)
			requireStatus(t, err, http.StatusBadRequest)

			assert.Zero(t, users.creates)
			assert.Zero(t, assets.uploads)
		})
	}
}

func TestRegisterConflictSkipsUpload(t *testing.T) {
	users := newFakeUserStore()
	assets := newFakeAssetStore()
	svc := newTestService(users, assets)

	_, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)
	assets.uploads = 0

	input := validInput()
	input.Email = "other@x.com" // same username
	_, err = svc.Register(context.Background(), input)
	requireStatus(t, err, http.StatusConflict)
	assert.Zero(t, assets.uploads)

	input = validInput()
	input.Username = "other" // same email
	_, err = svc.Register(context.Background(), input)
	requireStatus(t, err, http.StatusConflict)
	assert.Zero(t, assets.uploads)
}

func TestRegisterAvatarRequired(t *testing.T) {
	users := newFakeUserStore()
	assets := newFakeAssetStore()
	svc := newTestService(users, assets)

	input := validInput()
	input.Avatar = nil

	_, err := svc.Register(context.Background(), input)
	requireStatus(t, err, http.StatusBadRequest)
	assert.Zero(t, assets.uploads)
	assert.Zero(t, users.creates)
}

func TestRegisterAvatarUploadFailure(t *testing.T) {
	users := newFakeUserStore()
	assets := newFakeAssetStore()
	assets.failOnUpload = 1
	svc := newTestService(users, assets)

	_, err := svc.Register(context.Background(), validInput())
	requireStatus(t, err, http.StatusInternalServerError)

	assert.Zero(t, users.count())
	assert.Zero(t, assets.removeCount())
}

func TestRegisterCoverUploadFailureRollsBackAvatar(t *testing.T) {
	users := newFakeUserStore()
	assets := newFakeAssetStore()
	assets.failOnUpload = 2
	svc := newTestService(users, assets)

	input := validInput()
	input.Cover = pngUpload("cover.png")

	_, err := svc.Register(context.Background(), input)
	requireStatus(t, err, http.StatusInternalServerError)

	assert.Zero(t, users.count())
	assert.Equal(t, 1, assets.removeCount())
	for key, n := range assets.removed {
		assert.Equal(t, 1, n, "handle %s deleted more than once", key)
	}
}

func TestRegisterStoreFailureRollsBackAllAssets(t *testing.T) {
	users := newFakeUserStore()
	users.createErr = errors.New("simulated store fault")
	assets := newFakeAssetStore()
	svc := newTestService(users, assets)

	input := validInput()
	input.Cover = pngUpload("cover.png")

	_, err := svc.Register(context.Background(), input)
	requireStatus(t, err, http.StatusInternalServerError)

	assert.Zero(t, users.count())
	require.Len(t, assets.removed, 2)
	for key, n := range assets.removed {
		assert.Equal(t, 1, n, "handle %s deleted more than once", key)
	}
}

func TestRegisterCreateRaceMapsToConflict(t *testing.T) {
	users := newFakeUserStore()
	// A racing registration claimed the identity between the uniqueness
	// precheck and the insert.
	users.createErr = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	assets := newFakeAssetStore()
	svc := newTestService(users, assets)

	_, err := svc.Register(context.Background(), validInput())
	requireStatus(t, err, http.StatusConflict)

	assert.Zero(t, users.count())
	assert.Equal(t, 1, assets.removeCount())
}

func TestRegisterRollbackSwallowsDeleteErrors(t *testing.T) {
	users := newFakeUserStore()
	users.createErr = errors.New("simulated store fault")
	assets := newFakeAssetStore()
	assets.removeErr = errors.New("delete refused")
	svc := newTestService(users, assets)

	_, err := svc.Register(context.Background(), validInput())
	// The original failure propagates, not the rollback failure.
	requireStatus(t, err, http.StatusInternalServerError)
	assert.Equal(t, 1, assets.removeCount())
}

func TestRegisterRejectsNonImageAvatar(t *testing.T) {
	users := newFakeUserStore()
	assets := newFakeAssetStore()
	svc := newTestService(users, assets)

	input := validInput()
	input.Avatar = &FileUpload{
		Filename: "avatar.txt",
		Size:     9,
		Reader:   bytes.NewReader([]byte("just text")),
	}

	_, err := svc.Register(context.Background(), input)
	requireStatus(t, err, http.StatusBadRequest)
	assert.Zero(t, assets.uploads)
	assert.Zero(t, users.count())
}

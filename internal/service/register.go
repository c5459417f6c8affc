package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"vidtube/api/internal/apperr"
	"vidtube/api/internal/ids"
	"vidtube/api/internal/media/sniffer"
	"vidtube/api/internal/models"
	"vidtube/api/internal/security"
	"vidtube/api/internal/storage"
)

const (
	uploadTimeout  = 30 * time.Second
	releaseTimeout = 10 * time.Second
)

// FileUpload is an already-received local file handed to registration.
type FileUpload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

type RegisterInput struct {
	Fullname string
	Email    string
	Username string
	Password string
	Avatar   *FileUpload
	Cover    *FileUpload
}

// Register creates an account with its externally stored avatar (and
// optional cover image), atomically: every asset uploaded before a failure
// is deleted again, so no failure leaves an orphaned asset or a partial
// account. The created user is returned without password or token material.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (models.PublicUser, error) {
	input.Fullname = strings.TrimSpace(input.Fullname)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.ToLower(strings.TrimSpace(input.Username))
	input.Password = strings.TrimSpace(input.Password)

	if input.Fullname == "" || input.Email == "" || input.Username == "" || input.Password == "" {
		return models.PublicUser{}, apperr.Validation("all fields are required")
	}

	// Checked before any upload so a doomed attempt never touches the
	// asset store.
	exists, err := s.users.ExistsByEmailOrUsername(ctx, input.Email, input.Username)
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("uniqueness check: %w", err)
	}
	if exists {
		return models.PublicUser{}, apperr.Conflict("user with email or username already exists")
	}

	if input.Avatar == nil {
		return models.PublicUser{}, apperr.Validation("avatar file is missing")
	}

	// Every successfully uploaded handle is owned by this attempt until
	// the user row is committed; on any later failure the list is drained
	// with best-effort deletes.
	var uploaded []storage.AssetHandle
	fail := func(cause error) (models.PublicUser, error) {
		s.releaseAssets(ctx, uploaded)
		return models.PublicUser{}, cause
	}

	avatar, err := s.uploadImage(ctx, "avatars", input.Avatar)
	if err != nil {
		return fail(err)
	}
	uploaded = append(uploaded, avatar)
	if avatar.URL == "" {
		return fail(apperr.Upload("failed to upload avatar"))
	}

	var coverURL string
	if input.Cover != nil {
		cover, err := s.uploadImage(ctx, "covers", input.Cover)
		if err != nil {
			return fail(err)
		}
		uploaded = append(uploaded, cover)
		coverURL = cover.URL
	}

	user := models.User{
		ID:        ids.New(),
		Fullname:  input.Fullname,
		Email:     input.Email,
		Username:  input.Username,
		AvatarURL: avatar.URL,
		CoverURL:  coverURL,
	}

	user.PasswordHash, err = security.HashPassword(input.Password)
	if err != nil {
		return fail(fmt.Errorf("hash password: %w", err))
	}

	if err := s.users.Create(ctx, user); err != nil {
		// A racing registration may have claimed the email or username
		// since the precheck; apperr classifies the unique violation.
		return fail(apperr.From(err))
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")

	return user.Public(), nil
}

func (s *UserService) uploadImage(ctx context.Context, prefix string, file *FileUpload) (storage.AssetHandle, error) {
	data, err := io.ReadAll(file.Reader)
	if err != nil {
		return storage.AssetHandle{}, apperr.Upload("failed to read uploaded file")
	}
	if len(data) == 0 {
		return storage.AssetHandle{}, apperr.Validation("uploaded file is empty")
	}

	result, err := sniffer.DetectHead(data)
	if err != nil {
		return storage.AssetHandle{}, apperr.Validation("unsupported image type")
	}

	objectKey := path.Join(prefix, time.Now().UTC().Format("2006/01/02"), fmt.Sprintf("%s.%s", ids.New(), result.Ext()))

	uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	handle, err := s.assets.Upload(uploadCtx, objectKey, bytes.NewReader(data), int64(len(data)), result.MIME)
	if err != nil {
		s.log.Error().Err(err).Str("object_key", objectKey).Msg("asset upload failed")
		return storage.AssetHandle{}, apperr.Upload("failed to upload image")
	}
	return handle, nil
}

// releaseAssets drains the rollback list. Delete failures are logged and
// swallowed; the failure that triggered the rollback is what propagates.
func (s *UserService) releaseAssets(ctx context.Context, handles []storage.AssetHandle) {
	if len(handles) == 0 {
		return
	}

	// The request context may already be canceled; the compensating
	// deletes still get a bounded window of their own.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	for _, handle := range handles {
		if err := s.assets.Remove(releaseCtx, handle); err != nil {
			s.log.Error().Err(err).
				Str("bucket", handle.Bucket).
				Str("object_key", handle.ObjectKey).
				Msg("rollback delete failed")
		}
	}
}

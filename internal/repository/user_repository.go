package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidtube/api/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")

	// ErrRefreshTokenMismatch is returned when a compare-and-swap rotation
	// finds a different token in the slot than the one presented.
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")
)

const userColumns = `
	id, fullname, email, username, password_hash, avatar_url, cover_url,
	refresh_token_hash, refresh_expires_at, created_at, updated_at
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, fullname, email, username, password_hash, avatar_url, cover_url,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Fullname,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.AvatarURL,
		user.CoverURL,
	)
	return err
}

// ExistsByEmailOrUsername reports whether any account already claims the
// email or the username.
func (r *UserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE email = $1 OR username = $2
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email, username).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// FindByIdentifier matches the login identifier against email or username.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users WHERE email = $1 OR username = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, identifier))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// SetRefreshToken overwrites the refresh-token slot, superseding any prior
// session for the user.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id string, hash []byte, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET refresh_token_hash = $2, refresh_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, hash, expiresAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RotateRefreshToken swaps oldHash for newHash in a single statement so two
// concurrent refresh calls cannot both succeed.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id string, oldHash, newHash []byte, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET refresh_token_hash = $3, refresh_expires_at = $4, updated_at = NOW()
		WHERE id = $1 AND refresh_token_hash = $2
	`
	cmd, err := r.pool.Exec(ctx, query, id, oldHash, newHash, expiresAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRefreshTokenMismatch
	}
	return nil
}

// ClearRefreshToken empties the slot. Clearing an already empty slot is not
// an error, which keeps logout idempotent.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET refresh_token_hash = NULL, refresh_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ClearExpiredRefreshTokens empties every slot whose token has outlived its
// expiry. Run periodically by the scheduler.
func (r *UserRepository) ClearExpiredRefreshTokens(ctx context.Context) (int64, error) {
	const query = `
		UPDATE users
		SET refresh_token_hash = NULL, refresh_expires_at = NULL, updated_at = NOW()
		WHERE refresh_expires_at IS NOT NULL AND refresh_expires_at < NOW()
	`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *UserRepository) scanOne(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Fullname,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.CoverURL,
		&user.RefreshTokenHash,
		&user.RefreshExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

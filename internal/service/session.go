package service

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"strings"
	"time"

	"vidtube/api/internal/apperr"
	"vidtube/api/internal/repository"
	"vidtube/api/internal/security"
)

type LoginInput struct {
	Identifier string
	Password   string
}

// Login checks credentials and starts a session. The stored refresh-token
// slot is overwritten, so any previously issued refresh token for the user
// stops working.
func (s *UserService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Identifier = strings.ToLower(strings.TrimSpace(input.Identifier))
	if input.Identifier == "" || input.Password == "" {
		return AuthResult{}, apperr.Validation("identifier and password are required")
	}

	user, err := s.users.FindByIdentifier(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.NotFound("user does not exist")
		}
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, apperr.Authentication("invalid credentials")
	}

	tokens, refreshHash, expiresAt, err := s.issueTokenPair(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, refreshHash, expiresAt); err != nil {
		return AuthResult{}, fmt.Errorf("store refresh token: %w", err)
	}

	s.log.Debug().Str("user_id", user.ID).Msg("login succeeded")

	return AuthResult{
		User:   user.Public(),
		Tokens: tokens,
	}, nil
}

// Logout clears the refresh-token slot. Calling it for a user with no
// active session is not an error.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// Refresh redeems a refresh token for a new pair, rotating the stored slot
// in the same step. A superseded or replayed token fails the equality check
// against the slot; anything unexpected is normalized to an authentication
// failure rather than leaking internals.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if refreshToken == "" {
		return AuthResult{}, apperr.Authentication("refresh token is required")
	}

	userID, err := security.ParseToken(refreshToken, s.cfg.Security.RefreshTokenSecret, security.TokenRefresh)
	if err != nil {
		return AuthResult{}, apperr.Authentication("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.Authentication("invalid refresh token")
		}
		s.log.Error().Err(err).Str("user_id", userID).Msg("refresh lookup failed")
		return AuthResult{}, apperr.Authentication("could not refresh session")
	}

	// Anti-replay: the incoming token must match the one slot exactly. A
	// token superseded by a later login or refresh no longer matches.
	incomingHash := security.HashRefreshToken(refreshToken)
	if user.RefreshTokenHash == nil || !hmac.Equal(incomingHash, user.RefreshTokenHash) {
		return AuthResult{}, apperr.Authentication("refresh token is expired or already used")
	}
	if user.RefreshExpiresAt != nil && user.RefreshExpiresAt.Before(time.Now()) {
		return AuthResult{}, apperr.Authentication("refresh token is expired or already used")
	}

	tokens, newHash, expiresAt, err := s.issueTokenPair(user.ID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("token issue failed")
		return AuthResult{}, apperr.Authentication("could not refresh session")
	}

	// Compare-and-swap on the slot: of two concurrent refresh calls with
	// the same token, exactly one rotation wins.
	if err := s.users.RotateRefreshToken(ctx, user.ID, incomingHash, newHash, expiresAt); err != nil {
		if !errors.Is(err, repository.ErrRefreshTokenMismatch) {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("refresh rotation failed")
		}
		return AuthResult{}, apperr.Authentication("refresh token is expired or already used")
	}

	return AuthResult{
		User:   user.Public(),
		Tokens: tokens,
	}, nil
}

func (s *UserService) issueTokenPair(userID string) (TokenPair, []byte, time.Time, error) {
	sec := s.cfg.Security

	access, err := security.IssueToken(sec.AccessTokenSecret, userID, security.TokenAccess, sec.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, nil, time.Time{}, err
	}

	refresh, err := security.IssueToken(sec.RefreshTokenSecret, userID, security.TokenRefresh, sec.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, nil, time.Time{}, err
	}

	pair := TokenPair{AccessToken: access, RefreshToken: refresh}
	return pair, security.HashRefreshToken(refresh), time.Now().Add(sec.RefreshTokenTTL), nil
}

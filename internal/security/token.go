package security

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token malformed or tampered")
	ErrWrongTokenKind = errors.New("wrong token kind")
)

type SessionClaims struct {
	Kind string `json:"tkn"`
	jwt.RegisteredClaims
}

// IssueToken signs a token of the given kind for userID. Access and refresh
// tokens are signed with different secrets; the kind is embedded so a
// refresh token can never pass as an access token even with a shared key.
func IssueToken(secret string, userID string, kind TokenKind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// Unique jti so two tokens minted in the same second never
			// collide; rotation depends on the new token differing.
			ID: uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature, expiry and kind, and returns the user id
// the token was issued for.
func ParseToken(tokenStr string, secret string, kind TokenKind) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return "", ErrTokenInvalid
	}
	if claims.Kind != string(kind) {
		return "", ErrWrongTokenKind
	}
	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// HashRefreshToken reduces a refresh token to the digest stored on the user
// row; the raw token never touches the database.
func HashRefreshToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

package models

import "time"

// User is the persisted account record. RefreshTokenHash holds the SHA-256
// hash of the single active refresh token, or nil when no session is active.
type User struct {
	ID               string
	Fullname         string
	Email            string
	Username         string
	PasswordHash     []byte
	AvatarURL        string
	CoverURL         string
	RefreshTokenHash []byte
	RefreshExpiresAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PublicUser is the client-facing projection: no password hash, no refresh
// token material.
type PublicUser struct {
	ID        string    `json:"id"`
	Fullname  string    `json:"fullname"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar"`
	CoverURL  string    `json:"coverImage,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Fullname:  u.Fullname,
		Email:     u.Email,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		CoverURL:  u.CoverURL,
		CreatedAt: u.CreatedAt,
	}
}

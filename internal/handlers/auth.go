package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidtube/api/internal/apperr"
	"vidtube/api/internal/middleware"
	"vidtube/api/internal/service"
)

// Register accepts a multipart form: text fields fullname, email, username,
// password plus a required avatar file and an optional coverImage file.
func (h HandlerSet) Register(c *gin.Context) {
	input := service.RegisterInput{
		Fullname: c.PostForm("fullname"),
		Email:    c.PostForm("email"),
		Username: c.PostForm("username"),
		Password: c.PostForm("password"),
	}

	avatar, avatarFile, err := formFile(c, "avatar")
	if err == nil {
		defer avatarFile.Close()
		input.Avatar = avatar
	}

	cover, coverFile, err := formFile(c, "coverImage")
	if err == nil {
		defer coverFile.Close()
		input.Cover = cover
	}

	user, err := h.users.Register(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusCreated, user, "user registered successfully")
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

func (r loginRequest) identifier() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.Username != "":
		return r.Username
	default:
		return r.Email
	}
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("invalid request body"))
		return
	}

	result, err := h.users.Login(c.Request.Context(), service.LoginInput{
		Identifier: req.identifier(),
		Password:   req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.setTokenCookies(c, result.Tokens)

	respond(c, http.StatusOK, gin.H{
		"user":         result.User,
		"accessToken":  result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
	}, "user logged in successfully")
}

func (h HandlerSet) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.Authentication("unauthorized"))
		return
	}

	if err := h.users.Logout(c.Request.Context(), user.ID); err != nil {
		fail(c, err)
		return
	}

	h.clearTokenCookies(c)

	respond(c, http.StatusOK, gin.H{}, "user logged out successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh reads the refresh token from the cookie, falling back to the
// request body.
func (h HandlerSet) Refresh(c *gin.Context) {
	token, _ := c.Cookie(middleware.RefreshTokenCookie)
	if token == "" {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			token = req.RefreshToken
		}
	}

	result, err := h.users.Refresh(c.Request.Context(), token)
	if err != nil {
		fail(c, err)
		return
	}

	h.setTokenCookies(c, result.Tokens)

	respond(c, http.StatusOK, gin.H{
		"accessToken":  result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
	}, "access token refreshed")
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.Authentication("unauthorized"))
		return
	}

	respond(c, http.StatusOK, user.Public(), "current user fetched successfully")
}

// Token cookies are httpOnly always; secure only in production so local
// development over plain http keeps working.
func (h HandlerSet) setTokenCookies(c *gin.Context, tokens service.TokenPair) {
	secure := h.cfg.Production()
	accessMaxAge := int(h.cfg.Security.AccessTokenTTL.Seconds())
	refreshMaxAge := int(h.cfg.Security.RefreshTokenTTL.Seconds())

	c.SetCookie(middleware.AccessTokenCookie, tokens.AccessToken, accessMaxAge, "/", "", secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, tokens.RefreshToken, refreshMaxAge, "/", "", secure, true)
}

func (h HandlerSet) clearTokenCookies(c *gin.Context) {
	secure := h.cfg.Production()
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", "", secure, true)
}

// formFile opens the first file uploaded under the field name.
func formFile(c *gin.Context, field string) (*service.FileUpload, multipart.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Reader:   file,
	}, file, nil
}

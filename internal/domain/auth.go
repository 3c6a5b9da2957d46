package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims: то, что консоль читает из bearer-токена бэкенда.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// LoginRequest: тело POST /auth/login бэкенда.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse: ответ бэкенда на логин.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SessionInfo: публичное описание текущей сессии для UI.
type SessionInfo struct {
	Authenticated bool       `json:"authenticated"`
	Subject       string     `json:"subject,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

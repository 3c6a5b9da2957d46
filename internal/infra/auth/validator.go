package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/anomaly-console/internal/domain"
)

var ErrTokenExpired = errors.New("auth: token expired")

// TokenInspector читает bearer-токен, выданный бэкендом.
// С публичным ключом проверяет подпись RS256, без ключа только разбирает claims:
// окончательное решение о доступе всё равно принимает бэкенд.
type TokenInspector struct {
	publicKey *rsa.PublicKey
	now       func() time.Time
}

func NewTokenInspector(pubKey *rsa.PublicKey) *TokenInspector {
	return &TokenInspector{publicKey: pubKey, now: time.Now}
}

// Inspect возвращает claims токена. Просроченный токен: ErrTokenExpired.
func (v *TokenInspector) Inspect(tokenStr string) (*domain.SessionClaims, error) {
	tokenStr = strings.TrimPrefix(tokenStr, "Bearer ")
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, errors.New("auth: empty token")
	}

	claims := &domain.SessionClaims{}
	if v.publicKey == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
			return nil, fmt.Errorf("auth: malformed token: %w", err)
		}
	} else {
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.publicKey, nil
		}, jwt.WithTimeFunc(v.now))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if err != nil || !token.Valid {
			return nil, fmt.Errorf("auth: invalid token: %w", err)
		}
	}

	if claims.ExpiresAt != nil && !v.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// ParseRSAPublicKey превращает PEM в ключ для проверки подписи.
// Пустые данные: не ошибка: инспектор работает без проверки подписи.
func ParseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	if len(data) == 0 {
		return nil, nil
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return key, nil
}

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/xela07ax/anomaly-console/internal/domain"
	"go.uber.org/zap"
)

// SessionContext: явный контекст сессии: откуда клиент бэкенда берёт токен.
type SessionContext struct {
	store     TokenStore
	inspector *TokenInspector
	logger    *zap.Logger
}

func NewSessionContext(store TokenStore, inspector *TokenInspector, logger *zap.Logger) *SessionContext {
	return &SessionContext{store: store, inspector: inspector, logger: logger.Named("session")}
}

// Token возвращает текущий токен. Просроченный токен удаляется, как при логауте.
func (s *SessionContext) Token(ctx context.Context) string {
	token, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("token store unavailable", zap.Error(err))
		return ""
	}
	if token == "" {
		return ""
	}
	if _, err := s.inspector.Inspect(token); errors.Is(err, ErrTokenExpired) {
		s.logger.Info("session token expired, dropping")
		_ = s.store.Delete(ctx)
		return ""
	}
	return token
}

func (s *SessionContext) Set(ctx context.Context, token string) error {
	return s.store.Save(ctx, token)
}

func (s *SessionContext) Clear(ctx context.Context) error {
	return s.store.Delete(ctx)
}

// Info описывает сессию для UI. Нечитаемый токен считается анонимным, но отправляется как есть.
func (s *SessionContext) Info(ctx context.Context) domain.SessionInfo {
	token := s.Token(ctx)
	if token == "" {
		return domain.SessionInfo{}
	}
	info := domain.SessionInfo{Authenticated: true}
	claims, err := s.inspector.Inspect(token)
	if err != nil {
		s.logger.Debug("session token not inspectable", zap.Error(err))
		return info
	}
	info.Subject = claims.Subject
	if info.Subject == "" {
		info.Subject = claims.Email
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time.UTC().Truncate(time.Second)
		info.ExpiresAt = &exp
	}
	return info
}

package service

import (
	"context"
	"net/http"
	"time"

	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/infra"
	"github.com/xela07ax/anomaly-console/internal/infra/auth"
	"github.com/xela07ax/anomaly-console/internal/journal"
	"go.uber.org/zap"
)

// ErrLoginTransport: бэкенд недоступен при логине.
var ErrLoginTransport = &LoginError{Message: "Request failed. Try again."}

// LoginError: бэкенд отказал; Message показывается оператору как есть.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string { return e.Message }

// LoginAPI: обмен логина на токен бэкенда.
type LoginAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.TokenResponse, error)
}

// SessionService держит токен консоли: логин делегирован бэкенду, пароли здесь не хранятся.
type SessionService struct {
	api       LoginAPI
	session   *auth.SessionContext
	journal   journal.Recorder
	publisher Publisher
	detail    func(error) (string, int)
	logger    *zap.Logger
}

// NewSessionService. detail извлекает из ошибки бэкенда пояснение и HTTP-статус (0: транспорт).
func NewSessionService(api LoginAPI, session *auth.SessionContext, rec journal.Recorder, publisher Publisher, detail func(error) (string, int), logger *zap.Logger) *SessionService {
	return &SessionService{
		api:       api,
		session:   session,
		journal:   rec,
		publisher: publisher,
		detail:    detail,
		logger:    logger.Named("session-service"),
	}
}

func (s *SessionService) Login(ctx context.Context, req domain.LoginRequest) (domain.SessionInfo, error) {
	start := time.Now()
	entry := journal.Entry{
		TraceID:  infra.TraceID(ctx),
		Operator: req.Email,
		Action:   journal.ActionLogin,
		Status:   journal.StatusSuccess,
	}
	defer func() {
		entry.DurationMs = time.Since(start).Milliseconds()
		s.journal.Log(entry)
	}()

	resp, err := s.api.Login(ctx, req)
	if err != nil {
		entry.Status = journal.StatusFailed
		entry.Error = err.Error()
		s.logger.Warn("login failed", zap.String("email", req.Email), zap.Error(err))

		detail, status := s.detail(err)
		if status == 0 {
			return domain.SessionInfo{}, ErrLoginTransport
		}
		if detail == "" {
			detail = http.StatusText(status)
		}
		return domain.SessionInfo{}, &LoginError{Message: detail}
	}

	if err := s.session.Set(ctx, resp.AccessToken); err != nil {
		entry.Status = journal.StatusFailed
		entry.Error = err.Error()
		return domain.SessionInfo{}, err
	}

	info := s.session.Info(ctx)
	s.logger.Info("operator logged in", zap.String("subject", info.Subject))
	s.publisher.Publish(TopicSession, info)
	return info, nil
}

// Logout удаляет токен. Запросы в полёте дорабатывают со старым токеном.
func (s *SessionService) Logout(ctx context.Context) error {
	operator := auth.Operator(ctx)
	if err := s.session.Clear(ctx); err != nil {
		return err
	}
	s.journal.Log(journal.Entry{
		TraceID:  infra.TraceID(ctx),
		Operator: operator,
		Action:   journal.ActionLogout,
		Status:   journal.StatusSuccess,
	})
	s.publisher.Publish(TopicSession, domain.SessionInfo{})
	return nil
}

func (s *SessionService) Info(ctx context.Context) domain.SessionInfo {
	return s.session.Info(ctx)
}

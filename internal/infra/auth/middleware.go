package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type ctxKey struct{}

// Operator возвращает оператора, которого middleware положил в контекст.
func Operator(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return "anonymous"
}

// WithOperator кладёт оператора в контекст.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, ctxKey{}, operator)
}

// NewMiddleware прокидывает субъекта текущей сессии в контекст запроса для журнала.
// Запрос не блокирует: доступ к данным проверяет бэкенд.
func NewMiddleware(s *SessionContext, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := s.Info(r.Context())
			ctx := r.Context()
			if info.Subject != "" {
				ctx = WithOperator(ctx, info.Subject)
			} else if info.Authenticated {
				ctx = WithOperator(ctx, "operator")
			}
			logger.Debug("request session", zap.Bool("authenticated", info.Authenticated))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

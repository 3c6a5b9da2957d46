package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/xela07ax/anomaly-console/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrRateLimited: лимитер не дал токен до истечения контекста.
var ErrRateLimited = errors.New("backend: rate limit exceeded")

// GuardSettings: параметры предохранителя и лимитера.
type GuardSettings struct {
	Name        string
	RateLimit   float64
	RateBurst   int
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	Failures    uint32
}

// Guard защищает исходящие вызовы: лимитер, затем Circuit Breaker.
// Ретраев нет: каждая ошибка терминальна для попытки.
type Guard struct {
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewGuard(s GuardSettings, metrics *telemetry.Metrics, logger *zap.Logger) *Guard {
	state := metrics.CircuitBreakerState.WithLabelValues(s.Name)
	state.Set(0)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.Failures
		},
		// 4xx: ответ бэкенда по существу, предохранитель он не выбивает
		IsSuccessful: func(err error) bool {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				return httpErr.Status < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if to == gobreaker.StateOpen {
				state.Set(1)
			} else {
				state.Set(0)
			}
		},
	})

	return &Guard{
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(s.RateLimit), s.RateBurst),
	}
}

// Do выполняет вызов под защитой. Ошибка вызова возвращается как есть.
func (g *Guard) Do(ctx context.Context, call func() error) error {
	// 1. Rate Limiter
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	// 2. Circuit Breaker
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, call()
	})
	return err
}

// State: текущее состояние предохранителя.
func (g *Guard) State() gobreaker.State {
	return g.cb.State()
}

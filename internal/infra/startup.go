package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"
)

// WaitReady дожидается доступности инфраструктурной зависимости (Redis, Postgres) при старте.
// Это единственное место с повторными попытками: вызовы бэкенда из UI-потока не ретраятся.
func WaitReady(ctx context.Context, logger *zap.Logger, name string, attempts uint, ping func(ctx context.Context) error) error {
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
			logger.Warn("dependency not ready", zap.String("dep", name), zap.Uint("attempt", n+1), zap.Error(err))
			return retry.BackOffDelay(n, err, config)
		}),
	)

	err := r.Do(func() error {
		pCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return ping(pCtx)
	})
	if err != nil {
		return fmt.Errorf("%s unreachable: %w", name, err)
	}
	logger.Info("dependency ready", zap.String("dep", name))
	return nil
}

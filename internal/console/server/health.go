package server

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// FeedServiceName: имя сервиса в gRPC health: живое соединение с бэкендом.
const FeedServiceName = "anomaly-console.feed"

// FeedStatus сообщает, держит ли консоль живое соединение.
type FeedStatus interface {
	Connected() bool
}

// HealthServer: стандартный grpc.health.v1 для оркестратора.
// Пустое имя сервиса означает, что процесс жив. FeedServiceName: лента подключена.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	feed   FeedStatus
	logger *zap.Logger
}

func NewHealthServer(feed FeedStatus, logger *zap.Logger) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(FeedServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &HealthServer{grpc: srv, health: hs, feed: feed, logger: logger.Named("grpc-health")}
}

// Server: нижележащий grpc.Server для Serve/GracefulStop.
func (h *HealthServer) Server() *grpc.Server {
	return h.grpc
}

// Watch синхронизирует статус ленты с состоянием соединения.
func (h *HealthServer) Watch(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_NOT_SERVING
	for {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if h.feed.Connected() {
			status = healthpb.HealthCheckResponse_SERVING
		}
		if status != last {
			h.logger.Info("feed health changed", zap.String("status", status.String()))
			last = status
		}
		h.health.SetServingStatus(FeedServiceName, status)

		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

// Check: локальная проверка статуса без сети.
func (h *HealthServer) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}

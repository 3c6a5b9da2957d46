package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/anomaly-console/internal/backend"
	"github.com/xela07ax/anomaly-console/internal/console/handler"
	"github.com/xela07ax/anomaly-console/internal/console/server"
	"github.com/xela07ax/anomaly-console/internal/console/service"
	"github.com/xela07ax/anomaly-console/internal/console/stream"
	"github.com/xela07ax/anomaly-console/internal/drilldown"
	"github.com/xela07ax/anomaly-console/internal/feed"
	"github.com/xela07ax/anomaly-console/internal/infra"
	"github.com/xela07ax/anomaly-console/internal/infra/auth"
	"github.com/xela07ax/anomaly-console/internal/journal"
	"github.com/xela07ax/anomaly-console/internal/repository/postgres"
	"github.com/xela07ax/anomaly-console/internal/telemetry"
)

const journalMemoryLimit = 500

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Контекст жизненного цикла фоновых горутин; SIGTERM отменяет его
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	// 3. Инфраструктура: Redis нужен только для redis-сессии и relay-ленты
	var rdb *redis.Client
	if cfg.Session.Store == "redis" || cfg.Feed.Transport == "redis" || cfg.Feed.Republish {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := infra.WaitReady(appCtx, logger, "redis", 5, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}); err != nil {
			logger.Fatal("startup failed", zap.Error(err))
		}
	}

	// Журнал: Postgres, если настроен, иначе память + лог
	var journalStorage journal.Storage = journal.NewMemoryStorage(journalMemoryLimit, logger)
	if cfg.Database.URL != "" {
		repo, err := postgres.NewJournalRepo(cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			logger.Fatal("journal repo", zap.Error(err))
		}
		defer repo.Close()
		if err := infra.WaitReady(appCtx, logger, "postgres", 5, repo.Ping); err != nil {
			logger.Fatal("startup failed", zap.Error(err))
		}
		if err := repo.EnsureSchema(appCtx); err != nil {
			logger.Fatal("journal schema", zap.Error(err))
		}
		journalStorage = repo
	}
	jrnl := journal.NewJournal(journalStorage, metrics, logger)
	jrnl.Start()

	// 4. Сессия и клиент бэкенда
	pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("auth public key", zap.Error(err))
	}
	var tokens auth.TokenStore = auth.NewMemoryTokenStore()
	if cfg.Session.Store == "redis" {
		tokens = auth.NewRedisTokenStore(rdb, infra.RedisKeySessionToken)
	}
	session := auth.NewSessionContext(tokens, auth.NewTokenInspector(pubKey), logger)

	guard := backend.NewGuard(backend.GuardSettings{
		Name:        "detection-backend",
		RateLimit:   cfg.Backend.RateLimit,
		RateBurst:   cfg.Backend.RateBurst,
		MaxRequests: cfg.Backend.CBMaxRequests,
		Interval:    cfg.Backend.CBInterval,
		Timeout:     cfg.Backend.CBTimeout,
		Failures:    cfg.Backend.CBFailures,
	}, metrics, logger)
	api := backend.NewClient(cfg.Backend.BaseURL, &http.Client{Timeout: cfg.Backend.Timeout}, session, guard, metrics, logger)

	// 5. Состояние и сервисы
	hub := stream.NewHub(metrics, logger)
	go hub.Run(appCtx)

	store := feed.NewStore(cfg.Feed.Capacity)
	board := service.NewBoard()
	ctrl := drilldown.NewController(backend.Detail, metrics, logger)

	liveSvc := service.NewLiveService(store, board, hub, metrics, logger)
	dashSvc := service.NewDashboardService(api, board, store, hub, logger)
	drillSvc := service.NewDrilldownService(api, board, ctrl, jrnl, hub, logger)
	actionSvc := service.NewActionService(api, ctrl, board, hub, jrnl, logger)
	sessionSvc := service.NewSessionService(api, session, jrnl, hub, backend.Failure, logger)
	txSvc := service.NewTransactionService(api, backend.Failure, logger)
	exportSvc := service.NewExportService(api, jrnl, backend.Failure, logger)

	// 6. Живая лента: одно соединение, подписка внедряется снаружи
	var source feed.Source
	switch cfg.Feed.Transport {
	case "redis":
		source = feed.NewRedisRelay(rdb, cfg.Feed.RedisChannel, logger)
	default:
		source = feed.NewSocket(cfg.Backend.WSURL, nil, logger)
	}
	unsubscribe := source.Subscribe(liveSvc)
	defer unsubscribe()
	if cfg.Feed.Republish && cfg.Feed.Transport == "websocket" {
		// Реплики консоли читают эти кадры через feed.transport=redis
		unsubscribeRelay := source.Subscribe(feed.NewRepublisher(rdb, cfg.Feed.RedisChannel, logger))
		defer unsubscribeRelay()
	}
	go func() {
		if err := source.Run(appCtx); err != nil {
			// Баннер уже выставлен, переподключения нет
			logger.Error("live feed stopped", zap.Error(err))
		}
	}()

	go dashSvc.Poll(appCtx, cfg.Poll.Interval)

	// 7. HTTP
	consoleSrv := server.NewConsoleServer(
		logger,
		session,
		handler.NewDashboardHandler(dashSvc, actionSvc),
		handler.NewDrilldownHandler(drillSvc),
		handler.NewActionHandler(actionSvc),
		handler.NewAuthHandler(sessionSvc),
		handler.NewJournalHandler(jrnl),
		handler.NewTransactionHandler(txSvc),
		handler.NewExportHandler(exportSvc),
		handler.NewStreamHandler(hub, logger),
	)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      consoleSrv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Экспортируем метрики для Prometheus
	metricsSrv := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	// gRPC health для оркестратора
	healthSrv := server.NewHealthServer(source, logger)
	go healthSrv.Watch(appCtx, 5*time.Second)
	go func() {
		lis, err := net.Listen("tcp", cfg.GRPC.HealthAddr)
		if err != nil {
			logger.Fatal("failed to listen gRPC", zap.Error(err))
		}
		logger.Info("gRPC health started", zap.String("addr", cfg.GRPC.HealthAddr))
		if err := healthSrv.Server().Serve(lis); err != nil {
			logger.Error("gRPC health stopped", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("console started", zap.String("addr", srv.Addr), zap.String("backend", cfg.Backend.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// 8. Graceful Shutdown
	<-appCtx.Done()
	logger.Info("console stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(shutdownCtx)
	healthSrv.Server().GracefulStop()
	_ = source.Close()
	ctrl.Shutdown()
	jrnl.Stop()
	logger.Info("console exited properly")
}

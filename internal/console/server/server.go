package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/anomaly-console/internal/console/handler"
	"github.com/xela07ax/anomaly-console/internal/infra"
	"github.com/xela07ax/anomaly-console/internal/infra/auth"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router  *chi.Mux
	logger  *zap.Logger
	session *auth.SessionContext

	// Обработчики
	dashHandler      *handler.DashboardHandler   // /, /fragments, /api/v1/{events,kpis,charts,panels}
	drilldownHandler *handler.DrilldownHandler   // /api/v1/drilldowns/{kind}
	actionHandler    *handler.ActionHandler      // /api/v1/actions/{name}
	authHandler      *handler.AuthHandler        // /session
	journalHandler   *handler.JournalHandler     // /api/v1/journal
	txHandler        *handler.TransactionHandler // /api/v1/transactions
	exportHandler    *handler.ExportHandler      // /api/v1/exports/{kind}
	streamHandler    *handler.StreamHandler      // /ws
}

// NewConsoleServer инициализирует сервер консоли со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	session *auth.SessionContext,
	dashH *handler.DashboardHandler,
	drilldownH *handler.DrilldownHandler,
	actionH *handler.ActionHandler,
	authH *handler.AuthHandler,
	journalH *handler.JournalHandler,
	txH *handler.TransactionHandler,
	exportH *handler.ExportHandler,
	streamH *handler.StreamHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:           chi.NewRouter(),
		logger:           logger.Named("console-api"),
		session:          session,
		dashHandler:      dashH,
		drilldownHandler: drilldownH,
		actionHandler:    actionH,
		authHandler:      authH,
		journalHandler:   journalH,
		txHandler:        txH,
		exportHandler:    exportH,
		streamHandler:    streamH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(infra.TracingMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// --- 2. Всё остальное знает оператора сессии (для журнала) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.session, s.logger))

		// Страница и HTML-фрагменты
		r.Get("/", s.dashHandler.Page)
		r.Route("/fragments", func(r chi.Router) {
			r.Get("/feed", s.dashHandler.FeedFragment)
			r.Get("/anomalies", s.dashHandler.AnomaliesFragment)
			r.Get("/summary", s.dashHandler.SummaryFragment)
			r.Get("/banner", s.dashHandler.BannerFragment)
			r.Get("/modal/{kind}", s.drilldownHandler.ModalFragment)
			r.Get("/widget/{name}", s.actionHandler.WidgetFragment)
			r.Get("/transactions", s.txHandler.Fragment)
		})

		// JSON API
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/events", s.dashHandler.Events)
			r.Get("/kpis", s.dashHandler.KPIs)
			r.Get("/charts", s.dashHandler.Charts)
			r.Get("/panels", s.dashHandler.Panels)

			r.Route("/drilldowns/{kind}", func(r chi.Router) {
				r.Get("/", s.drilldownHandler.Get)
				r.Post("/", s.drilldownHandler.Open)
				r.Delete("/", s.drilldownHandler.Close)
			})

			r.Get("/actions", s.actionHandler.List)
			r.Route("/actions/{name}", func(r chi.Router) {
				r.Get("/", s.actionHandler.Get)
				r.Post("/", s.actionHandler.Run)
			})

			r.Get("/transactions", s.txHandler.List)
			r.Get("/exports/{kind}", s.exportHandler.Download)

			r.Get("/journal", s.journalHandler.Recent)
		})

		// Сессия оператора (логин делегирован бэкенду)
		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.authHandler.Info)
			r.Post("/login", s.authHandler.Login)
			r.Delete("/", s.authHandler.Logout)
		})

		// Push-канал браузеров
		r.Get("/ws", s.streamHandler.Serve)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

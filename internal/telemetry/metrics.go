package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Лента: сколько кадров принято (по типу события) и сколько отброшено как битые
	FramesReceived *prometheus.CounterVec
	FramesDropped  prometheus.Counter
	StoreSize      prometheus.Gauge

	// Детализация: время до результата и отброшенные устаревшие ответы
	DrilldownDuration *prometheus.HistogramVec
	DrilldownStale    *prometheus.CounterVec

	// Бэкенд: трафик и классификация отказов
	BackendRequests *prometheus.CounterVec
	BackendErrors   *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - выбило)
	CircuitBreakerState *prometheus.GaugeVec

	// Журнал: заполненность буфера (backpressure)
	JournalBufferFill prometheus.Gauge

	// Браузеры, подписанные на push-канал
	BrowserClients prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		FramesReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "console_frames_received_total",
			Help: "Live feed frames accepted into the event store.",
		}, []string{"type"}),

		FramesDropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "console_frames_dropped_total",
			Help: "Live feed frames discarded because they could not be parsed.",
		}),

		StoreSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "console_event_store_size",
			Help: "Current number of events held in the event store.",
		}),

		DrilldownDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_drilldown_duration_seconds",
			Help:    "Time from drilldown trigger to settled state.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"kind", "outcome"}),

		DrilldownStale: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "console_drilldown_stale_total",
			Help: "Drilldown responses dropped because a newer request or a close superseded them.",
		}, []string{"kind"}),

		BackendRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "console_backend_requests_total",
			Help: "Requests sent to the detection backend.",
		}, []string{"method", "code"}),

		BackendErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "console_backend_errors_total",
			Help: "Backend failures by type.",
		}, []string{"type"}), // типы: transport, http, decode, breaker, rate_limit

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "console_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=open).",
		}, []string{"breaker"}),

		JournalBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "console_journal_buffer_utilization",
			Help: "Current number of entries waiting in the journal buffer.",
		}),

		BrowserClients: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "console_browser_clients",
			Help: "Browsers connected to the push channel.",
		}),
	}
}

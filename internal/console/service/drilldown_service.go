package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/drilldown"
	"github.com/xela07ax/anomaly-console/internal/infra"
	"github.com/xela07ax/anomaly-console/internal/infra/auth"
	"github.com/xela07ax/anomaly-console/internal/journal"
	"go.uber.org/zap"
)

var (
	ErrUnknownKind        = errors.New("unknown drilldown kind")
	ErrAlertGroupNotFound = errors.New("alert group not found")
)

// AlertSource: последние группы коррелированных алертов из опроса.
type AlertSource interface {
	Alerts() []domain.AlertGroup
}

// DetailAPI: запросы деталей для модальных окон.
type DetailAPI interface {
	Transaction(ctx context.Context, id string) ([]byte, error)
	TriggerIncident(ctx context.Context) ([]byte, error)
	ComplianceViolation(ctx context.Context) ([]byte, error)
}

// Modal: статическое описание модального окна.
type Modal struct {
	Kind    domain.DrilldownKind
	Title   string
	Noun    string // для "No <noun> data found."
	Failure string
}

var modals = map[domain.DrilldownKind]Modal{
	domain.DrilldownAnomaly: {
		Kind: domain.DrilldownAnomaly, Title: "Anomaly Details", Noun: "anomaly",
		Failure: "Failed to fetch anomaly details",
	},
	domain.DrilldownIncident: {
		Kind: domain.DrilldownIncident, Title: "Incident Details", Noun: "incident",
		Failure: "Failed to fetch incident details",
	},
	domain.DrilldownViolation: {
		Kind: domain.DrilldownViolation, Title: "Compliance Violation Details", Noun: "violation",
		Failure: "Failed to fetch compliance violation details",
	},
	domain.DrilldownAlert: {
		Kind: domain.DrilldownAlert, Title: "Correlated Alert Details", Noun: "alert group",
		Failure: "Failed to load correlated alert details",
	},
}

// ModalFor возвращает описание окна по виду.
func ModalFor(kind domain.DrilldownKind) (Modal, bool) {
	m, ok := modals[kind]
	return m, ok
}

type DrilldownService struct {
	api     DetailAPI
	alerts  AlertSource
	ctrl    *drilldown.Controller
	journal journal.Recorder
	logger  *zap.Logger
}

// NewDrilldownService подписывает браузеры на переходы всех слотов контроллера.
func NewDrilldownService(api DetailAPI, alerts AlertSource, ctrl *drilldown.Controller, rec journal.Recorder, publisher Publisher, logger *zap.Logger) *DrilldownService {
	ctrl.Observe(func(st domain.DrilldownState) {
		publisher.Publish(TopicDrilldown, st)
	})
	return &DrilldownService{
		api:     api,
		alerts:  alerts,
		ctrl:    ctrl,
		journal: rec,
		logger:  logger.Named("drilldown-service"),
	}
}

// Open открывает окно сразу, детали догружаются асинхронно.
// Пустой target не отсекается: запрос уходит как есть.
func (s *DrilldownService) Open(ctx context.Context, kind domain.DrilldownKind, target string) (drilldown.Ticket, error) {
	m, ok := modals[kind]
	if !ok {
		return drilldown.Ticket{}, ErrUnknownKind
	}

	var fetch drilldown.Fetcher
	switch kind {
	case domain.DrilldownAnomaly:
		fetch = func(ctx context.Context) ([]byte, error) { return s.api.Transaction(ctx, target) }
	case domain.DrilldownIncident:
		fetch = s.api.TriggerIncident
	case domain.DrilldownViolation:
		fetch = s.api.ComplianceViolation
	case domain.DrilldownAlert:
		fetch = func(context.Context) ([]byte, error) { return s.alertGroup(target) }
	}

	s.logger.Debug("drilldown opened", zap.String("kind", string(kind)), zap.String("target", target))
	return s.ctrl.Open(drilldown.Request{
		Kind:    kind,
		Target:  target,
		Failure: m.Failure,
		Fetch:   journaled(ctx, s.journal, journal.ActionDrilldownOpen, string(kind), target, fetch),
	}), nil
}

// alertGroupDetail: тело окна группы алертов, поля в порядке показа.
type alertGroupDetail struct {
	Customer  string                `json:"customer"`
	Type      string                `json:"type"`
	Window    string                `json:"window"`
	Total     int                   `json:"total_anomalies"`
	Anomalies []domain.AlertAnomaly `json:"anomalies"`
}

// alertGroup берёт группу из последнего опроса: отдельного запроса к бэкенду нет.
func (s *DrilldownService) alertGroup(key string) ([]byte, error) {
	for _, g := range s.alerts.Alerts() {
		if g.Key() != key {
			continue
		}
		anomalies := g.Anomalies
		if anomalies == nil {
			anomalies = []domain.AlertAnomaly{}
		}
		return json.Marshal(alertGroupDetail{
			Customer:  g.CustomerID,
			Type:      g.Type,
			Window:    g.StartTime + " - " + g.EndTime,
			Total:     g.Count,
			Anomalies: anomalies,
		})
	}
	return nil, ErrAlertGroupNotFound
}

// OpenEvent: клик по строке аномалии в ленте.
func (s *DrilldownService) OpenEvent(ctx context.Context, e domain.Event) (drilldown.Ticket, error) {
	return s.Open(ctx, domain.DrilldownAnomaly, e.DrilldownTarget())
}

func (s *DrilldownService) Close(ctx context.Context, kind domain.DrilldownKind) (domain.DrilldownState, error) {
	if _, ok := modals[kind]; !ok {
		return domain.DrilldownState{}, ErrUnknownKind
	}
	st := s.ctrl.Close(kind)
	s.journal.Log(journal.Entry{
		TraceID:  infra.TraceID(ctx),
		Operator: auth.Operator(ctx),
		Action:   journal.ActionDrilldownClose,
		Kind:     string(kind),
		Status:   journal.StatusSuccess,
	})
	return st, nil
}

func (s *DrilldownService) State(kind domain.DrilldownKind) (domain.DrilldownState, error) {
	if _, ok := modals[kind]; !ok {
		return domain.DrilldownState{}, ErrUnknownKind
	}
	return s.ctrl.State(kind), nil
}

// journaled оборачивает запрос записью в журнал. Трассировка и оператор берутся
// из запроса, который открыл окно: сам fetch живёт дольше него.
func journaled(origin context.Context, rec journal.Recorder, action, kind, target string, fetch drilldown.Fetcher) drilldown.Fetcher {
	traceID := infra.TraceID(origin)
	operator := auth.Operator(origin)
	return func(ctx context.Context) ([]byte, error) {
		start := time.Now()
		body, err := fetch(ctx)
		entry := journal.Entry{
			TraceID:    traceID,
			Operator:   operator,
			Action:     action,
			Kind:       kind,
			Target:     target,
			Status:     journal.StatusSuccess,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			entry.Status = journal.StatusFailed
			entry.Error = err.Error()
		}
		rec.Log(entry)
		return body, err
	}
}

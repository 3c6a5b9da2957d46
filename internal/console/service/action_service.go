package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/drilldown"
	"github.com/xela07ax/anomaly-console/internal/infra"
	"github.com/xela07ax/anomaly-console/internal/infra/auth"
	"github.com/xela07ax/anomaly-console/internal/journal"
	"go.uber.org/zap"
)

var ErrUnknownAction = errors.New("unknown action")

// Caller: сырой вызов бэкенда.
type Caller interface {
	Do(ctx context.Context, method, path string, body any) ([]byte, error)
}

// Widget: форма с параметрами; результат показывается как ключ/значение.
type Widget struct {
	Name     string         `json:"name"`
	Title    string         `json:"title"`
	Path     string         `json:"path"`
	Failure  string         `json:"-"`
	Defaults map[string]any `json:"defaults"`
}

// Command: кнопка без формы: успех убирает баннер, ошибка ставит свой.
type Command struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Failure string `json:"-"`
}

var widgets = []Widget{
	{Name: "market_data", Title: "Market Data", Path: "/enterprise/integration/market_data",
		Failure: "Failed to fetch market data", Defaults: map[string]any{"symbol": "AAPL"}},
	{Name: "portfolio_risk", Title: "Portfolio Risk", Path: "/enterprise/integration/risk_aggregation",
		Failure: "Failed to fetch risk data", Defaults: map[string]any{"portfolio_id": "PORT-001"}},
	{Name: "compliance_check", Title: "Compliance Check", Path: "/enterprise/compliance/compliance_check",
		Failure: "Failed to check compliance", Defaults: map[string]any{"account_id": "ACC-001", "rule": "SEC_17a-4"}},
	{Name: "verify_account", Title: "Account Verification", Path: "/enterprise/integration/verify_account",
		Failure: "Verification failed", Defaults: map[string]any{"account_id": "ACC-1001"}},
	{Name: "validate_transaction", Title: "Transaction Validation", Path: "/enterprise/integration/validate_transaction",
		Failure: "Validation failed", Defaults: map[string]any{"account_id": "ACC-1001", "amount": 1000}},
	{Name: "regulatory_report", Title: "Regulatory Report", Path: "/enterprise/integration/regulatory_report",
		Failure: "Report generation failed", Defaults: map[string]any{"report_type": "SEC_17a-4"}},
}

var commands = []Command{
	{Name: "trigger_incident", Title: "Trigger Incident", Path: "/enterprise/automation/trigger-incident",
		Failure: "Failed to trigger incident"},
	{Name: "generate_report", Title: "Generate Compliance Report", Path: "/enterprise/compliance/generate-report",
		Failure: "Failed to generate compliance report"},
	{Name: "simulate_integration", Title: "Simulate Integration Event", Path: "/enterprise/integration/simulate-event",
		Failure: "Failed to simulate integration event"},
	{Name: "simulate_stream", Title: "Simulate Stream Event", Path: "/enterprise/streaming/simulate-event",
		Failure: "Failed to simulate stream event"},
}

// ActionService запускает виджеты и командные кнопки дашборда.
type ActionService struct {
	api       Caller
	ctrl      *drilldown.Controller
	board     *Board
	publisher Publisher
	journal   journal.Recorder
	widgets   map[string]Widget
	commands  map[string]Command
	logger    *zap.Logger
}

func NewActionService(api Caller, ctrl *drilldown.Controller, board *Board, publisher Publisher, rec journal.Recorder, logger *zap.Logger) *ActionService {
	s := &ActionService{
		api:       api,
		ctrl:      ctrl,
		board:     board,
		publisher: publisher,
		journal:   rec,
		widgets:   make(map[string]Widget, len(widgets)),
		commands:  make(map[string]Command, len(commands)),
		logger:    logger.Named("action-service"),
	}
	for _, w := range widgets {
		s.widgets[w.Name] = w
	}
	for _, c := range commands {
		s.commands[c.Name] = c
	}
	return s
}

// Widgets: виджеты в порядке отображения.
func (s *ActionService) Widgets() []Widget {
	return append([]Widget(nil), widgets...)
}

func (s *ActionService) Commands() []Command {
	return append([]Command(nil), commands...)
}

// RunWidget отправляет форму виджета. Неизвестные параметры игнорируются,
// отсутствующие берутся из значений по умолчанию; пустые строки уходят как есть.
func (s *ActionService) RunWidget(ctx context.Context, name string, params map[string]any) (drilldown.Ticket, error) {
	w, ok := s.widgets[name]
	if !ok {
		return drilldown.Ticket{}, ErrUnknownAction
	}
	body := make(map[string]any, len(w.Defaults))
	for k, def := range w.Defaults {
		body[k] = def
		if v, ok := params[k]; ok {
			body[k] = v
		}
	}

	kind := domain.WidgetKind(name)
	fetch := func(ctx context.Context) ([]byte, error) {
		return s.api.Do(ctx, http.MethodPost, w.Path, body)
	}
	return s.ctrl.Open(drilldown.Request{
		Kind:    kind,
		Target:  targetOf(body),
		Failure: w.Failure,
		Fetch:   journaled(ctx, s.journal, journal.ActionWidget, string(kind), targetOf(body), fetch),
	}), nil
}

func (s *ActionService) WidgetState(name string) (domain.DrilldownState, error) {
	if _, ok := s.widgets[name]; !ok {
		return domain.DrilldownState{}, ErrUnknownAction
	}
	return s.ctrl.State(domain.WidgetKind(name)), nil
}

// RunCommand выполняет команду синхронно. Ошибка отражается баннером.
func (s *ActionService) RunCommand(ctx context.Context, name string) error {
	c, ok := s.commands[name]
	if !ok {
		return ErrUnknownAction
	}
	fetch := journaled(ctx, s.journal, journal.ActionWidget, c.Name, "", func(ctx context.Context) ([]byte, error) {
		return s.api.Do(ctx, http.MethodPost, c.Path, nil)
	})
	if _, err := fetch(ctx); err != nil {
		s.logger.Warn("command failed",
			zap.String("command", name),
			zap.String("trace_id", infra.TraceID(ctx)),
			zap.String("operator", auth.Operator(ctx)),
			zap.Error(err))
		s.board.SetBanner(c.Failure)
		s.publisher.Publish(TopicBanner, c.Failure)
		return errors.New(c.Failure)
	}
	s.board.ClearBanner()
	s.publisher.Publish(TopicBanner, "")
	return nil
}

// targetOf: значения формы одной строкой для журнала, в стабильном порядке ключей.
func targetOf(body map[string]any) string {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, body[k])
	}
	return b.String()
}

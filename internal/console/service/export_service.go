package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/infra"
	"github.com/xela07ax/anomaly-console/internal/infra/auth"
	"github.com/xela07ax/anomaly-console/internal/journal"
	"go.uber.org/zap"
)

var ErrUnknownExport = errors.New("unknown export")

// ExportError: выгрузка не удалась; Message показывается оператору.
type ExportError struct {
	Message string
	Status  int // HTTP-статус бэкенда, 0: ответа не было
}

func (e *ExportError) Error() string { return e.Message }

// ExportAPI: источники выгрузок.
type ExportAPI interface {
	ExportTransactions(ctx context.Context, format domain.ExportKind, r domain.DateRange) ([]byte, error)
	AlertCorrelationRaw(ctx context.Context) (json.RawMessage, error)
	SLAMetricsRaw(ctx context.Context) (json.RawMessage, error)
}

type exportFormat struct {
	title       string
	filename    string
	contentType string
	failure     string
}

var exports = map[domain.ExportKind]exportFormat{
	domain.ExportCSV:    {"Export CSV", "transactions.csv", "text/csv", "Download failed. Try again."},
	domain.ExportPDF:    {"Export PDF", "transactions.pdf", "application/pdf", "Download failed. Try again."},
	domain.ExportAlerts: {"Export Alerts", "correlated_alerts.json", "application/json", "Export alerts failed"},
	domain.ExportSLA:    {"Export SLA", "sla_metrics.json", "application/json", "Export SLA failed"},
}

// ExportOption: кнопка выгрузки на странице.
type ExportOption struct {
	Kind  domain.ExportKind
	Title string
}

// ExportOptions в порядке кнопок на странице.
func ExportOptions() []ExportOption {
	kinds := []domain.ExportKind{domain.ExportCSV, domain.ExportPDF, domain.ExportAlerts, domain.ExportSLA}
	out := make([]ExportOption, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, ExportOption{Kind: k, Title: exports[k].title})
	}
	return out
}

type ExportService struct {
	api     ExportAPI
	journal journal.Recorder
	detail  func(error) (string, int)
	logger  *zap.Logger
}

func NewExportService(api ExportAPI, rec journal.Recorder, detail func(error) (string, int), logger *zap.Logger) *ExportService {
	return &ExportService{api: api, journal: rec, detail: detail, logger: logger.Named("export-service")}
}

// Export готовит файл. Транзакции фильтруются периодом, алерты и SLA выгружаются целиком.
func (s *ExportService) Export(ctx context.Context, kind domain.ExportKind, r domain.DateRange) (domain.Download, error) {
	format, ok := exports[kind]
	if !ok {
		return domain.Download{}, ErrUnknownExport
	}

	start := time.Now()
	body, err := s.fetch(ctx, kind, r)
	entry := journal.Entry{
		TraceID:    infra.TraceID(ctx),
		Operator:   auth.Operator(ctx),
		Action:     journal.ActionExport,
		Kind:       string(kind),
		Target:     rangeTarget(r),
		Status:     journal.StatusSuccess,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Status = journal.StatusFailed
		entry.Error = err.Error()
		s.journal.Log(entry)
		s.logger.Warn("export failed", zap.String("kind", string(kind)), zap.Error(err))
		return domain.Download{}, s.failure(format, kind, err)
	}
	s.journal.Log(entry)

	return domain.Download{Filename: format.filename, ContentType: format.contentType, Body: body}, nil
}

func (s *ExportService) fetch(ctx context.Context, kind domain.ExportKind, r domain.DateRange) ([]byte, error) {
	var raw json.RawMessage
	var err error
	switch kind {
	case domain.ExportAlerts:
		raw, err = s.api.AlertCorrelationRaw(ctx)
	case domain.ExportSLA:
		raw, err = s.api.SLAMetricsRaw(ctx)
	default:
		return s.api.ExportTransactions(ctx, kind, r)
	}
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// failure: для файлов транзакций показываем detail бэкенда, для JSON-выгрузок фиксированный текст.
func (s *ExportService) failure(format exportFormat, kind domain.ExportKind, err error) *ExportError {
	detail, status := s.detail(err)
	msg := format.failure
	if detail != "" && (kind == domain.ExportCSV || kind == domain.ExportPDF) {
		msg = detail
	}
	return &ExportError{Message: msg, Status: status}
}

func rangeTarget(r domain.DateRange) string {
	if r.Start == "" && r.End == "" {
		return ""
	}
	return r.Start + ".." + r.End
}

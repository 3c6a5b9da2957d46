// Package backend: клиент REST API детектора аномалий.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/telemetry"
	"go.uber.org/zap"
)

// ErrDecode: тело ответа не разобралось.
var ErrDecode = errors.New("backend: decode response")

// TokenSource отдаёт bearer-токен текущей сессии; пустая строка: без авторизации.
type TokenSource interface {
	Token(ctx context.Context) string
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	guard   *Guard
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, guard *Guard, metrics *telemetry.Metrics, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		guard:   guard,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "backend")),
	}
}

// Do отправляет запрос и возвращает тело успешного ответа.
// body == nil: запрос без тела. Токен сессии прикладывается, если он есть.
func (c *Client) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var out []byte
	err := c.guard.Do(ctx, func() error {
		var err error
		out, err = c.roundTrip(ctx, method, path, body)
		return err
	})
	if err != nil {
		c.metrics.BackendErrors.WithLabelValues(errorType(err)).Inc()
		c.logger.Debug("backend call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	return out, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.BackendRequests.WithLabelValues(method, "transport").Inc()
		return nil, fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.metrics.BackendRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Method: method, Path: path, Status: resp.StatusCode, Detail: parseDetail(data)}
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	data, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.metrics.BackendErrors.WithLabelValues("decode").Inc()
		return fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return nil
}

// Status: сырой ответ /enterprise/{subsystem}/status.
func (c *Client) Status(ctx context.Context, s domain.Subsystem) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/enterprise/"+string(s)+"/status", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) Dashboard(ctx context.Context) (*domain.DashboardAnalytics, error) {
	var out domain.DashboardAnalytics
	if err := c.getJSON(ctx, "/dashboard", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ComplianceHistory(ctx context.Context) ([]domain.ComplianceRecord, error) {
	var out []domain.ComplianceRecord
	if err := c.getJSON(ctx, "/enterprise/compliance/history", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SLAMetrics(ctx context.Context) (*domain.SLAStats, error) {
	var out domain.SLAStats
	if err := c.getJSON(ctx, "/dashboard/sla_metrics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AlertCorrelation(ctx context.Context) ([]domain.AlertGroup, error) {
	var out domain.AlertCorrelation
	if err := c.getJSON(ctx, "/dashboard/alert_correlation", &out); err != nil {
		return nil, err
	}
	return out.CorrelatedAlerts, nil
}

// Transaction: детали аномальной транзакции. Пустой id не отсекается: решает бэкенд.
func (c *Client) Transaction(ctx context.Context, id string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(id), nil)
}

// Transactions: страница таблицы транзакций, новые сверху.
func (c *Client) Transactions(ctx context.Context, q domain.TransactionQuery) ([]domain.Transaction, error) {
	params := url.Values{}
	params.Set("skip", strconv.Itoa(q.Skip()))
	params.Set("limit", strconv.Itoa(domain.TransactionPageSize))
	if q.CustomerID != "" {
		params.Set("customer_id", q.CustomerID)
	}
	if q.AnomaliesOnly {
		params.Set("is_anomaly", "true")
	}
	var out []domain.Transaction
	if err := c.getJSON(ctx, "/transactions/?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportTransactions: файл выгрузки транзакций (csv или pdf) за период.
func (c *Client) ExportTransactions(ctx context.Context, format domain.ExportKind, r domain.DateRange) ([]byte, error) {
	path := "/export/" + url.PathEscape(string(format))
	params := url.Values{}
	if r.Start != "" {
		params.Set("start_date", r.Start)
	}
	if r.End != "" {
		params.Set("end_date", r.End)
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.Do(ctx, http.MethodGet, path, nil)
}

// AlertCorrelationRaw: ответ /dashboard/alert_correlation как есть, для выгрузки.
func (c *Client) AlertCorrelationRaw(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/dashboard/alert_correlation", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SLAMetricsRaw: ответ /dashboard/sla_metrics как есть, для выгрузки.
func (c *Client) SLAMetricsRaw(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/dashboard/sla_metrics", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) TriggerIncident(ctx context.Context) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, "/enterprise/automation/trigger_incident", nil)
}

func (c *Client) ComplianceViolation(ctx context.Context) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, "/enterprise/automation/compliance_violation", nil)
}

// Login меняет email/пароль на токен бэкенда.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.TokenResponse, error) {
	data, err := c.Do(ctx, http.MethodPost, "/auth/login", req)
	if err != nil {
		return nil, err
	}
	var out domain.TokenResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: /auth/login: %v", ErrDecode, err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("%w: /auth/login: no access_token", ErrDecode)
	}
	return &out, nil
}

// Detail возвращает detail из ошибки бэкенда, если он был.
func Detail(err error) string {
	detail, _ := Failure(err)
	return detail
}

func errorType(err error) string {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return "http"
	case errors.Is(err, ErrRateLimited):
		return "rate_limit"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker"
	default:
		return "transport"
	}
}

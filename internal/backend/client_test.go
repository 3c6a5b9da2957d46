package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/telemetry"
	"go.uber.org/zap"
)

type staticToken string

func (s staticToken) Token(context.Context) string { return string(s) }

func testGuard(failures uint32) *Guard {
	return NewGuard(GuardSettings{
		Name:        "test",
		RateLimit:   1000,
		RateBurst:   100,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		Failures:    failures,
	}, telemetry.NewMetrics(nil), zap.NewNop())
}

func newTestClient(t *testing.T, h http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", srv.Client(), staticToken(token), testGuard(5), telemetry.NewMetrics(nil), zap.NewNop())
}

func TestClient_SendsBearerAndBody(t *testing.T) {
	var (
		gotAuth string
		gotCT   string
		gotBody map[string]any
		gotPath string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		gotPath = r.Method + " " + r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, "tok-1")

	body, err := c.Do(context.Background(), http.MethodPost, "/enterprise/integration/market_data", map[string]any{"symbol": "AAPL"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "POST /enterprise/integration/market_data", gotPath)
	assert.Equal(t, map[string]any{"symbol": "AAPL"}, gotBody)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth, gotCT string
	var gotLen int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotLen = len(data)
		_, _ = w.Write([]byte(`{}`))
	}, "")

	_, err := c.TriggerIncident(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.Empty(t, gotCT)
	assert.Zero(t, gotLen)
}

func TestClient_ErrorDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string detail", 404, `{"detail":"Transaction not found"}`, "Transaction not found"},
		{"structured detail", 422, `{"detail":[{"loc":["body","email"],"msg":"field required"}]}`, `[{"loc":["body","email"],"msg":"field required"}]`},
		{"no detail", 500, `{"error":"x"}`, ""},
		{"not json", 502, `Bad Gateway`, ""},
		{"null detail", 400, `{"detail":null}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, "")

			_, err := c.Transaction(context.Background(), "7")
			require.Error(t, err)
			detail, status := Failure(err)
			assert.Equal(t, tt.want, detail)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.want, Detail(err))
		})
	}
}

func TestClient_TransportErrorHasNoStatus(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", &http.Client{Timeout: time.Second}, staticToken(""), testGuard(5), telemetry.NewMetrics(nil), zap.NewNop())

	_, err := c.Transaction(context.Background(), "1")
	require.Error(t, err)
	_, status := Failure(err)
	assert.Zero(t, status)
	assert.Equal(t, "transport", errorType(err))
}

func TestClient_TypedEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dashboard":
			_, _ = w.Write([]byte(`{"num_anomalies":7,"anomaly_rate_over_time":[{"date":"2024-01-01","rate":0.5}]}`))
		case "/enterprise/compliance/history":
			_, _ = w.Write([]byte(`[{"timestamp":"2024-01-01T00:00:00Z","type":"SEC_17a-4"}]`))
		case "/dashboard/sla_metrics":
			_, _ = w.Write([]byte(`{"count":3,"average_latency_ms":12.5,"sla_ms":200}`))
		case "/dashboard/alert_correlation":
			_, _ = w.Write([]byte(`{"correlated_alerts":[{"customer_id":"C1","count":2}]}`))
		case "/enterprise/automation/status":
			_, _ = w.Write([]byte(`{"engine_status":"operational"}`))
		default:
			http.NotFound(w, r)
		}
	}, "")
	ctx := context.Background()

	a, err := c.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, a.NumAnomalies)
	assert.Equal(t, []domain.TrendPoint{{Date: "2024-01-01", Rate: 0.5}}, a.AnomalyRateOverTime)

	h, err := c.ComplianceHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, h, 1)

	sla, err := c.SLAMetrics(ctx)
	require.NoError(t, err)
	require.NotNil(t, sla.AverageLatencyMs)
	assert.Equal(t, 12.5, *sla.AverageLatencyMs)
	assert.Nil(t, sla.MaxLatencyMs)

	alerts, err := c.AlertCorrelation(ctx)
	require.NoError(t, err)
	assert.Equal(t, "C1", alerts[0].CustomerID)

	raw, err := c.Status(ctx, domain.SubsystemAutomation)
	require.NoError(t, err)
	assert.JSONEq(t, `{"engine_status":"operational"}`, string(raw))
}

func TestClient_DecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}, "")

	_, err := c.Dashboard(context.Background())
	assert.ErrorIs(t, err, ErrDecode)
}

func TestClient_Login(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer"}`))
	}, "")

	tok, err := c.Login(context.Background(), domain.LoginRequest{Email: "a@b", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)

	_, err = c.Login(context.Background(), domain.LoginRequest{Email: "a@b", Password: "bad"})
	detail, status := Failure(err)
	assert.Equal(t, "Incorrect email or password", detail)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGuard_ServerErrorsTripBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	guard := testGuard(2)
	c := NewClient(srv.URL, srv.Client(), staticToken(""), guard, telemetry.NewMetrics(nil), zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := c.Transaction(context.Background(), "1")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, guard.State())

	_, err := c.Transaction(context.Background(), "1")
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, "breaker", errorType(err))
	assert.Equal(t, 2, calls)
}

func TestGuard_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	guard := testGuard(2)
	c := NewClient(srv.URL, srv.Client(), staticToken(""), guard, telemetry.NewMetrics(nil), zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := c.Transaction(context.Background(), "missing")
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, "http", errorType(err))
	}
	assert.Equal(t, gobreaker.StateClosed, guard.State())
}

func TestGuard_RateLimitedWhenContextDone(t *testing.T) {
	guard := NewGuard(GuardSettings{Name: "slow", RateLimit: 0.001, RateBurst: 1, Failures: 5}, telemetry.NewMetrics(nil), zap.NewNop())

	require.NoError(t, guard.Do(context.Background(), func() error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := guard.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestClient_TransactionEscapesID(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{}`))
	}, "")

	tests := []struct {
		id   string
		want string
	}{
		{"42", "/transactions/42"},
		{"42?admin=1", "/transactions/42%3Fadmin=1"},
		{"../dashboard", "/transactions/..%2Fdashboard"},
		{"a#b", "/transactions/a%23b"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := c.Transaction(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, gotPath)
			assert.Empty(t, gotQuery)
		})
	}
}

func TestClient_TransactionsQuery(t *testing.T) {
	var gotURL string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Path + "?" + r.URL.RawQuery
		_, _ = w.Write([]byte(`[{"id":7,"timestamp":"2024-01-01T00:00:00","amount":12.5,"type":"wire","customer_id":"C 1","is_anomaly":true}]`))
	}, "")

	txs, err := c.Transactions(context.Background(), domain.TransactionQuery{Page: 3, CustomerID: "C 1", AnomaliesOnly: true})
	require.NoError(t, err)

	assert.Equal(t, "/transactions/?customer_id=C+1&is_anomaly=true&limit=20&skip=40", gotURL)
	require.Len(t, txs, 1)
	assert.Equal(t, "7", txs[0].ID.String())
	assert.True(t, txs[0].IsAnomaly)

	_, err = c.Transactions(context.Background(), domain.TransactionQuery{})
	require.NoError(t, err)
	assert.Equal(t, "/transactions/?limit=20&skip=0", gotURL)
}

func TestClient_ExportAndRawSnapshots(t *testing.T) {
	var gotURL string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Path + "?" + r.URL.RawQuery
		switch r.URL.Path {
		case "/export/csv":
			_, _ = w.Write([]byte("id,amount\n1,2.0\n"))
		case "/export/pdf":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"No transactions found for export."}`))
		case "/dashboard/alert_correlation":
			_, _ = w.Write([]byte(`{"correlated_alerts":[]}`))
		case "/dashboard/sla_metrics":
			_, _ = w.Write([]byte(`{"count":1}`))
		}
	}, "")
	ctx := context.Background()

	body, err := c.ExportTransactions(ctx, domain.ExportCSV, domain.DateRange{Start: "2024-01-01", End: "2024-02-01"})
	require.NoError(t, err)
	assert.Equal(t, "id,amount\n1,2.0\n", string(body))
	assert.Equal(t, "/export/csv?end_date=2024-02-01&start_date=2024-01-01", gotURL)

	_, err = c.ExportTransactions(ctx, domain.ExportPDF, domain.DateRange{})
	assert.Equal(t, "/export/pdf?", gotURL)
	detail, status := Failure(err)
	assert.Equal(t, "No transactions found for export.", detail)
	assert.Equal(t, http.StatusNotFound, status)

	raw, err := c.AlertCorrelationRaw(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"correlated_alerts":[]}`, string(raw))

	raw, err = c.SLAMetricsRaw(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":1}`, string(raw))
}

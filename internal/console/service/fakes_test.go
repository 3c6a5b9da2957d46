package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/journal"
)

type published struct {
	Topic string
	Data  any
}

// capturePublisher запоминает всё, что ушло браузерам.
type capturePublisher struct {
	mu  sync.Mutex
	out []published
}

func (p *capturePublisher) Publish(topic string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, published{Topic: topic, Data: data})
}

func (p *capturePublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := make([]string, 0, len(p.out))
	for _, m := range p.out {
		t = append(t, m.Topic)
	}
	return t
}

func (p *capturePublisher) last(topic string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.out) - 1; i >= 0; i-- {
		if p.out[i].Topic == topic {
			return p.out[i].Data, true
		}
	}
	return nil, false
}

type captureJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (j *captureJournal) Log(e journal.Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
}

func (j *captureJournal) all() []journal.Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]journal.Entry(nil), j.entries...)
}

// fakeAPI отвечает заготовками; ошибка по ключу делает вызов неуспешным.
type fakeAPI struct {
	mu       sync.Mutex
	status   map[domain.Subsystem]string
	fail     map[string]error
	calls    []string
	bodies   map[string]any
	analytic *domain.DashboardAnalytics
	history  []domain.ComplianceRecord
	detail   string
	txs      []domain.Transaction
	groups   []domain.AlertGroup
	queries  []domain.TransactionQuery
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		status: map[domain.Subsystem]string{
			domain.SubsystemAutomation:  `{"engine_status":"operational"}`,
			domain.SubsystemIntegration: `{"core_banking":"connected","payments":"connected"}`,
			domain.SubsystemCompliance:  `{"compliance_engine":"operational"}`,
			domain.SubsystemStreaming:   `{"streaming_engine":"operational"}`,
		},
		fail:   make(map[string]error),
		bodies: make(map[string]any),
		analytic: &domain.DashboardAnalytics{
			NumAnomalies:        3,
			AnomalyRateOverTime: []domain.TrendPoint{{Date: "2024-01-01", Rate: 0.1}, {Date: "2024-01-02", Rate: 0.2}},
		},
		history: []domain.ComplianceRecord{{Timestamp: "2024-01-01T00:00:00Z", Type: "SEC_17a-4"}},
		detail:  `{"id":1}`,
	}
}

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.fail[call]
}

func (f *fakeAPI) Status(_ context.Context, s domain.Subsystem) (json.RawMessage, error) {
	if err := f.record("status:" + string(s)); err != nil {
		return nil, err
	}
	return json.RawMessage(f.status[s]), nil
}

func (f *fakeAPI) Dashboard(context.Context) (*domain.DashboardAnalytics, error) {
	if err := f.record("dashboard"); err != nil {
		return nil, err
	}
	return f.analytic, nil
}

func (f *fakeAPI) ComplianceHistory(context.Context) ([]domain.ComplianceRecord, error) {
	if err := f.record("history"); err != nil {
		return nil, err
	}
	return f.history, nil
}

func (f *fakeAPI) SLAMetrics(context.Context) (*domain.SLAStats, error) {
	if err := f.record("sla"); err != nil {
		return nil, err
	}
	return &domain.SLAStats{Count: 10, SLAMs: 200}, nil
}

func (f *fakeAPI) AlertCorrelation(context.Context) ([]domain.AlertGroup, error) {
	if err := f.record("alerts"); err != nil {
		return nil, err
	}
	return []domain.AlertGroup{{CustomerID: "C1", Count: 2}}, nil
}

func (f *fakeAPI) Transaction(_ context.Context, id string) ([]byte, error) {
	if err := f.record("transaction:" + id); err != nil {
		return nil, err
	}
	return []byte(f.detail), nil
}

func (f *fakeAPI) TriggerIncident(context.Context) ([]byte, error) {
	if err := f.record("incident"); err != nil {
		return nil, err
	}
	return []byte(`{"incident_id":"INC-1"}`), nil
}

func (f *fakeAPI) ComplianceViolation(context.Context) ([]byte, error) {
	if err := f.record("violation"); err != nil {
		return nil, err
	}
	return []byte(`{"violation_id":"V-1"}`), nil
}

func (f *fakeAPI) Do(_ context.Context, method, path string, body any) ([]byte, error) {
	call := method + " " + path
	f.mu.Lock()
	f.bodies[call] = body
	f.mu.Unlock()
	if err := f.record(call); err != nil {
		return nil, err
	}
	return []byte(`{"result":"ok"}`), nil
}

func (f *fakeAPI) Transactions(_ context.Context, q domain.TransactionQuery) ([]domain.Transaction, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if err := f.record("transactions"); err != nil {
		return nil, err
	}
	return f.txs, nil
}

func (f *fakeAPI) ExportTransactions(_ context.Context, format domain.ExportKind, r domain.DateRange) ([]byte, error) {
	if err := f.record("export:" + string(format)); err != nil {
		return nil, err
	}
	return []byte("id,amount\n1,10.0\n" + r.Start + ".." + r.End), nil
}

func (f *fakeAPI) AlertCorrelationRaw(context.Context) (json.RawMessage, error) {
	if err := f.record("alerts-raw"); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"correlated_alerts":[]}`), nil
}

func (f *fakeAPI) SLAMetricsRaw(context.Context) (json.RawMessage, error) {
	if err := f.record("sla-raw"); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"count":3,"sla_ms":200}`), nil
}

// Alerts: группы из последнего опроса для окна группы алертов.
func (f *fakeAPI) Alerts() []domain.AlertGroup {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups
}

func (f *fakeAPI) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

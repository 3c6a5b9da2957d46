package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/drilldown"
	"github.com/xela07ax/anomaly-console/internal/infra"
	"github.com/xela07ax/anomaly-console/internal/infra/auth"
	"github.com/xela07ax/anomaly-console/internal/journal"
	"github.com/xela07ax/anomaly-console/internal/telemetry"
	"go.uber.org/zap"
)

func newDrilldown(t *testing.T, api *fakeAPI) (*DrilldownService, *captureJournal, *capturePublisher) {
	t.Helper()
	ctrl := drilldown.NewController(func(error) string { return "not found" }, telemetry.NewMetrics(nil), zap.NewNop())
	t.Cleanup(ctrl.Shutdown)
	rec := &captureJournal{}
	pub := &capturePublisher{}
	return NewDrilldownService(api, api, ctrl, rec, pub, zap.NewNop()), rec, pub
}

func settled(t *testing.T, tk drilldown.Ticket) {
	t.Helper()
	select {
	case <-tk.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("drilldown not settled")
	}
}

func TestDrilldownService_OpenEventFetchesTransaction(t *testing.T) {
	api := newFakeAPI()
	svc, rec, pub := newDrilldown(t, api)

	ctx := auth.WithOperator(infra.WithTraceID(context.Background(), "trace-1"), "ops@bank")
	ev := domain.Event{Type: domain.EventAnomalyDetected, TransactionID: domain.StringID("42")}
	tk, err := svc.OpenEvent(ctx, ev)
	require.NoError(t, err)
	settled(t, tk)

	assert.True(t, api.called("transaction:42"))
	st, err := svc.State(domain.DrilldownAnomaly)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseLoaded, st.Phase())

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.ActionDrilldownOpen, entries[0].Action)
	assert.Equal(t, "trace-1", entries[0].TraceID)
	assert.Equal(t, "ops@bank", entries[0].Operator)
	assert.Equal(t, "42", entries[0].Target)
	assert.Equal(t, journal.StatusSuccess, entries[0].Status)

	got, ok := pub.last(TopicDrilldown)
	require.True(t, ok)
	assert.Equal(t, domain.PhaseLoaded, got.(domain.DrilldownState).Phase())
}

func TestDrilldownService_IncidentAndViolation(t *testing.T) {
	api := newFakeAPI()
	svc, _, _ := newDrilldown(t, api)

	tk, err := svc.Open(context.Background(), domain.DrilldownIncident, "")
	require.NoError(t, err)
	settled(t, tk)
	tk, err = svc.Open(context.Background(), domain.DrilldownViolation, "")
	require.NoError(t, err)
	settled(t, tk)

	inc, _ := svc.State(domain.DrilldownIncident)
	v, _ := inc.Data.Get("incident_id")
	assert.Equal(t, "INC-1", v)
	vio, _ := svc.State(domain.DrilldownViolation)
	v, _ = vio.Data.Get("violation_id")
	assert.Equal(t, "V-1", v)
}

func TestDrilldownService_FailureMessage(t *testing.T) {
	api := newFakeAPI()
	api.fail["transaction:9"] = errors.New("404")
	svc, rec, _ := newDrilldown(t, api)

	tk, err := svc.Open(context.Background(), domain.DrilldownAnomaly, "9")
	require.NoError(t, err)
	settled(t, tk)

	st, _ := svc.State(domain.DrilldownAnomaly)
	assert.Equal(t, "Failed to fetch anomaly details: not found", st.Error)
	assert.Equal(t, journal.StatusFailed, rec.all()[0].Status)
}

func TestDrilldownService_CloseAndUnknownKind(t *testing.T) {
	svc, rec, _ := newDrilldown(t, newFakeAPI())

	st, err := svc.Close(context.Background(), domain.DrilldownIncident)
	require.NoError(t, err)
	assert.False(t, st.Open)
	assert.Equal(t, journal.ActionDrilldownClose, rec.all()[0].Action)
	assert.Equal(t, "anonymous", rec.all()[0].Operator)

	_, err = svc.Open(context.Background(), "bogus", "")
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = svc.Close(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = svc.State(domain.WidgetKind("market_data"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestModalFor(t *testing.T) {
	m, ok := ModalFor(domain.DrilldownViolation)
	require.True(t, ok)
	assert.Equal(t, "Compliance Violation Details", m.Title)
	assert.Equal(t, "violation", m.Noun)

	_, ok = ModalFor("nope")
	assert.False(t, ok)
}

func TestDrilldownService_AlertGroupFromLastPoll(t *testing.T) {
	api := newFakeAPI()
	group := domain.AlertGroup{
		CustomerID: "C-7",
		Type:       "wire",
		StartTime:  "2024-05-01T10:00:00",
		EndTime:    "2024-05-01T10:05:00",
		Count:      2,
		Anomalies: []domain.AlertAnomaly{
			{ID: domain.NumberID(11), Timestamp: "2024-05-01T10:00:00", Amount: 9000, Type: "wire"},
			{ID: domain.NumberID(12), Timestamp: "2024-05-01T10:05:00", Amount: 9100, Type: "wire"},
		},
	}
	api.groups = []domain.AlertGroup{{CustomerID: "C-1", Type: "card"}, group}
	svc, rec, _ := newDrilldown(t, api)

	tk, err := svc.Open(context.Background(), domain.DrilldownAlert, group.Key())
	require.NoError(t, err)
	settled(t, tk)

	st, err := svc.State(domain.DrilldownAlert)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseLoaded, st.Phase())
	keys := make([]string, 0, len(st.Data))
	for _, f := range st.Data {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"customer", "type", "window", "total_anomalies", "anomalies"}, keys)
	v, _ := st.Data.Get("window")
	assert.Equal(t, "2024-05-01T10:00:00 - 2024-05-01T10:05:00", v)
	v, _ = st.Data.Get("anomalies")
	assert.Contains(t, v, `"id":11`)
	assert.Empty(t, api.calls, "группа берётся из опроса, без запроса к бэкенду")
	assert.Equal(t, string(domain.DrilldownAlert), rec.all()[0].Kind)

	tk, err = svc.Open(context.Background(), domain.DrilldownAlert, "gone/x/y")
	require.NoError(t, err)
	settled(t, tk)
	st, _ = svc.State(domain.DrilldownAlert)
	assert.Equal(t, "Failed to load correlated alert details: not found", st.Error)
}

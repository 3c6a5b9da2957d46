package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/drilldown"
	"github.com/xela07ax/anomaly-console/internal/telemetry"
	"go.uber.org/zap"
)

func newActions(t *testing.T, api Caller) (*ActionService, *Board, *capturePublisher, *captureJournal) {
	t.Helper()
	ctrl := drilldown.NewController(nil, telemetry.NewMetrics(nil), zap.NewNop())
	t.Cleanup(ctrl.Shutdown)
	board := NewBoard()
	pub := &capturePublisher{}
	rec := &captureJournal{}
	return NewActionService(api, ctrl, board, pub, rec, zap.NewNop()), board, pub, rec
}

func TestActionService_RunWidgetMergesDefaults(t *testing.T) {
	api := newFakeAPI()
	svc, _, _, rec := newActions(t, api)

	tk, err := svc.RunWidget(context.Background(), "validate_transaction", map[string]any{
		"amount":  2500,
		"ignored": "x",
	})
	require.NoError(t, err)
	settled(t, tk)

	call := http.MethodPost + " /enterprise/integration/validate_transaction"
	assert.True(t, api.called(call))
	assert.Equal(t, map[string]any{"account_id": "ACC-1001", "amount": 2500}, api.bodies[call])

	st, err := svc.WidgetState("validate_transaction")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseLoaded, st.Phase())
	v, _ := st.Data.Get("result")
	assert.Equal(t, "ok", v)

	assert.Equal(t, "account_id=ACC-1001 amount=2500", rec.all()[0].Target)
}

func TestActionService_RunWidgetFailure(t *testing.T) {
	api := newFakeAPI()
	api.fail[http.MethodPost+" /enterprise/integration/market_data"] = errors.New("503")
	svc, _, _, _ := newActions(t, api)

	tk, err := svc.RunWidget(context.Background(), "market_data", nil)
	require.NoError(t, err)
	settled(t, tk)

	st, _ := svc.WidgetState("market_data")
	assert.Equal(t, "Failed to fetch market data", st.Error)
}

func TestActionService_UnknownNames(t *testing.T) {
	svc, _, _, _ := newActions(t, newFakeAPI())

	_, err := svc.RunWidget(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownAction)
	_, err = svc.WidgetState("nope")
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.ErrorIs(t, svc.RunCommand(context.Background(), "nope"), ErrUnknownAction)
}

func TestActionService_RunCommandBanner(t *testing.T) {
	api := newFakeAPI()
	api.fail[http.MethodPost+" /enterprise/automation/trigger-incident"] = errors.New("500")
	svc, board, pub, _ := newActions(t, api)

	err := svc.RunCommand(context.Background(), "trigger_incident")
	require.Error(t, err)
	assert.Equal(t, "Failed to trigger incident", err.Error())
	assert.Equal(t, "Failed to trigger incident", board.Banner())

	require.NoError(t, svc.RunCommand(context.Background(), "simulate_stream"))
	assert.Empty(t, board.Banner())
	got, _ := pub.last(TopicBanner)
	assert.Equal(t, "", got)
}

func TestActionService_Catalog(t *testing.T) {
	svc, _, _, _ := newActions(t, newFakeAPI())

	names := make([]string, 0)
	for _, w := range svc.Widgets() {
		names = append(names, w.Name)
	}
	assert.Equal(t, []string{"market_data", "portfolio_risk", "compliance_check", "verify_account", "validate_transaction", "regulatory_report"}, names)
	assert.Len(t, svc.Commands(), 4)
}

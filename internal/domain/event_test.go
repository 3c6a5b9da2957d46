package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_LabelFallbackOrder(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"message wins", Event{Message: "m", Status: "s", EventID: "e", Event: "v"}, "m"},
		{"status", Event{Status: "s", EventID: "e", Event: "v"}, "s"},
		{"event_id", Event{EventID: "e", Event: "v"}, "e"},
		{"event", Event{Event: "v"}, "v"},
		{"nothing", Event{Type: "tick"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.Label())
		})
	}
}

func TestEvent_ReceivedAtIsUTCMillis(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	ev := Event{Received: time.Date(2024, 3, 1, 15, 4, 5, 123_456_789, loc)}

	assert.Equal(t, "2024-03-01T12:04:05.123Z", ev.ReceivedAt())
}

func TestEvent_DrilldownTarget(t *testing.T) {
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"anomaly_detected","transaction_id":42}`), &ev))
	assert.Equal(t, "42", ev.DrilldownTarget())
	assert.True(t, ev.IsAnomaly())

	require.NoError(t, json.Unmarshal([]byte(`{"type":"anomaly_detected","id":"7","transaction_id":42}`), &ev))
	assert.Equal(t, "7", ev.DrilldownTarget())
}

func TestFlexID_Unmarshal(t *testing.T) {
	var v struct {
		A FlexID `json:"a"`
		B FlexID `json:"b"`
		C FlexID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"TX-1","c":null}`), &v))
	assert.Equal(t, NumberID(12), v.A)
	assert.Equal(t, StringID("TX-1"), v.B)
	assert.True(t, v.C.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"a":{}}`), &v))
}

func TestEvent_MarshalJSONCarriesLabelAndReceived(t *testing.T) {
	ev := Event{
		Type:     EventAnomalyDetected,
		ID:       NumberID(5),
		Message:  "Realtime anomaly",
		Received: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	out, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "anomaly_detected",
		"id": 5,
		"message": "Realtime anomaly",
		"label": "Realtime anomaly",
		"received": "2024-01-02T03:04:05.000Z"
	}`, string(out))
}

func TestFlexID_KeepsSourceForm(t *testing.T) {
	var events []Event
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"anomaly_detected","id":"007"},
		{"type":"anomaly_detected","id":"+5"},
		{"type":"anomaly_detected","id":12},
		{"type":"anomaly_detected","id":"12"},
		{"type":"tick"}
	]`), &events))

	out, err := json.Marshal(events)
	require.NoError(t, err)

	var back []map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	require.Len(t, back, 5)
	assert.Equal(t, "007", back[0]["id"])
	assert.Equal(t, "+5", back[1]["id"])
	assert.Equal(t, float64(12), back[2]["id"])
	assert.Equal(t, "12", back[3]["id"])
	assert.NotContains(t, back[4], "id")
	assert.Equal(t, "007", events[0].DrilldownTarget())
}

func TestDrilldownState_Phase(t *testing.T) {
	assert.Equal(t, PhaseClosed, DrilldownState{}.Phase())
	assert.Equal(t, PhaseLoading, DrilldownState{Open: true, Loading: true}.Phase())
	assert.Equal(t, PhaseError, DrilldownState{Open: true, Error: "x"}.Phase())
	assert.Equal(t, PhaseLoaded, DrilldownState{Open: true}.Phase())

	assert.True(t, WidgetKind("market_data").IsWidget())
	assert.False(t, DrilldownAnomaly.IsWidget())
}

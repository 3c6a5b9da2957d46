package domain

import "strings"

// DrilldownKind: тип модального окна детализации.
type DrilldownKind string

const (
	DrilldownAnomaly   DrilldownKind = "anomaly"
	DrilldownIncident  DrilldownKind = "incident"
	DrilldownViolation DrilldownKind = "violation"
	DrilldownAlert     DrilldownKind = "alert_group"
)

// WidgetKind: слот виджета действия; виджеты используют ту же машину состояний.
func WidgetKind(name string) DrilldownKind {
	return DrilldownKind("widget:" + name)
}

// IsWidget отличает слоты виджетов от модальных окон.
func (k DrilldownKind) IsWidget() bool {
	return strings.HasPrefix(string(k), "widget:")
}

// Phase: состояние слота: Closed -> Loading -> {Loaded, Error} -> Closed.
type Phase string

const (
	PhaseClosed  Phase = "closed"
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseError   Phase = "error"
)

// DrilldownState: снимок слота детализации.
// Поля повторяют пропсы модального окна: open, loading, error, data.
type DrilldownState struct {
	Kind       DrilldownKind `json:"kind"`
	Open       bool          `json:"open"`
	Loading    bool          `json:"loading"`
	Error      string        `json:"error,omitempty"`
	Data       Fields        `json:"data,omitempty"`
	Target     string        `json:"target,omitempty"`
	Generation uint64        `json:"generation"`
}

// Phase выводит состояние машины из флагов.
func (s DrilldownState) Phase() Phase {
	switch {
	case !s.Open:
		return PhaseClosed
	case s.Loading:
		return PhaseLoading
	case s.Error != "":
		return PhaseError
	default:
		return PhaseLoaded
	}
}

package journal

import "time"

// Действия оператора, попадающие в журнал.
const (
	ActionDrilldownOpen  = "drilldown.open"
	ActionDrilldownClose = "drilldown.close"
	ActionWidget         = "widget.run"
	ActionLogin          = "session.login"
	ActionLogout         = "session.logout"
	ActionExport         = "export.download"
)

// Статусы исхода действия.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

type Entry struct {
	ID         string    `json:"id"`       // UUID записи
	TraceID    string    `json:"trace_id"` // X-Trace-ID запроса, который начал действие
	Operator   string    `json:"operator"` // Субъект сессии или "anonymous"
	Action     string    `json:"action"`
	Kind       string    `json:"kind,omitempty"`   // Слот детализации/виджета
	Target     string    `json:"target,omitempty"` // Идентификатор, по которому открывали
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

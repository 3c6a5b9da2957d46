package domain

import "encoding/json"

// DashboardAnalytics: ответ GET /dashboard (используем только нужные консоли поля).
type DashboardAnalytics struct {
	TotalTransactions   int             `json:"total_transactions"`
	NumAnomalies        int             `json:"num_anomalies"`
	AverageAmount       float64         `json:"average_amount"`
	AnomalyRateOverTime []TrendPoint    `json:"anomaly_rate_over_time"`
	VolumeOverTime      json.RawMessage `json:"volume_over_time,omitempty"`
	TopCustomers        json.RawMessage `json:"top_customers,omitempty"`
	LargestTransactions json.RawMessage `json:"largest_transactions,omitempty"`
	RecentAnomalies     json.RawMessage `json:"recent_anomalies,omitempty"`
	TypeDistribution    json.RawMessage `json:"type_distribution,omitempty"`
}

// SLAStats: ответ GET /dashboard/sla_metrics. Указатели: отсутствующее поле рисуется как "--".
type SLAStats struct {
	Count            int      `json:"count"`
	AverageLatencyMs *float64 `json:"average_latency_ms"`
	MaxLatencyMs     *float64 `json:"max_latency_ms"`
	MinLatencyMs     *float64 `json:"min_latency_ms"`
	SLAMs            float64  `json:"sla_ms"`
	SLABreaches      int      `json:"sla_breaches"`
}

// AlertGroup: группа коррелированных алертов.
type AlertGroup struct {
	CustomerID string         `json:"customer_id"`
	Type       string         `json:"type"`
	StartTime  string         `json:"start_time"`
	EndTime    string         `json:"end_time"`
	Count      int            `json:"count"`
	Anomalies  []AlertAnomaly `json:"anomalies"`
}

// Key: устойчивый идентификатор группы между опросами.
func (g AlertGroup) Key() string {
	return g.CustomerID + "/" + g.Type + "/" + g.StartTime
}

type AlertAnomaly struct {
	ID        FlexID  `json:"id"`
	Timestamp string  `json:"timestamp"`
	Amount    float64 `json:"amount"`
	Type      string  `json:"type"`
}

// AlertCorrelation: ответ GET /dashboard/alert_correlation.
type AlertCorrelation struct {
	CorrelatedAlerts []AlertGroup `json:"correlated_alerts"`
}

// Subsystem: подсистема платформы со своим /status.
type Subsystem string

const (
	SubsystemAutomation  Subsystem = "automation"
	SubsystemIntegration Subsystem = "integration"
	SubsystemCompliance  Subsystem = "compliance"
	SubsystemStreaming   Subsystem = "streaming"
)

// Subsystems в порядке отображения панелей.
var Subsystems = []Subsystem{SubsystemAutomation, SubsystemIntegration, SubsystemCompliance, SubsystemStreaming}

// Title: заголовок панели подсистемы.
func (s Subsystem) Title() string {
	switch s {
	case SubsystemAutomation:
		return "Automation Engine"
	case SubsystemIntegration:
		return "Integration Hub"
	case SubsystemCompliance:
		return "Compliance Engine"
	case SubsystemStreaming:
		return "Streaming Processor"
	}
	return string(s)
}

// StatusPanel: сырой ответ /status подсистемы; nil пока не загрузился.
type StatusPanel struct {
	Subsystem Subsystem       `json:"subsystem"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data,omitempty"`
}

package domain

// Значения KPI "состояние системы".
const (
	HealthOperational = "Operational"
	HealthIssues      = "Issues"
)

// ComplianceReportType: тип записи, которую лента добавляет в историю комплаенса.
const ComplianceReportType = "SEC_17a-4"

// KPISummary: агрегаты для карточек сводки. Патчится и опросом, и живыми событиями.
type KPISummary struct {
	Anomalies         int    `json:"anomalies"`
	ComplianceReports int    `json:"complianceReports"`
	SystemHealth      string `json:"systemHealth"`
}

// TrendPoint: точка графика доли аномалий.
type TrendPoint struct {
	Date string  `json:"date"`
	Rate float64 `json:"rate"`
}

// ComplianceRecord: запись истории комплаенс-отчётов.
type ComplianceRecord struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

// ExecutiveSummary: сводка здоровья подсистем.
type ExecutiveSummary struct {
	Healthy bool     `json:"healthy"`
	Issues  []string `json:"issues"`
}

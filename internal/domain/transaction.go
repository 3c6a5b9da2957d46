package domain

import "strconv"

// TransactionPageSize: строк на странице таблицы транзакций.
const TransactionPageSize = 20

// Transaction: строка ответа GET /transactions/.
type Transaction struct {
	ID         FlexID  `json:"id"`
	Timestamp  string  `json:"timestamp"`
	Amount     float64 `json:"amount"`
	Type       string  `json:"type"`
	CustomerID string  `json:"customer_id"`
	IsAnomaly  bool    `json:"is_anomaly"`
}

// TransactionQuery: фильтры таблицы. Page считается с 1.
type TransactionQuery struct {
	Page          int    `json:"page"`
	CustomerID    string `json:"customer_id,omitempty"`
	AnomaliesOnly bool   `json:"anomalies_only"`
}

// Normalize приводит номер страницы к допустимому.
func (q TransactionQuery) Normalize() TransactionQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

// Skip: смещение для параметра skip бэкенда.
func (q TransactionQuery) Skip() int {
	return (q.Normalize().Page - 1) * TransactionPageSize
}

// TransactionPage: одна страница таблицы. Error заполняется вместо Items.
type TransactionPage struct {
	Query   TransactionQuery `json:"query"`
	Items   []Transaction    `json:"items"`
	Error   string           `json:"error,omitempty"`
	HasPrev bool             `json:"has_prev"`
	HasNext bool             `json:"has_next"`
}

// FormatAmount: сумма с двумя знаками, как в таблице.
func FormatAmount(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

// ExportKind: вид выгрузки.
type ExportKind string

const (
	ExportCSV    ExportKind = "csv"
	ExportPDF    ExportKind = "pdf"
	ExportAlerts ExportKind = "alerts"
	ExportSLA    ExportKind = "sla"
)

// DateRange: границы выгрузки транзакций в ISO-формате; пустые не передаются.
type DateRange struct {
	Start string `json:"start_date,omitempty"`
	End   string `json:"end_date,omitempty"`
}

// Download: готовый к отдаче файл.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

package view

import (
	"fmt"
	"time"

	"github.com/xela07ax/anomaly-console/internal/domain"
)

// Series: данные одного графика.
type Series struct {
	Label  string    `json:"label"`
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// AnomalyTrendSeries: даты и доли аномалий как есть.
func AnomalyTrendSeries(trend []domain.TrendPoint) Series {
	s := Series{Label: "Anomaly Rate", Labels: make([]string, 0, len(trend)), Data: make([]float64, 0, len(trend))}
	for _, p := range trend {
		s.Labels = append(s.Labels, p.Date)
		s.Data = append(s.Data, p.Rate)
	}
	return s
}

// ComplianceSeries строит по столбцу на отчёт с подписью-датой и высотой 1.
func ComplianceSeries(history []domain.ComplianceRecord) Series {
	s := Series{Label: "Compliance Reports", Labels: make([]string, 0, len(history)), Data: make([]float64, 0, len(history))}
	for _, h := range history {
		s.Labels = append(s.Labels, reportDate(h.Timestamp))
		s.Data = append(s.Data, 1)
	}
	return s
}

func reportDate(ts string) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return "Invalid Date"
}

// TopAlerts: первые пять групп и подпись, если групп больше.
func TopAlerts(groups []domain.AlertGroup) ([]domain.AlertGroup, string) {
	const top = 5
	if len(groups) <= top {
		return groups, ""
	}
	return groups[:top], fmt.Sprintf("Showing top %d of %d groups", top, len(groups))
}

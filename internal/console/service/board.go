package service

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/xela07ax/anomaly-console/internal/domain"
)

// Сообщения баннера. Баннер один: последняя ошибка перетирает предыдущую.
const (
	BannerSocket            = "WebSocket connection error"
	BannerAutomation        = "Automation API error"
	BannerIntegration       = "Integration API error"
	BannerCompliance        = "Compliance API error"
	BannerStreaming         = "Streaming API error"
	BannerDashboard         = "Dashboard analytics error"
	BannerComplianceHistory = "Compliance history error"
)

// ComplianceHistoryLimit: сколько записей истории держит лента.
const ComplianceHistoryLimit = 25

// Темы уведомлений браузеров.
const (
	TopicFeed      = "feed"
	TopicKPIs      = "kpis"
	TopicBanner    = "banner"
	TopicPanels    = "panels"
	TopicDrilldown = "drilldown"
	TopicSession   = "session"
)

// Publisher рассылает уведомления подключённым браузерам.
type Publisher interface {
	Publish(topic string, data any)
}

// Board: состояние дашборда, общее для опроса и живой ленты.
type Board struct {
	mu      sync.RWMutex
	kpis    domain.KPISummary
	trend   []domain.TrendPoint
	history []domain.ComplianceRecord
	banner  string
	panels  map[domain.Subsystem]json.RawMessage
	sla     *domain.SLAStats
	alerts  []domain.AlertGroup
}

func NewBoard() *Board {
	return &Board{
		kpis:   domain.KPISummary{SystemHealth: domain.HealthOperational},
		panels: make(map[domain.Subsystem]json.RawMessage),
	}
}

// KPIs: карточки сводки; systemHealth выводится из панелей подсистем.
func (b *Board) KPIs() domain.KPISummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	k := b.kpis
	if summarize(b.panels).Healthy {
		k.SystemHealth = domain.HealthOperational
	} else {
		k.SystemHealth = domain.HealthIssues
	}
	return k
}

func (b *Board) Trend() []domain.TrendPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.TrendPoint(nil), b.trend...)
}

func (b *Board) History() []domain.ComplianceRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.ComplianceRecord(nil), b.history...)
}

func (b *Board) Banner() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.banner
}

func (b *Board) SetBanner(msg string) {
	b.mu.Lock()
	b.banner = msg
	b.mu.Unlock()
}

func (b *Board) ClearBanner() {
	b.SetBanner("")
}

// Panels: панели подсистем в порядке отображения. Незагруженная панель без Data.
func (b *Board) Panels() []domain.StatusPanel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.StatusPanel, 0, len(domain.Subsystems))
	for _, s := range domain.Subsystems {
		out = append(out, domain.StatusPanel{Subsystem: s, Title: s.Title(), Data: b.panels[s]})
	}
	return out
}

func (b *Board) Summary() domain.ExecutiveSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return summarize(b.panels)
}

func (b *Board) SLA() *domain.SLAStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sla
}

func (b *Board) Alerts() []domain.AlertGroup {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.AlertGroup(nil), b.alerts...)
}

// recordAnomaly: живая аномалия: +1 к счётчику и +0.01 к последней точке тренда.
func (b *Board) recordAnomaly() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kpis.Anomalies++
	if n := len(b.trend); n > 0 {
		b.trend[n-1].Rate += 0.01
	}
}

// recordComplianceReport: живой отчёт: +1 к счётчику и новая запись в начале истории.
func (b *Board) recordComplianceReport(timestamp string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kpis.ComplianceReports++
	rec := domain.ComplianceRecord{Timestamp: timestamp, Type: domain.ComplianceReportType}
	keep := b.history
	if len(keep) > ComplianceHistoryLimit-1 {
		keep = keep[:ComplianceHistoryLimit-1]
	}
	b.history = append([]domain.ComplianceRecord{rec}, keep...)
}

func (b *Board) setPanel(s domain.Subsystem, data json.RawMessage) {
	b.mu.Lock()
	b.panels[s] = data
	b.mu.Unlock()
}

func (b *Board) setAnalytics(a *domain.DashboardAnalytics) {
	b.mu.Lock()
	b.trend = append([]domain.TrendPoint(nil), a.AnomalyRateOverTime...)
	b.kpis.Anomalies = a.NumAnomalies
	b.mu.Unlock()
}

func (b *Board) setHistory(h []domain.ComplianceRecord) {
	b.mu.Lock()
	b.history = append([]domain.ComplianceRecord(nil), h...)
	b.kpis.ComplianceReports = len(h)
	b.mu.Unlock()
}

func (b *Board) setSLA(s *domain.SLAStats) {
	b.mu.Lock()
	b.sla = s
	b.mu.Unlock()
}

func (b *Board) setAlerts(a []domain.AlertGroup) {
	b.mu.Lock()
	b.alerts = a
	b.mu.Unlock()
}

// summarize строит сводку здоровья. Незагруженная подсистема проблемой не считается.
func summarize(panels map[domain.Subsystem]json.RawMessage) domain.ExecutiveSummary {
	issues := make([]string, 0)
	for _, s := range domain.Subsystems {
		data, ok := panels[s]
		if !ok || len(data) == 0 || bytes.Equal(data, []byte("null")) {
			continue
		}
		if !subsystemHealthy(s, data) {
			issues = append(issues, s.Title())
		}
	}
	return domain.ExecutiveSummary{Healthy: len(issues) == 0, Issues: issues}
}

func subsystemHealthy(s domain.Subsystem, data json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	switch s {
	case domain.SubsystemAutomation:
		return stringField(fields, "engine_status") == "operational"
	case domain.SubsystemIntegration:
		for _, v := range fields {
			if !isJSONString(v) || domain.RenderValue(v) != "connected" {
				return false
			}
		}
		return true
	case domain.SubsystemCompliance:
		return stringField(fields, "compliance_engine") == "operational"
	case domain.SubsystemStreaming:
		return stringField(fields, "streaming_engine") == "operational"
	}
	return true
}

func stringField(fields map[string]json.RawMessage, key string) string {
	v, ok := fields[key]
	if !ok || !isJSONString(v) {
		return ""
	}
	return domain.RenderValue(v)
}

func isJSONString(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '"'
}

package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/feed"
	"go.uber.org/zap"
)

// AnalyticsAPI: то, что опрос берёт у бэкенда.
type AnalyticsAPI interface {
	Status(ctx context.Context, s domain.Subsystem) (json.RawMessage, error)
	Dashboard(ctx context.Context) (*domain.DashboardAnalytics, error)
	ComplianceHistory(ctx context.Context) ([]domain.ComplianceRecord, error)
	SLAMetrics(ctx context.Context) (*domain.SLAStats, error)
	AlertCorrelation(ctx context.Context) ([]domain.AlertGroup, error)
}

var statusBanners = map[domain.Subsystem]string{
	domain.SubsystemAutomation:  BannerAutomation,
	domain.SubsystemIntegration: BannerIntegration,
	domain.SubsystemCompliance:  BannerCompliance,
	domain.SubsystemStreaming:   BannerStreaming,
}

// DashboardService собирает аналитику бэкенда и отдаёт состояние дашборда.
type DashboardService struct {
	api       AnalyticsAPI
	board     *Board
	store     *feed.Store
	publisher Publisher
	logger    *zap.Logger
}

func NewDashboardService(api AnalyticsAPI, board *Board, store *feed.Store, publisher Publisher, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		api:       api,
		board:     board,
		store:     store,
		publisher: publisher,
		logger:    logger.Named("dashboard-service"),
	}
}

// Refresh опрашивает все источники параллельно. Каждая ошибка ставит свой баннер;
// SLA и корреляция алертов при ошибке просто пустеют.
func (s *DashboardService) Refresh(ctx context.Context) {
	var wg sync.WaitGroup

	for _, sub := range domain.Subsystems {
		wg.Add(1)
		go func(sub domain.Subsystem) {
			defer wg.Done()
			data, err := s.api.Status(ctx, sub)
			if err != nil {
				s.fail(statusBanners[sub], err)
				return
			}
			s.board.setPanel(sub, data)
		}(sub)
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		a, err := s.api.Dashboard(ctx)
		if err != nil {
			s.fail(BannerDashboard, err)
			return
		}
		s.board.setAnalytics(a)
	}()
	go func() {
		defer wg.Done()
		h, err := s.api.ComplianceHistory(ctx)
		if err != nil {
			s.fail(BannerComplianceHistory, err)
			return
		}
		s.board.setHistory(h)
	}()
	go func() {
		defer wg.Done()
		sla, err := s.api.SLAMetrics(ctx)
		if err != nil {
			s.logger.Debug("sla metrics unavailable", zap.Error(err))
			sla = nil
		}
		s.board.setSLA(sla)
	}()
	go func() {
		defer wg.Done()
		alerts, err := s.api.AlertCorrelation(ctx)
		if err != nil {
			s.logger.Debug("alert correlation unavailable", zap.Error(err))
			alerts = nil
		}
		s.board.setAlerts(alerts)
	}()

	wg.Wait()

	s.publisher.Publish(TopicPanels, s.board.Panels())
	s.publisher.Publish(TopicKPIs, s.board.KPIs())
}

func (s *DashboardService) fail(banner string, err error) {
	s.logger.Warn("dashboard source failed", zap.String("banner", banner), zap.Error(err))
	s.board.SetBanner(banner)
	s.publisher.Publish(TopicBanner, banner)
}

// Poll вызывает Refresh сразу и затем с интервалом, пока ctx жив.
func (s *DashboardService) Poll(ctx context.Context, interval time.Duration) {
	s.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("dashboard poller stopped")
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Overview: всё, что нужно странице дашборда, одним снимком.
type Overview struct {
	Banner  string                    `json:"banner,omitempty"`
	KPIs    domain.KPISummary         `json:"kpis"`
	Summary domain.ExecutiveSummary   `json:"summary"`
	Panels  []domain.StatusPanel      `json:"panels"`
	Events  []domain.Event            `json:"events"`
	Trend   []domain.TrendPoint       `json:"anomaly_trend"`
	History []domain.ComplianceRecord `json:"compliance_history"`
	SLA     *domain.SLAStats          `json:"sla,omitempty"`
	Alerts  []domain.AlertGroup       `json:"alerts"`
}

func (s *DashboardService) Overview() Overview {
	return Overview{
		Banner:  s.board.Banner(),
		KPIs:    s.board.KPIs(),
		Summary: s.board.Summary(),
		Panels:  s.board.Panels(),
		Events:  s.store.Snapshot(),
		Trend:   s.board.Trend(),
		History: s.board.History(),
		SLA:     s.board.SLA(),
		Alerts:  s.board.Alerts(),
	}
}

func (s *DashboardService) Events() []domain.Event       { return s.store.Snapshot() }
func (s *DashboardService) Anomalies() []domain.Event    { return s.store.Anomalies() }
func (s *DashboardService) KPIs() domain.KPISummary      { return s.board.KPIs() }
func (s *DashboardService) Panels() []domain.StatusPanel { return s.board.Panels() }
func (s *DashboardService) Banner() string               { return s.board.Banner() }

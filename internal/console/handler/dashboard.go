package handler

import (
	"io"
	"net/http"

	"github.com/xela07ax/anomaly-console/internal/console/service"
	"github.com/xela07ax/anomaly-console/internal/console/view"
	"github.com/xela07ax/anomaly-console/internal/domain"
)

// DashboardService Описываем, что нам нужно от сервиса
type DashboardService interface {
	Overview() service.Overview
	Events() []domain.Event
	Anomalies() []domain.Event
	KPIs() domain.KPISummary
	Panels() []domain.StatusPanel
	Banner() string
}

// ActionCatalog: виджеты и команды для отрисовки страницы.
type ActionCatalog interface {
	Widgets() []service.Widget
	Commands() []service.Command
}

type DashboardHandler struct {
	service DashboardService
	actions ActionCatalog
}

func NewDashboardHandler(s DashboardService, actions ActionCatalog) *DashboardHandler {
	return &DashboardHandler{service: s, actions: actions}
}

func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	o := h.service.Overview()
	data := view.PageData{
		Events:  o.Events,
		Summary: view.SummaryData{KPIs: o.KPIs, Summary: o.Summary},
		Banner:  o.Banner,
		SLA:     o.SLA,
		Alerts:  o.Alerts,
		Panels:  o.Panels,
	}
	for _, wd := range h.actions.Widgets() {
		data.Widgets = append(data.Widgets, view.WidgetLink{Name: wd.Name, Title: wd.Title, Defaults: wd.Defaults})
	}
	for _, c := range h.actions.Commands() {
		data.Commands = append(data.Commands, view.WidgetLink{Name: c.Name, Title: c.Title})
	}
	for _, e := range service.ExportOptions() {
		data.Exports = append(data.Exports, view.ExportLink{Kind: e.Kind, Title: e.Title})
	}
	writeHTML(w, func(w io.Writer) error { return view.Page(w, data) })
}

func (h *DashboardHandler) FeedFragment(w http.ResponseWriter, r *http.Request) {
	events := h.service.Events()
	writeHTML(w, func(w io.Writer) error { return view.Feed(w, events) })
}

func (h *DashboardHandler) AnomaliesFragment(w http.ResponseWriter, r *http.Request) {
	events := h.service.Anomalies()
	writeHTML(w, func(w io.Writer) error { return view.AnomalyRows(w, events) })
}

func (h *DashboardHandler) SummaryFragment(w http.ResponseWriter, r *http.Request) {
	o := h.service.Overview()
	writeHTML(w, func(w io.Writer) error {
		return view.Summary(w, view.SummaryData{KPIs: o.KPIs, Summary: o.Summary})
	})
}

func (h *DashboardHandler) BannerFragment(w http.ResponseWriter, r *http.Request) {
	msg := h.service.Banner()
	writeHTML(w, func(w io.Writer) error { return view.Banner(w, msg) })
}

func (h *DashboardHandler) Events(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Events())
}

func (h *DashboardHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.KPIs())
}

func (h *DashboardHandler) Panels(w http.ResponseWriter, r *http.Request) {
	o := h.service.Overview()
	writeJSON(w, http.StatusOK, map[string]any{
		"panels":  o.Panels,
		"summary": o.Summary,
		"banner":  o.Banner,
		"sla":     o.SLA,
		"alerts":  o.Alerts,
	})
}

func (h *DashboardHandler) Charts(w http.ResponseWriter, r *http.Request) {
	o := h.service.Overview()
	writeJSON(w, http.StatusOK, map[string]view.Series{
		"anomaly_trend":      view.AnomalyTrendSeries(o.Trend),
		"compliance_history": view.ComplianceSeries(o.History),
	})
}

// Package view рендерит фрагменты дашборда. Рендереры чистые: только данные на входе.
package view

import (
	"bytes"
	"html/template"
	"io"
	"strconv"

	"github.com/xela07ax/anomaly-console/internal/domain"
)

// Feed: список всех событий в порядке Store. Пустой Store даёт фиксированное сообщение.
func Feed(w io.Writer, events []domain.Event) error {
	return feedTmpl.Execute(w, events)
}

// AnomalyRows: только аномалии, каждая строка кликабельна.
func AnomalyRows(w io.Writer, events []domain.Event) error {
	rows := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if e.IsAnomaly() {
			rows = append(rows, e)
		}
	}
	return anomalyRowsTmpl.Execute(w, rows)
}

// ModalProps полностью определяет модальное окно.
type ModalProps struct {
	Kind    domain.DrilldownKind
	Title   string
	Noun    string
	Open    bool
	Loading bool
	Error   string
	Fields  domain.Fields
}

// PropsFromState собирает пропсы окна из снимка слота.
func PropsFromState(st domain.DrilldownState, title, noun string) ModalProps {
	return ModalProps{
		Kind:    st.Kind,
		Title:   title,
		Noun:    noun,
		Open:    st.Open,
		Loading: st.Loading,
		Error:   st.Error,
		Fields:  st.Data,
	}
}

// Modal: закрытое окно не рендерится; приоритет тела loading > error > поля > "нет данных".
func Modal(w io.Writer, p ModalProps) error {
	return modalTmpl.Execute(w, p)
}

// WidgetResult: результат виджета: загрузка, ошибка или поля ответа.
func WidgetResult(w io.Writer, st domain.DrilldownState) error {
	return widgetResultTmpl.Execute(w, st)
}

// SummaryData: карточки KPI и сводка здоровья.
type SummaryData struct {
	KPIs    domain.KPISummary
	Summary domain.ExecutiveSummary
}

func Summary(w io.Writer, d SummaryData) error {
	return summaryTmpl.Execute(w, d)
}

func Banner(w io.Writer, msg string) error {
	return bannerTmpl.Execute(w, msg)
}

func SLA(w io.Writer, s *domain.SLAStats) error {
	return slaTmpl.Execute(w, s)
}

func Alerts(w io.Writer, groups []domain.AlertGroup) error {
	top, note := TopAlerts(groups)
	return alertsTmpl.Execute(w, struct {
		Groups []domain.AlertGroup
		Note   string
	}{top, note})
}

// TransactionsData: страница таблицы с соседними номерами для пейджера.
type TransactionsData struct {
	domain.TransactionPage
	Loading    bool
	Prev, Next int
}

// Transactions: таблица транзакций; аномальные строки открывают окно аномалии.
func Transactions(w io.Writer, p domain.TransactionPage) error {
	return transactionsTmpl.Execute(w, TransactionsData{
		TransactionPage: p,
		Prev:            p.Query.Page - 1,
		Next:            p.Query.Page + 1,
	})
}

// ExportLink: кнопка выгрузки.
type ExportLink struct {
	Kind  domain.ExportKind
	Title string
}

// Exports: кнопки выгрузок с выбором периода.
func Exports(w io.Writer, links []ExportLink) error {
	return exportsTmpl.Execute(w, links)
}

func Panels(w io.Writer, panels []domain.StatusPanel) error {
	return panelsTmpl.Execute(w, panels)
}

// FormatLatency: задержка с одним знаком или "--", если бэкенд её не прислал.
func FormatLatency(v *float64) string {
	if v == nil {
		return "--"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// PageData: всё для первой отрисовки страницы.
type PageData struct {
	Events   []domain.Event
	Summary  SummaryData
	Banner   string
	SLA      *domain.SLAStats
	Alerts   []domain.AlertGroup
	Panels   []domain.StatusPanel
	Exports  []ExportLink
	Widgets  []WidgetLink
	Commands []WidgetLink
}

// WidgetLink: виджет или команда на странице.
type WidgetLink struct {
	Name     string
	Title    string
	Defaults map[string]any
}

// Page рендерит страницу целиком из тех же фрагментов, что отдаются по отдельности.
func Page(w io.Writer, d PageData) error {
	parts := struct {
		Summary, Feed, Anomalies, Banner, SLA, Alerts, Panels, Transactions, Exports template.HTML
		Widgets, Commands                                                            []WidgetLink
	}{Widgets: d.Widgets, Commands: d.Commands}

	var err error
	if parts.Summary, err = fragment(func(w io.Writer) error { return Summary(w, d.Summary) }); err != nil {
		return err
	}
	if parts.Feed, err = fragment(func(w io.Writer) error { return Feed(w, d.Events) }); err != nil {
		return err
	}
	if parts.Anomalies, err = fragment(func(w io.Writer) error { return AnomalyRows(w, d.Events) }); err != nil {
		return err
	}
	if parts.Banner, err = fragment(func(w io.Writer) error { return Banner(w, d.Banner) }); err != nil {
		return err
	}
	if parts.SLA, err = fragment(func(w io.Writer) error { return SLA(w, d.SLA) }); err != nil {
		return err
	}
	if parts.Alerts, err = fragment(func(w io.Writer) error { return Alerts(w, d.Alerts) }); err != nil {
		return err
	}
	if parts.Panels, err = fragment(func(w io.Writer) error { return Panels(w, d.Panels) }); err != nil {
		return err
	}
	// Таблица догружается браузером после открытия страницы
	loading := TransactionsData{
		TransactionPage: domain.TransactionPage{Query: domain.TransactionQuery{Page: 1}},
		Loading:         true,
		Next:            2,
	}
	if parts.Transactions, err = fragment(func(w io.Writer) error { return transactionsTmpl.Execute(w, loading) }); err != nil {
		return err
	}
	if parts.Exports, err = fragment(func(w io.Writer) error { return Exports(w, d.Exports) }); err != nil {
		return err
	}
	return pageTmpl.Execute(w, parts)
}

// fragment рендерит уже экранированный шаблоном кусок для вставки в страницу.
func fragment(render func(io.Writer) error) (template.HTML, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec // вывод html/template
}

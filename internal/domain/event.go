package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Типы событий живой ленты, на которые реагируют KPI.
const (
	EventAnomalyDetected           = "anomaly_detected"
	EventComplianceReportGenerated = "compliance_report_generated"
)

// ReceivedLayout: формат отметки приёма (ISO-8601, миллисекунды, UTC).
const ReceivedLayout = "2006-01-02T15:04:05.000Z"

// FlexID: идентификатор, который бэкенд присылает то числом, то строкой.
// Форма исходного токена сохраняется и при обратной сериализации.
type FlexID struct {
	value  string
	number bool
}

// StringID: строковый идентификатор.
func StringID(s string) FlexID { return FlexID{value: s} }

// NumberID: числовой идентификатор.
func NumberID(n int64) FlexID { return FlexID{value: strconv.FormatInt(n, 10), number: true} }

func (id FlexID) String() string { return id.value }

func (id FlexID) IsZero() bool { return id.value == "" }

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = FlexID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID{value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID{value: n.String(), number: true}
	return nil
}

// MarshalJSON отдаёт число без кавычек только если оно пришло числом.
func (id FlexID) MarshalJSON() ([]byte, error) {
	if id.number {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// Event: уведомление живой ленты. Received проставляется консолью в момент приёма,
// а не сервером; уникальность не проверяется.
type Event struct {
	Type          string `json:"type"`
	ID            FlexID `json:"id,omitempty"`
	Message       string `json:"message,omitempty"`
	Status        string `json:"status,omitempty"`
	EventID       string `json:"event_id,omitempty"`
	Event         string `json:"event,omitempty"`
	TransactionID FlexID `json:"transaction_id,omitempty"`
	AnomalyID     FlexID `json:"anomaly_id,omitempty"`

	Received time.Time `json:"-"`
}

// Label возвращает текст строки ленты: message, затем status, event_id, event.
func (e Event) Label() string {
	for _, s := range []string{e.Message, e.Status, e.EventID, e.Event} {
		if s != "" {
			return s
		}
	}
	return ""
}

// ReceivedAt: отметка приёма в формате ленты.
func (e Event) ReceivedAt() string {
	return e.Received.UTC().Format(ReceivedLayout)
}

// IsAnomaly: событие попадает в кликабельный список аномалий.
func (e Event) IsAnomaly() bool {
	return e.Type == EventAnomalyDetected
}

// DrilldownTarget выбирает идентификатор для запроса деталей аномалии.
func (e Event) DrilldownTarget() string {
	for _, id := range []string{e.ID.String(), e.EventID, e.TransactionID.String(), e.AnomalyID.String()} {
		if id != "" {
			return id
		}
	}
	return ""
}

// eventView: представление события для JSON API и браузерного канала.
type eventView struct {
	Type     string  `json:"type"`
	ID       *FlexID `json:"id,omitempty"`
	Message  string  `json:"message,omitempty"`
	Status   string  `json:"status,omitempty"`
	EventID  string  `json:"event_id,omitempty"`
	Event    string  `json:"event,omitempty"`
	Label    string  `json:"label"`
	Received string  `json:"received"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	var id *FlexID
	if !e.ID.IsZero() {
		id = &e.ID
	}
	return json.Marshal(eventView{
		Type:     e.Type,
		ID:       id,
		Message:  e.Message,
		Status:   e.Status,
		EventID:  e.EventID,
		Event:    e.Event,
		Label:    e.Label(),
		Received: e.ReceivedAt(),
	})
}

package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/feed"
	"github.com/xela07ax/anomaly-console/internal/telemetry"
	"go.uber.org/zap"
)

var errNotObject = errors.New("frame is not a JSON object")

// LiveService принимает кадры живого канала: кладёт события в Store и патчит KPI.
// Реализует feed.FrameHandler.
type LiveService struct {
	store     *feed.Store
	board     *Board
	publisher Publisher
	metrics   *telemetry.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewLiveService(store *feed.Store, board *Board, publisher Publisher, metrics *telemetry.Metrics, logger *zap.Logger) *LiveService {
	return &LiveService{
		store:     store,
		board:     board,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("live-service"),
		now:       time.Now,
	}
}

// HandleFrame разбирает кадр. Объект даёт одно событие, массив объектов даёт пачку.
// Битый кадр отбрасывается целиком: состояние не меняется, баннер не показывается.
func (s *LiveService) HandleFrame(frame []byte) {
	events, err := s.parse(frame)
	if err != nil {
		s.metrics.FramesDropped.Inc()
		s.logger.Debug("frame dropped", zap.Int("bytes", len(frame)), zap.Error(err))
		return
	}
	if len(events) == 0 {
		return
	}

	s.store.Add(events...)
	s.metrics.StoreSize.Set(float64(s.store.Len()))

	kpisChanged := false
	for _, e := range events {
		s.metrics.FramesReceived.WithLabelValues(e.Type).Inc()
		switch e.Type {
		case domain.EventAnomalyDetected:
			s.board.recordAnomaly()
			kpisChanged = true
		case domain.EventComplianceReportGenerated:
			s.board.recordComplianceReport(e.ReceivedAt())
			kpisChanged = true
		}
	}

	s.publisher.Publish(TopicFeed, events)
	if kpisChanged {
		s.publisher.Publish(TopicKPIs, s.board.KPIs())
	}
}

// HandleError показывает постоянный баннер. Переподключения нет, события остаются.
func (s *LiveService) HandleError(err error) {
	s.logger.Warn("live connection error", zap.Error(err))
	s.board.SetBanner(BannerSocket)
	s.publisher.Publish(TopicBanner, BannerSocket)
}

func (s *LiveService) parse(frame []byte) ([]domain.Event, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return nil, domain.ErrEmptyBody
	}
	received := s.now()

	switch frame[0] {
	case '{':
		e, err := decodeEvent(frame, received)
		if err != nil {
			return nil, err
		}
		return []domain.Event{e}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(frame, &items); err != nil {
			return nil, err
		}
		events := make([]domain.Event, 0, len(items))
		for _, item := range items {
			e, err := decodeEvent(item, received)
			if err != nil {
				return nil, err
			}
			events = append(events, e)
		}
		return events, nil
	}
	return nil, errNotObject
}

func decodeEvent(raw json.RawMessage, received time.Time) (domain.Event, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return domain.Event{}, errNotObject
	}
	var e domain.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return domain.Event{}, err
	}
	e.Received = received.UTC()
	return e, nil
}

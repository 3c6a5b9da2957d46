package feed

import (
	"sync"

	"github.com/xela07ax/anomaly-console/internal/domain"
)

// DefaultCapacity: сколько последних событий держит лента.
const DefaultCapacity = 20

// Store: ограниченный буфер событий, новые в начале.
// При каждой вставке всё, что ушло за capacity, отбрасывается.
type Store struct {
	mu       sync.RWMutex
	events   []domain.Event
	capacity int
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		events:   make([]domain.Event, 0, capacity),
		capacity: capacity,
	}
}

// Add вставляет события в начало. Пачка сохраняет свой порядок:
// events[0] окажется первым в ленте.
func (s *Store) Add(events ...domain.Event) int {
	if len(events) == 0 {
		return s.Len()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(events) + len(s.events)
	if n > s.capacity {
		n = s.capacity
	}
	next := make([]domain.Event, 0, s.capacity)
	next = append(next, events...)
	next = append(next, s.events...)
	s.events = next[:n]
	return n
}

// Snapshot возвращает копию, чтобы вызывающий не гонялся с Add.
func (s *Store) Snapshot() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Anomalies: только anomaly_detected, в порядке ленты.
func (s *Store) Anomalies() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Event, 0)
	for _, e := range s.events {
		if e.IsAnomaly() {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) Capacity() int {
	return s.capacity
}

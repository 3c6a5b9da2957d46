package journal

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryStorage держит последние записи в памяти и дублирует их в лог.
// Используется, когда база не настроена.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []Entry // новые первыми
	limit   int
	logger  *zap.Logger
}

func NewMemoryStorage(limit int, logger *zap.Logger) *MemoryStorage {
	return &MemoryStorage{limit: limit, logger: logger.Named("journal-memory")}
}

func (s *MemoryStorage) WriteBatch(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.logger.Info("operator action",
			zap.String("action", e.Action),
			zap.String("operator", e.Operator),
			zap.String("kind", e.Kind),
			zap.String("target", e.Target),
			zap.String("status", e.Status),
			zap.String("trace_id", e.TraceID),
		)
		s.entries = append([]Entry{e}, s.entries...)
	}
	if len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}
	return nil
}

func (s *MemoryStorage) Recent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]Entry, limit)
	copy(out, s.entries[:limit])
	return out, nil
}

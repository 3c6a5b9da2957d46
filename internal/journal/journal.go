// Package journal: асинхронный журнал действий оператора консоли.
//
// Запись не блокирует обработчики: события идут через буферизованный канал,
// воркер копит их и пишет пачками по таймеру или при заполнении пачки.
// При остановке канал закрывается, воркер вычитывает остаток и делает финальный flush.
package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/anomaly-console/internal/telemetry"
	"go.uber.org/zap"
)

const (
	bufferSize    = 4096
	batchSize     = 100
	flushInterval = 500 * time.Millisecond
)

// Storage определяет, куда физически сохраняются записи.
type Storage interface {
	// WriteBatch сохраняет пачку записей за один раз
	WriteBatch(ctx context.Context, entries []Entry) error
	// Recent возвращает последние записи, новые первыми
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Recorder: то, что нужно сервисам: положить запись и забыть.
type Recorder interface {
	Log(entry Entry)
}

type Journal struct {
	ch       chan Entry
	repo     Storage
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	wg       sync.WaitGroup
	isClosed atomic.Bool
}

func NewJournal(repo Storage, metrics *telemetry.Metrics, logger *zap.Logger) *Journal {
	return &Journal{
		ch:      make(chan Entry, bufferSize),
		repo:    repo,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "journal")),
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop запирает вход и ждёт, пока воркер всё допишет.
func (j *Journal) Stop() {
	if !j.isClosed.CompareAndSwap(false, true) {
		return
	}
	// Даём текущим Log проскочить в канал
	time.Sleep(10 * time.Millisecond)

	j.logger.Info("stopping journal: closing channel and flushing buffer...")
	close(j.ch)
	j.wg.Wait()
	j.logger.Info("journal stopped gracefully")
}

func (j *Journal) Log(entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if j.isClosed.Load() {
		j.logger.Warn("journal entry dropped: journal is stopping", zap.String("id", entry.ID))
		return
	}

	// Load Shedding: при переполнении запись уходит только в лог
	select {
	case j.ch <- entry:
		j.metrics.JournalBufferFill.Set(float64(len(j.ch)))
	default:
		j.logger.Error("journal_buffer_overflow",
			zap.String("action", entry.Action),
			zap.String("trace_id", entry.TraceID),
		)
	}
}

// Recent читает последние записи из хранилища.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return j.repo.Recent(ctx, limit)
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]Entry, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст к этому моменту может быть уже закрыт
		if err := j.repo.WriteBatch(context.Background(), batch); err != nil {
			j.logger.Error("journal flush failed", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
		j.metrics.JournalBufferFill.Set(float64(len(j.ch)))
	}

	for {
		select {
		case entry, ok := <-j.ch:
			if !ok {
				// Канал закрыт в Stop: остаток уже вычитан, финальный сброс
				flush()
				j.logger.Info("journal worker finished")
				return
			}
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Package drilldown: машина состояний модальных окон детализации и виджетов.
//
// Каждый слот (kind) живёт по схеме Closed -> Loading -> {Loaded, Error} -> Closed.
// Любое открытие увеличивает номер поколения слота; результат запроса применяется
// только если его поколение всё ещё текущее. Close тоже увеличивает поколение,
// поэтому поздний ответ после закрытия просто отбрасывается.
package drilldown

import (
	"context"
	"sync"
	"time"

	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/telemetry"
	"go.uber.org/zap"
)

// Fetcher выполняет запрос деталей и возвращает сырое JSON-тело.
type Fetcher func(ctx context.Context) ([]byte, error)

// Request описывает одно открытие слота.
type Request struct {
	Kind   domain.DrilldownKind
	Target string
	// Failure: фиксированное сообщение для пользователя при любой ошибке.
	Failure string
	Fetch   Fetcher
}

// Ticket: квитанция открытия. Done закрывается, когда ответ применён или отброшен.
type Ticket struct {
	Kind       domain.DrilldownKind
	Generation uint64
	Done       <-chan struct{}
}

// Observer получает снимок слота после каждого перехода.
type Observer func(domain.DrilldownState)

type slot struct {
	state   domain.DrilldownState
	gen     uint64
	started time.Time
}

type Controller struct {
	// notifyMu держится от перехода до рассылки: наблюдатели видят переходы в порядке их применения.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	slots     map[domain.DrilldownKind]*slot
	observers map[int]Observer
	nextObs   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	detail  func(error) string
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

// NewController создаёт контроллер. detail достаёт пояснение сервера из ошибки (может быть nil).
func NewController(detail func(error) string, metrics *telemetry.Metrics, logger *zap.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	if detail == nil {
		detail = func(error) string { return "" }
	}
	return &Controller{
		slots:     make(map[domain.DrilldownKind]*slot),
		observers: make(map[int]Observer),
		ctx:       ctx,
		cancel:    cancel,
		detail:    detail,
		metrics:   metrics,
		logger:    logger.With(zap.String("mod", "drilldown")),
	}
}

func (c *Controller) slotLocked(kind domain.DrilldownKind) *slot {
	s, ok := c.slots[kind]
	if !ok {
		s = &slot{state: domain.DrilldownState{Kind: kind}}
		c.slots[kind] = s
	}
	return s
}

// Open переводит слот в Loading и запускает запрос в отдельной горутине.
// Повторное открытие во время загрузки делает прежний запрос устаревшим.
func (c *Controller) Open(req Request) Ticket {
	done := make(chan struct{})

	c.notifyMu.Lock()
	c.mu.Lock()
	s := c.slotLocked(req.Kind)
	s.gen++
	s.started = time.Now()
	s.state = domain.DrilldownState{
		Kind:       req.Kind,
		Open:       true,
		Loading:    true,
		Target:     req.Target,
		Generation: s.gen,
	}
	gen := s.gen
	snapshot := s.state
	c.mu.Unlock()
	c.notify(snapshot)
	c.notifyMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		body, err := req.Fetch(c.ctx)
		c.settle(req, gen, body, err)
	}()

	return Ticket{Kind: req.Kind, Generation: gen, Done: done}
}

func (c *Controller) settle(req Request, gen uint64, body []byte, fetchErr error) {
	var (
		fields domain.Fields
		errMsg string
	)
	if fetchErr == nil {
		var err error
		fields, err = domain.DecodeFields(body)
		if err != nil {
			fetchErr = err
		}
	}
	if fetchErr != nil {
		errMsg = req.Failure
		if d := c.detail(fetchErr); d != "" {
			errMsg += ": " + d
		}
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	s := c.slotLocked(req.Kind)
	if s.gen != gen {
		c.mu.Unlock()
		c.metrics.DrilldownStale.WithLabelValues(string(req.Kind)).Inc()
		c.logger.Debug("stale drilldown response dropped",
			zap.String("kind", string(req.Kind)),
			zap.Uint64("gen", gen),
		)
		return
	}
	s.state.Loading = false
	s.state.Error = errMsg
	s.state.Data = fields
	if fetchErr != nil {
		s.state.Data = nil
	}
	elapsed := time.Since(s.started)
	snapshot := s.state
	c.mu.Unlock()

	outcome := "loaded"
	if fetchErr != nil {
		outcome = "error"
		c.logger.Warn("drilldown failed",
			zap.String("kind", string(req.Kind)),
			zap.String("target", req.Target),
			zap.Error(fetchErr),
		)
	}
	c.metrics.DrilldownDuration.WithLabelValues(string(req.Kind), outcome).Observe(elapsed.Seconds())
	c.notify(snapshot)
}

// Close закрывает слот. Запрос в полёте не отменяется, его ответ станет устаревшим.
func (c *Controller) Close(kind domain.DrilldownKind) domain.DrilldownState {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	s := c.slotLocked(kind)
	s.gen++
	s.state = domain.DrilldownState{Kind: kind, Generation: s.gen}
	snapshot := s.state
	c.mu.Unlock()

	c.notify(snapshot)
	return snapshot
}

// State: текущий снимок слота. Неизвестный слот закрыт.
func (c *Controller) State(kind domain.DrilldownKind) domain.DrilldownState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[kind]; ok {
		return s.state
	}
	return domain.DrilldownState{Kind: kind}
}

// Observe подписывает наблюдателя; возвращает функцию отписки.
func (c *Controller) Observe(o Observer) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = o
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) notify(state domain.DrilldownState) {
	c.mu.Lock()
	obs := make([]Observer, 0, len(c.observers))
	for _, o := range c.observers {
		obs = append(obs, o)
	}
	c.mu.Unlock()

	for _, o := range obs {
		o(state)
	}
}

// Shutdown отменяет запросы в полёте и ждёт их завершения.
func (c *Controller) Shutdown() {
	c.cancel()
	c.wg.Wait()
	c.logger.Info("drilldown controller stopped")
}

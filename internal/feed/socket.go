package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second // Time allowed to write a control message to the peer.
	pingPeriod   = 30 * time.Second // Keepalive ping period.
	maxFrameSize = 1 << 20          // Larger frames are skipped, the connection stays up.
)

var errFrameTooLarge = errors.New("feed: frame too large")

// ErrAlreadyStarted: Run вызван повторно: соединение у консоли одно.
var ErrAlreadyStarted = errors.New("feed: socket already started")

// Socket: единственное живое соединение с бэкендом (/ws/updates).
// Переподключения нет: после ошибки соединение считается потерянным до перезапуска.
type Socket struct {
	dispatcher

	url    string
	header http.Header
	dialer *websocket.Dialer
	logger *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	started   bool
	closed    bool
	connected atomic.Bool
}

func NewSocket(url string, header http.Header, logger *zap.Logger) *Socket {
	return &Socket{
		url:    url,
		header: header,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   4096,
			WriteBufferSize:  1024,
		},
		logger: logger.With(zap.String("mod", "feed-socket")),
	}
}

// Run открывает соединение и читает кадры до ошибки, закрытия или отмены ctx.
func (s *Socket) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	conn, _, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		err = fmt.Errorf("feed: dial %s: %w", s.url, err)
		s.logger.Error("live connection failed", zap.Error(err))
		s.fail(err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	s.conn = conn
	s.mu.Unlock()

	s.connected.Store(true)
	defer s.connected.Store(false)
	s.logger.Info("live connection established", zap.String("url", s.url))

	stop := make(chan struct{})
	defer close(stop)
	go s.keepalive(ctx, conn, stop)

	for {
		_, r, err := conn.NextReader()
		if err != nil {
			return s.readFailed(ctx, err)
		}
		frame, err := readFrame(r)
		if errors.Is(err, errFrameTooLarge) {
			s.logger.Warn("oversized frame skipped", zap.Int("limit", maxFrameSize))
			continue
		}
		if err != nil {
			return s.readFailed(ctx, err)
		}
		s.emit(frame)
	}
}

// readFrame читает кадр целиком; слишком большой кадр дочитывается и отбрасывается.
func readFrame(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFrameSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxFrameSize {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return nil, err
		}
		return nil, errFrameTooLarge
	}
	return data, nil
}

func (s *Socket) readFailed(ctx context.Context, err error) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	// Закрыли сами (Close или отмена контекста): это не ошибка соединения
	if closed || ctx.Err() != nil {
		s.logger.Info("live connection released")
		return nil
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.logger.Info("live connection closed by backend", zap.Error(err))
		return nil
	}

	err = fmt.Errorf("feed: read: %w", err)
	s.logger.Error("live connection error", zap.Error(err))
	s.fail(err)
	return err
}

// keepalive шлёт ping и закрывает соединение при отмене ctx.
func (s *Socket) keepalive(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.Debug("ping failed", zap.Error(err))
			}
		case <-ctx.Done():
			_ = s.Close()
			return
		case <-stop:
			return
		}
	}
}

// Close освобождает соединение. Повторный вызов безопасен.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn == nil {
		return nil
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return s.conn.Close()
}

// Connected: соединение установлено и читается.
func (s *Socket) Connected() bool {
	return s.connected.Load()
}

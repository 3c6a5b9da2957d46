package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// backendWS поднимает websocket, который отдаёт кадры и закрывает соединение.
func backendWS(t *testing.T, frames []string, closeCode int) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if closeCode > 0 {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, ""))
			// Ждём, пока клиент прочитает close
			_, _, _ = conn.ReadMessage()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSocket_ReadsFramesUntilNormalClose(t *testing.T) {
	srv := backendWS(t, []string{`{"type":"a"}`, `{"type":"b"}`}, websocket.CloseNormalClosure)

	s := NewSocket(wsURL(srv), nil, zap.NewNop())
	rec := &recorder{}
	s.Subscribe(rec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Run(ctx)
	require.NoError(t, err)

	frames, errs := rec.snapshot()
	assert.Equal(t, []string{`{"type":"a"}`, `{"type":"b"}`}, frames)
	assert.Empty(t, errs)
	assert.False(t, s.Connected())
}

func TestSocket_AbnormalCloseReportsError(t *testing.T) {
	srv := backendWS(t, []string{`{"type":"a"}`}, websocket.CloseInternalServerErr)

	s := NewSocket(wsURL(srv), nil, zap.NewNop())
	rec := &recorder{}
	s.Subscribe(rec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Run(ctx)
	require.Error(t, err)

	frames, errs := rec.snapshot()
	assert.Len(t, frames, 1, "событие до ошибки остаётся доставленным")
	assert.Len(t, errs, 1)
}

func TestSocket_DialFailureReportsError(t *testing.T) {
	s := NewSocket("ws://127.0.0.1:1/ws/updates", nil, zap.NewNop())
	rec := &recorder{}
	s.Subscribe(rec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.Error(t, s.Run(ctx))
	_, errs := rec.snapshot()
	assert.Len(t, errs, 1)

	// Переподключения нет: второй запуск запрещён
	assert.ErrorIs(t, s.Run(ctx), ErrAlreadyStarted)
}

func TestSocket_CloseReleasesWithoutError(t *testing.T) {
	// Сервер держит соединение открытым до закрытия клиентом
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s := NewSocket(wsURL(srv), nil, zap.NewNop())
	rec := &recorder{}
	s.Subscribe(rec)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	require.Eventually(t, s.Connected, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	_, errs := rec.snapshot()
	assert.Empty(t, errs)
}

func TestSocket_OversizedFrameSkippedConnectionKept(t *testing.T) {
	big := `{"type":"a","message":"` + strings.Repeat("x", maxFrameSize) + `"}`
	srv := backendWS(t, []string{big, `{"type":"b"}`}, websocket.CloseNormalClosure)

	s := NewSocket(wsURL(srv), nil, zap.NewNop())
	rec := &recorder{}
	s.Subscribe(rec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Run(ctx))

	frames, errs := rec.snapshot()
	assert.Equal(t, []string{`{"type":"b"}`}, frames)
	assert.Empty(t, errs)
}

package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xela07ax/anomaly-console/internal/domain"
)

// HTTPError: бэкенд ответил не-2xx. Detail берётся из тела {"detail": ...}.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("backend: %s %s: status %d", e.Method, e.Path, e.Status)
}

// parseDetail достаёт detail из тела ошибки. Не-строковый detail рендерится компактным JSON.
func parseDetail(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return ""
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	if bytes.Equal(payload.Detail, []byte("null")) {
		return ""
	}
	return domain.RenderValue(payload.Detail)
}

// Failure разбирает ошибку вызова: пояснение сервера и HTTP-статус.
// Статус 0: ответа не было (транспорт, предохранитель, лимитер).
func Failure(err error) (detail string, status int) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Detail, httpErr.Status
	}
	return "", 0
}

package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/anomaly-console/internal/console/service"
	"github.com/xela07ax/anomaly-console/internal/console/view"
	"github.com/xela07ax/anomaly-console/internal/domain"
	"github.com/xela07ax/anomaly-console/internal/drilldown"
)

type DrilldownService interface {
	Open(ctx context.Context, kind domain.DrilldownKind, target string) (drilldown.Ticket, error)
	Close(ctx context.Context, kind domain.DrilldownKind) (domain.DrilldownState, error)
	State(kind domain.DrilldownKind) (domain.DrilldownState, error)
}

type DrilldownHandler struct {
	service DrilldownService
}

func NewDrilldownHandler(s DrilldownService) *DrilldownHandler {
	return &DrilldownHandler{service: s}
}

type openRequest struct {
	Target string `json:"target"`
}

// Open возвращает 202 сразу: окно уже открыто в состоянии загрузки.
func (h *DrilldownHandler) Open(w http.ResponseWriter, r *http.Request) {
	kind := domain.DrilldownKind(chi.URLParam(r, "kind"))

	var req openRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	if _, err := h.service.Open(r.Context(), kind, req.Target); err != nil {
		h.fail(w, err)
		return
	}
	st, _ := h.service.State(kind)
	writeJSON(w, http.StatusAccepted, st)
}

func (h *DrilldownHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.State(domain.DrilldownKind(chi.URLParam(r, "kind")))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *DrilldownHandler) Close(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Close(r.Context(), domain.DrilldownKind(chi.URLParam(r, "kind")))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ModalFragment рендерит окно; закрытое окно: пустой ответ.
func (h *DrilldownHandler) ModalFragment(w http.ResponseWriter, r *http.Request) {
	kind := domain.DrilldownKind(chi.URLParam(r, "kind"))
	st, err := h.service.State(kind)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	m, _ := service.ModalFor(kind)
	props := view.PropsFromState(st, m.Title, m.Noun)
	writeHTML(w, func(w io.Writer) error { return view.Modal(w, props) })
}

func (h *DrilldownHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrUnknownKind) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

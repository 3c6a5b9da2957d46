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

type ActionService interface {
	ActionCatalog
	RunWidget(ctx context.Context, name string, params map[string]any) (drilldown.Ticket, error)
	WidgetState(name string) (domain.DrilldownState, error)
	RunCommand(ctx context.Context, name string) error
}

type ActionHandler struct {
	service ActionService
}

func NewActionHandler(s ActionService) *ActionHandler {
	return &ActionHandler{service: s}
}

func (h *ActionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"widgets":  h.service.Widgets(),
		"commands": h.service.Commands(),
	})
}

// Run: виджет отвечает 202 и догружается асинхронно, команда выполняется синхронно.
func (h *ActionHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	params := map[string]any{}
	if err := decodeOptional(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	if _, err := h.service.RunWidget(r.Context(), name, params); err == nil {
		st, _ := h.service.WidgetState(name)
		writeJSON(w, http.StatusAccepted, st)
		return
	} else if !errors.Is(err, service.ErrUnknownAction) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	err := h.service.RunCommand(r.Context(), name)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrUnknownAction):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (h *ActionHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.WidgetState(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *ActionHandler) WidgetFragment(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.WidgetState(chi.URLParam(r, "name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, func(w io.Writer) error { return view.WidgetResult(w, st) })
}

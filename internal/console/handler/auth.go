package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/anomaly-console/internal/console/service"
	"github.com/xela07ax/anomaly-console/internal/domain"
)

type SessionService interface {
	Login(ctx context.Context, req domain.LoginRequest) (domain.SessionInfo, error)
	Logout(ctx context.Context) error
	Info(ctx context.Context) domain.SessionInfo
}

type AuthHandler struct {
	service SessionService
}

func NewAuthHandler(s SessionService) *AuthHandler {
	return &AuthHandler{service: s}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	info, err := h.service.Login(r.Context(), req)
	if err != nil {
		var loginErr *service.LoginError
		if errors.As(err, &loginErr) {
			// Текст отказа бэкенда показывается оператору как есть
			writeError(w, http.StatusUnauthorized, loginErr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Info(r.Context()))
}

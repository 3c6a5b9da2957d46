package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/xela07ax/anomaly-console/internal/console/view"
	"github.com/xela07ax/anomaly-console/internal/domain"
)

type TransactionService interface {
	Page(ctx context.Context, q domain.TransactionQuery) domain.TransactionPage
}

type TransactionHandler struct {
	service TransactionService
}

func NewTransactionHandler(s TransactionService) *TransactionHandler {
	return &TransactionHandler{service: s}
}

// List: страница таблицы в JSON. Отказ бэкенда приходит полем error, а не статусом.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	q, ok := parseTransactionQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.service.Page(r.Context(), q))
}

func (h *TransactionHandler) Fragment(w http.ResponseWriter, r *http.Request) {
	q, ok := parseTransactionQuery(w, r)
	if !ok {
		return
	}
	page := h.service.Page(r.Context(), q)
	writeHTML(w, func(w io.Writer) error { return view.Transactions(w, page) })
}

// parseTransactionQuery: ?page=N&customer_id=...&anomalies_only=true
func parseTransactionQuery(w http.ResponseWriter, r *http.Request) (domain.TransactionQuery, bool) {
	params := r.URL.Query()
	q := domain.TransactionQuery{Page: 1, CustomerID: params.Get("customer_id")}
	if v := params.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return q, false
		}
		q.Page = page
	}
	if v := params.Get("anomalies_only"); v != "" {
		only, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "anomalies_only must be a boolean")
			return q, false
		}
		q.AnomaliesOnly = only
	}
	return q, true
}

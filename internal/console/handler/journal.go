package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/xela07ax/anomaly-console/internal/journal"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

type JournalHandler struct {
	reader JournalReader
}

func NewJournalHandler(r JournalReader) *JournalHandler {
	return &JournalHandler{reader: r}
}

func (h *JournalHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxJournalLimit)
	}

	entries, err := h.reader.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch journal")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/anomaly-console/internal/console/service"
	"github.com/xela07ax/anomaly-console/internal/domain"
)

type ExportService interface {
	Export(ctx context.Context, kind domain.ExportKind, r domain.DateRange) (domain.Download, error)
}

type ExportHandler struct {
	service ExportService
}

func NewExportHandler(s ExportService) *ExportHandler {
	return &ExportHandler{service: s}
}

// Download отдаёт файл вложением. 404 бэкенда ("нет данных за период") пробрасывается как 404.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	kind := domain.ExportKind(chi.URLParam(r, "kind"))
	period := domain.DateRange{
		Start: r.URL.Query().Get("start_date"),
		End:   r.URL.Query().Get("end_date"),
	}

	file, err := h.service.Export(r.Context(), kind, period)
	if err != nil {
		var exportErr *service.ExportError
		switch {
		case errors.Is(err, service.ErrUnknownExport):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &exportErr) && (exportErr.Status == http.StatusNotFound || exportErr.Status == http.StatusBadRequest):
			writeError(w, exportErr.Status, exportErr.Message)
		case errors.As(err, &exportErr):
			writeError(w, http.StatusBadGateway, exportErr.Message)
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	_, _ = w.Write(file.Body)
}

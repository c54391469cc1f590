package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Lambodaran/AgileProject-sub001/internal/app"
	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"go.uber.org/zap"
)

// DashboardHandler serves the evaluated dashboard and reconciled results as JSON.
type DashboardHandler struct {
	engine *app.Engine
	logger *zap.Logger
}

func NewDashboardHandler(engine *app.Engine, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{engine: engine, logger: logger}
}

// Register mounts the dashboard routes on mux.
func (h *DashboardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dashboard", h.Dashboard)
	mux.HandleFunc("POST /api/dashboard/refresh", h.Refresh)
	mux.HandleFunc("GET /api/applications/{id}/result", h.Result)
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.Refresh(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *DashboardHandler) Result(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *DashboardHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrApplicationNotFound), errors.Is(err, domain.ErrQuizNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotAvailable), errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrWindowExpired), errors.Is(err, domain.ErrSessionBusy),
		errors.Is(err, domain.ErrSubmissionInFlight):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNetwork):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrEngineStopped):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("dashboard request failed", zap.Error(err))
	}
	writeJSON(w, status, errorPayload{Message: err.Error(), Kind: domain.ErrorKind(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"navette/internal/auth"
	"navette/internal/earnings/service"
	apperrors "navette/pkg/errors"
	httputil "navette/pkg/http"
	"navette/pkg/logger"
)

type EarningsHandler struct {
	service service.EarningsService
	auth    *auth.Middleware
	writer  *httputil.Writer
	log     *logger.Logger
}

func NewEarningsHandler(
	svc service.EarningsService,
	authMW *auth.Middleware,
	writer *httputil.Writer,
	log *logger.Logger,
) *EarningsHandler {
	return &EarningsHandler{
		service: svc,
		auth:    authMW,
		writer:  writer,
		log:     log,
	}
}

func (h *EarningsHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/drivers/me/stats", h.auth.RequireDriver(h.MyStats))
	router.GET("/api/v1/drivers/me/earnings", h.auth.RequireDriver(h.MyBreakdown))
	router.GET("/api/v1/drivers/me/earnings/history", h.auth.RequireDriver(h.MyHistory))
	router.GET("/api/v1/drivers/me/earnings/completed", h.auth.RequireDriver(h.MyCompletedEarnings))

	router.GET("/api/v1/drivers/id/:id/stats", h.auth.RequireAdmin(h.DriverStats))
	router.GET("/api/v1/drivers/id/:id/earnings/total", h.auth.RequireAdmin(h.FleetTotal))
}

func (h *EarningsHandler) MyStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.stats(w, r, auth.DriverID(r.Context()))
}

func (h *EarningsHandler) DriverStats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.stats(w, r, ps.ByName("id"))
}

func (h *EarningsHandler) stats(w http.ResponseWriter, r *http.Request, driverID string) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		h.writeError(w, "stats", err)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		h.writeError(w, "stats", err)
		return
	}

	stats, err := h.service.DriverStats(r.Context(), driverID, from, to)
	if err != nil {
		h.writeError(w, "stats", err)
		return
	}

	if err := h.writer.Success(w, stats); err != nil {
		h.log.Error("Failed to write response", "handler", "stats", "error", err)
	}
}

func (h *EarningsHandler) MyBreakdown(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	breakdown, err := h.service.WeeklyMonthlyBreakdown(r.Context(), auth.DriverID(r.Context()))
	if err != nil {
		h.writeError(w, "MyBreakdown", err)
		return
	}

	if err := h.writer.Success(w, breakdown); err != nil {
		h.log.Error("Failed to write response", "handler", "MyBreakdown", "error", err)
	}
}

func (h *EarningsHandler) MyHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		h.writeError(w, "MyHistory", err)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		h.writeError(w, "MyHistory", err)
		return
	}

	history, err := h.service.EarningsHistory(r.Context(), auth.DriverID(r.Context()), from, to)
	if err != nil {
		h.writeError(w, "MyHistory", err)
		return
	}

	if err := h.writer.List(w, history, len(history)); err != nil {
		h.log.Error("Failed to write response", "handler", "MyHistory", "error", err)
	}
}

func (h *EarningsHandler) MyCompletedEarnings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		h.writeError(w, "MyCompletedEarnings", err)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		h.writeError(w, "MyCompletedEarnings", err)
		return
	}

	report, err := h.service.CompletedEarnings(r.Context(), auth.DriverID(r.Context()), from, to)
	if err != nil {
		h.writeError(w, "MyCompletedEarnings", err)
		return
	}

	if err := h.writer.Success(w, report); err != nil {
		h.log.Error("Failed to write response", "handler", "MyCompletedEarnings", "error", err)
	}
}

func (h *EarningsHandler) FleetTotal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	total, err := h.service.FleetTotalEarnings(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "FleetTotal", err)
		return
	}

	if err := h.writer.Success(w, map[string]float64{"total_earnings": total}); err != nil {
		h.log.Error("Failed to write response", "handler", "FleetTotal", "error", err)
	}
}

func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}

	return nil, apperrors.InvalidInput("Invalid " + name + " parameter, expected YYYY-MM-DD")
}

func (h *EarningsHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := h.writer.Error(w, err); writeErr != nil {
		h.log.Error("Failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

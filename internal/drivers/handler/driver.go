package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"navette/internal/auth"
	bookingservice "navette/internal/bookings/service"
	"navette/internal/drivers/service"
	apperrors "navette/pkg/errors"
	httputil "navette/pkg/http"
	"navette/pkg/logger"
	"navette/pkg/middleware"
	"navette/pkg/model"
	"navette/pkg/sanitizer"
	"navette/pkg/token"
)

type DriverHandler struct {
	service      service.DriverService
	rides        bookingservice.BookingService
	auth         *auth.Middleware
	adminCreds   auth.AdminCredentials
	tokens       *token.Manager
	loginLimiter *middleware.RateLimiter
	writer       *httputil.Writer
	log          *logger.Logger
}

func NewDriverHandler(
	svc service.DriverService,
	rides bookingservice.BookingService,
	authMW *auth.Middleware,
	adminCreds auth.AdminCredentials,
	tokens *token.Manager,
	loginLimiter *middleware.RateLimiter,
	writer *httputil.Writer,
	log *logger.Logger,
) *DriverHandler {
	return &DriverHandler{
		service:      svc,
		rides:        rides,
		auth:         authMW,
		adminCreds:   adminCreds,
		tokens:       tokens,
		loginLimiter: loginLimiter,
		writer:       writer,
		log:          log,
	}
}

func (h *DriverHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/drivers/active", h.ActiveRoster)
	router.POST("/api/v1/drivers/login", h.Login)
	router.POST("/api/v1/admin/login", h.AdminLogin)

	router.GET("/api/v1/drivers/me", h.auth.RequireDriver(h.Me))
	router.PATCH("/api/v1/drivers/me", h.auth.RequireDriver(h.UpdateMe))
	router.GET("/api/v1/drivers/me/rides", h.auth.RequireDriver(h.MyRides))

	router.POST("/api/v1/drivers", h.auth.RequireAdmin(h.Create))
	router.GET("/api/v1/drivers", h.auth.RequireAdmin(h.GetAll))
	router.GET("/api/v1/drivers/id/:id", h.auth.RequireAdmin(h.GetByID))
	router.PATCH("/api/v1/drivers/id/:id", h.auth.RequireAdmin(h.Update))
	router.DELETE("/api/v1/drivers/id/:id", h.auth.RequireAdmin(h.Delete))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string        `json:"token"`
	Driver *model.Driver `json:"driver,omitempty"`
}

// Login is throttled per submitted email so one address cannot burn
// another account's attempts.
func (h *DriverHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Login", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if !h.loginLimiter.Allow(h.loginKey(r, req.Email)) {
		h.writeError(w, "Login", apperrors.New(
			"RATE_LIMITED",
			"Too many login attempts, please try again later",
			http.StatusTooManyRequests,
		))
		return
	}

	signed, driver, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}

	if err := h.writer.Success(w, loginResponse{Token: signed, Driver: driver}); err != nil {
		h.log.Error("Failed to write response", "handler", "Login", "error", err)
	}
}

func (h *DriverHandler) AdminLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "AdminLogin", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if !h.loginLimiter.Allow(h.loginKey(r, req.Email)) {
		h.writeError(w, "AdminLogin", apperrors.New(
			"RATE_LIMITED",
			"Too many login attempts, please try again later",
			http.StatusTooManyRequests,
		))
		return
	}

	if !h.adminCreds.Verify(req.Email, req.Password) {
		h.log.Warn("Admin login failed", "client", middleware.ClientKey(r))
		h.writeError(w, "AdminLogin", apperrors.Unauthorized("Invalid email or password"))
		return
	}

	signed, err := h.tokens.IssueAdmin(sanitizer.NormalizeEmail(req.Email))
	if err != nil {
		h.writeError(w, "AdminLogin", apperrors.Internal("Failed to issue token", err))
		return
	}

	if err := h.writer.Success(w, loginResponse{Token: signed}); err != nil {
		h.log.Error("Failed to write response", "handler", "AdminLogin", "error", err)
	}
}

func (h *DriverHandler) loginKey(r *http.Request, email string) string {
	if normalized := sanitizer.NormalizeEmail(email); normalized != "" {
		return "login:" + normalized
	}
	return "login:" + middleware.ClientKey(r)
}

func (h *DriverHandler) ActiveRoster(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	roster, err := h.service.ActiveRoster(r.Context())
	if err != nil {
		h.writeError(w, "ActiveRoster", err)
		return
	}

	if err := h.writer.List(w, roster, len(roster)); err != nil {
		h.log.Error("Failed to write response", "handler", "ActiveRoster", "error", err)
	}
}

func (h *DriverHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	driver, err := h.service.GetByID(r.Context(), auth.DriverID(r.Context()))
	if err != nil {
		h.writeError(w, "Me", err)
		return
	}

	if err := h.writer.Success(w, driver); err != nil {
		h.log.Error("Failed to write response", "handler", "Me", "error", err)
	}
}

func (h *DriverHandler) UpdateMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var update model.DriverUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, "UpdateMe", apperrors.InvalidInput("Invalid request body"))
		return
	}

	// Drivers cannot deactivate themselves through the profile path.
	update.Status = ""

	driver, err := h.service.Update(r.Context(), auth.DriverID(r.Context()), &update)
	if err != nil {
		h.writeError(w, "UpdateMe", err)
		return
	}

	if err := h.writer.Success(w, driver); err != nil {
		h.log.Error("Failed to write response", "handler", "UpdateMe", "error", err)
	}
}

func (h *DriverHandler) MyRides(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rides, err := h.rides.Rides(r.Context(), auth.DriverID(r.Context()))
	if err != nil {
		h.writeError(w, "MyRides", err)
		return
	}

	if err := h.writer.Success(w, rides); err != nil {
		h.log.Error("Failed to write response", "handler", "MyRides", "error", err)
	}
}

func (h *DriverHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input service.CreateDriverInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	driver, err := h.service.Create(r.Context(), &input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.writer.Created(w, driver); err != nil {
		h.log.Error("Failed to write response", "handler", "Create", "error", err)
	}
}

func (h *DriverHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, "GetAll", apperrors.InvalidInput("Invalid limit parameter"))
			return
		}
		limit = n
	}

	var offset int64
	if raw := query.Get("offset"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, "GetAll", apperrors.InvalidInput("Invalid offset parameter"))
			return
		}
		offset = n
	}

	drivers, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := h.writer.List(w, drivers, int(total)); err != nil {
		h.log.Error("Failed to write response", "handler", "GetAll", "error", err)
	}
}

func (h *DriverHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	detail, err := h.service.GetWithRides(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := h.writer.Success(w, detail); err != nil {
		h.log.Error("Failed to write response", "handler", "GetByID", "error", err)
	}
}

func (h *DriverHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.DriverUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	driver, err := h.service.Update(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := h.writer.Success(w, driver); err != nil {
		h.log.Error("Failed to write response", "handler", "Update", "error", err)
	}
}

func (h *DriverHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.writer.NoContent(w); err != nil {
		h.log.Error("Failed to write response", "handler", "Delete", "error", err)
	}
}

func (h *DriverHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := h.writer.Error(w, err); writeErr != nil {
		h.log.Error("Failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

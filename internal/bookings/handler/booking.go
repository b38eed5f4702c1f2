package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"navette/internal/auth"
	"navette/internal/bookings/service"
	apperrors "navette/pkg/errors"
	httputil "navette/pkg/http"
	"navette/pkg/logger"
	"navette/pkg/middleware"
	"navette/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	auth    *auth.Middleware
	limiter *middleware.RateLimiter
	writer  *httputil.Writer
	log     *logger.Logger
}

func NewBookingHandler(
	svc service.BookingService,
	authMW *auth.Middleware,
	limiter *middleware.RateLimiter,
	writer *httputil.Writer,
	log *logger.Logger,
) *BookingHandler {
	return &BookingHandler{
		service: svc,
		auth:    authMW,
		limiter: limiter,
		writer:  writer,
		log:     log,
	}
}

// RegisterRoutes wires booking endpoints. Creation is deliberately
// unauthenticated (guest checkout) but rate limited per caller; reads
// carry client contact details and require a token.
func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.rateLimited(h.Create))
	router.POST("/api/v1/bookings/linked", h.rateLimited(h.CreateLinkedPair))
	router.GET("/api/v1/bookings", h.auth.Require(h.GetAll))
	router.GET("/api/v1/bookings/id/:id", h.auth.Require(h.GetByID))

	router.GET("/api/v1/bookings/group/:groupId", h.auth.RequireAdmin(h.GetLinked))
	router.PATCH("/api/v1/bookings/id/:id/confirm", h.auth.RequireAdmin(h.Confirm))
	router.PATCH("/api/v1/bookings/id/:id/status", h.auth.RequireAdmin(h.SetStatus))
	router.PATCH("/api/v1/bookings/id/:id/assign", h.auth.RequireAdmin(h.AssignDriver))
	router.PATCH("/api/v1/bookings/id/:id/pickup-time", h.auth.RequireAdmin(h.UpdatePickupTime))
	router.PATCH("/api/v1/bookings/id/:id/earnings", h.auth.RequireAdmin(h.UpdateEarnings))
	router.POST("/api/v1/bookings/id/:id/review-request", h.auth.RequireAdmin(h.SendReviewRequest))
	router.DELETE("/api/v1/bookings/id/:id", h.auth.RequireAdmin(h.Delete))

	router.PATCH("/api/v1/bookings/id/:id/complete", h.auth.RequireDriver(h.Complete))
	router.PATCH("/api/v1/bookings/id/:id/cancel", h.auth.RequireDriver(h.Cancel))
}

func (h *BookingHandler) rateLimited(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !h.limiter.Allow(middleware.ClientKey(r)) {
			h.writeError(w, "rateLimited", apperrors.New(
				"RATE_LIMITED",
				"Too many requests, please try again later",
				http.StatusTooManyRequests,
			))
			return
		}
		next(w, r, ps)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var booking model.Booking
	if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Create(r.Context(), &booking); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.writer.Created(w, booking); err != nil {
		h.log.Error("Failed to write response", "handler", "Create", "error", err)
	}
}

type linkedPairRequest struct {
	Outbound model.Booking `json:"outbound"`
	Inbound  model.Booking `json:"inbound"`
}

func (h *BookingHandler) CreateLinkedPair(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req linkedPairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "CreateLinkedPair", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.CreateLinkedPair(r.Context(), &req.Outbound, &req.Inbound); err != nil {
		h.writeError(w, "CreateLinkedPair", err)
		return
	}

	if err := h.writer.Created(w, []model.Booking{req.Outbound, req.Inbound}); err != nil {
		h.log.Error("Failed to write response", "handler", "CreateLinkedPair", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	// A driver's listing is scoped to their own assignments.
	if !auth.IsAdmin(r.Context()) {
		bookings, err := h.service.ListForDriver(r.Context(), auth.DriverID(r.Context()), query.Get("status"))
		if err != nil {
			h.writeError(w, "GetAll", err)
			return
		}

		if err := h.writer.List(w, bookings, len(bookings)); err != nil {
			h.log.Error("Failed to write response", "handler", "GetAll", "error", err)
		}
		return
	}

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

	bookings, total, err := h.service.GetAll(r.Context(), query.Get("status"), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := h.writer.List(w, bookings, int(total)); err != nil {
		h.log.Error("Failed to write response", "handler", "GetAll", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	booking, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	// A booking not owned by the calling driver reads as missing.
	if !auth.IsAdmin(r.Context()) && booking.DriverID != auth.DriverID(r.Context()) {
		h.writeError(w, "GetByID", apperrors.NotFoundWithID("Booking", id))
		return
	}

	if err := h.writer.Success(w, booking); err != nil {
		h.log.Error("Failed to write response", "handler", "GetByID", "error", err)
	}
}

func (h *BookingHandler) GetLinked(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookings, err := h.service.GetLinked(r.Context(), ps.ByName("groupId"))
	if err != nil {
		h.writeError(w, "GetLinked", err)
		return
	}

	if err := h.writer.List(w, bookings, len(bookings)); err != nil {
		h.log.Error("Failed to write response", "handler", "GetLinked", "error", err)
	}
}

type confirmRequest struct {
	PickupTime string `json:"pickup_time"`
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Confirm", apperrors.InvalidInput("Invalid request body"))
		return
	}

	result, err := h.service.Confirm(r.Context(), ps.ByName("id"), req.PickupTime)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	if err := h.writer.Success(w, result); err != nil {
		h.log.Error("Failed to write response", "handler", "Confirm", "error", err)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *BookingHandler) SetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "SetStatus", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.SetStatus(r.Context(), ps.ByName("id"), req.Status)
	if err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}

	if err := h.writer.Success(w, booking); err != nil {
		h.log.Error("Failed to write response", "handler", "SetStatus", "error", err)
	}
}

type assignRequest struct {
	DriverID string `json:"driver_id"`
}

func (h *BookingHandler) AssignDriver(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "AssignDriver", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.AssignDriver(r.Context(), ps.ByName("id"), req.DriverID)
	if err != nil {
		h.writeError(w, "AssignDriver", err)
		return
	}

	if err := h.writer.Success(w, booking); err != nil {
		h.log.Error("Failed to write response", "handler", "AssignDriver", "error", err)
	}
}

func (h *BookingHandler) UpdatePickupTime(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "UpdatePickupTime", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.UpdatePickupTime(r.Context(), ps.ByName("id"), req.PickupTime)
	if err != nil {
		h.writeError(w, "UpdatePickupTime", err)
		return
	}

	if err := h.writer.Success(w, booking); err != nil {
		h.log.Error("Failed to write response", "handler", "UpdatePickupTime", "error", err)
	}
}

type earningsRequest struct {
	Amount float64 `json:"amount"`
	Status string  `json:"status,omitempty"`
}

func (h *BookingHandler) UpdateEarnings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req earningsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "UpdateEarnings", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.UpdateDriverEarnings(r.Context(), ps.ByName("id"), req.Amount, req.Status)
	if err != nil {
		h.writeError(w, "UpdateEarnings", err)
		return
	}

	if err := h.writer.Success(w, booking); err != nil {
		h.log.Error("Failed to write response", "handler", "UpdateEarnings", "error", err)
	}
}

type completeRequest struct {
	Rating  *int   `json:"rating,omitempty"`
	Comment string `json:"comment,omitempty"`
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Complete", apperrors.InvalidInput("Invalid request body"))
		return
	}

	driverID := auth.DriverID(r.Context())

	booking, err := h.service.Complete(r.Context(), ps.ByName("id"), driverID, req.Rating, req.Comment)
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	if err := h.writer.Success(w, booking); err != nil {
		h.log.Error("Failed to write response", "handler", "Complete", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	driverID := auth.DriverID(r.Context())

	booking, err := h.service.CancelByDriver(r.Context(), ps.ByName("id"), driverID)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := h.writer.Success(w, booking); err != nil {
		h.log.Error("Failed to write response", "handler", "Cancel", "error", err)
	}
}

func (h *BookingHandler) SendReviewRequest(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.SendReviewRequest(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "SendReviewRequest", err)
		return
	}

	if err := h.writer.Success(w, map[string]string{"message": "Review request sent"}); err != nil {
		h.log.Error("Failed to write response", "handler", "SendReviewRequest", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.writer.NoContent(w); err != nil {
		h.log.Error("Failed to write response", "handler", "Delete", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := h.writer.Error(w, err); writeErr != nil {
		h.log.Error("Failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

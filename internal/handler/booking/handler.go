package booking

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/datastore"
	"github.com/jwalitptl/telehealth-api/internal/handler"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/booking"
	"github.com/jwalitptl/telehealth-api/pkg/auth"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

// StatusSetter force-sets a booking status outside the workflow table.
type StatusSetter interface {
	ForceSetStatus(ctx context.Context, id uuid.UUID, status model.Status) (datastore.Result, error)
}

type Handler struct {
	service *booking.Service
	status  StatusSetter
}

func NewHandler(service *booking.Service, status StatusSetter) *Handler {
	return &Handler{service: service, status: status}
}

// RegisterRoutes mounts the booking routes. adminOnly guards the force-set endpoint.
func (h *Handler) RegisterRoutes(r gin.IRouter, adminOnly gin.HandlerFunc) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/stats", h.Stats)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id", h.UpdateBooking)
		bookings.DELETE("/:id", h.DeleteBooking)
		bookings.PUT("/:id/status", adminOnly, h.SetStatus)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req model.CreateBookingRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	userID, _ := middleware.UserID(c)
	created, err := h.service.CreateBooking(c.Request.Context(), &req, userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, b)
}

// ListBookings accepts ?mine=true, ?status= and ?type=; the first present wins.
func (h *Handler) ListBookings(c *gin.Context) {
	var filter booking.ListFilter

	if c.Query("mine") == "true" {
		userID, ok := middleware.UserID(c)
		if !ok {
			httputil.RespondWithError(c, apperrors.Unauthorized(errors.New("no authenticated user")))
			return
		}
		filter.CreatedBy = &userID
	}
	if s := c.Query("status"); s != "" {
		status, err := model.ParseStatus(s)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
			return
		}
		filter.Status = &status
	}
	if t := c.Query("type"); t != "" {
		bt, err := model.ParseBookingType(t)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
			return
		}
		filter.BookingType = &bt
	}

	bookings, err := h.service.ListBookings(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bookings)
}

func (h *Handler) UpdateBooking(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	var update model.BookingUpdate
	if !handler.BindJSON(c, &update) {
		return
	}
	if update.Status != nil && c.GetString(middleware.ContextRole) != auth.RoleAdmin {
		httputil.RespondWithError(c, apperrors.Forbidden("status changes go through the queue workflow"))
		return
	}

	updated, err := h.service.UpdateBooking(c.Request.Context(), id, update)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, updated)
}

func (h *Handler) DeleteBooking(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteBooking(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) SetStatus(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	var req setStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	res, err := h.status.ForceSetStatus(c.Request.Context(), id, model.Status(req.Status))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, res)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}

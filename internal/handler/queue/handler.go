package queue

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/telehealth-api/internal/datastore"
	"github.com/jwalitptl/telehealth-api/internal/handler"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/queueview"
	"github.com/jwalitptl/telehealth-api/internal/service/notification"
	"github.com/jwalitptl/telehealth-api/internal/service/queue"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

type Handler struct {
	queue         *queue.Service
	view          *datastore.Store
	notifications *notification.Service
	now           func() time.Time
}

func NewHandler(queueSvc *queue.Service, view *datastore.Store, notifications *notification.Service) *Handler {
	return &Handler{
		queue:         queueSvc,
		view:          view,
		notifications: notifications,
		now:           time.Now,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	q := r.Group("/queue")
	{
		q.GET("", h.Groups)
		q.GET("/stats", h.Stats)
		q.GET("/next", h.NextPatient)
		q.POST("/advance", h.Advance)
		q.POST("/bookings/:id/:action", h.Transition)
		q.GET("/bookings/:id/wait-time", h.WaitTime)

		q.GET("/tabs/:tab", h.Tab)
		q.GET("/in-office/groups", h.InOfficeGroups)
		q.GET("/providers", h.Providers)
		q.POST("/refresh", h.Refresh)
		q.PUT("/visibility", h.SetVisibility)

		q.GET("/notifications", h.Notifications)
		q.DELETE("/notifications/:id", h.DismissNotification)
	}
}

func (h *Handler) Groups(c *gin.Context) {
	groups, err := h.queue.QueueByStatus(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, groups)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.queue.Stats(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}

// NextPatient answers with null data when nobody is ready for the provider.
func (h *Handler) NextPatient(c *gin.Context) {
	next, err := h.queue.NextPatient(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"booking": next})
}

func (h *Handler) Advance(c *gin.Context) {
	advanced, err := h.queue.AutoAdvanceQueue(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"advanced": advanced})
}

func (h *Handler) Transition(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	action, err := queue.ParseAction(c.Param("action"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	res, err := h.queue.Transition(c.Request.Context(), id, action)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, res)
}

type waitTimeResponse struct {
	EstimatedMinutes int    `json:"estimated_minutes"`
	Estimated        string `json:"estimated"`
	queueview.WaitTime
}

func (h *Handler) WaitTime(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	minutes, err := h.queue.EstimatedWaitTime(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resp := waitTimeResponse{
		EstimatedMinutes: minutes,
		Estimated:        queueview.FormatDuration(minutes),
	}
	if b, found := h.view.Snapshot().Booking(id); found {
		resp.WaitTime = queueview.WaitTimes(b, h.now())
	}
	httputil.RespondWithSuccess(c, resp)
}

// Tab lists one dashboard tab from the current snapshot. Repeated ?status=,
// ?provider= and ?q= narrow the result.
func (h *Handler) Tab(c *gin.Context) {
	tab, err := queueview.ParseTab(c.Param("tab"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	snap := h.view.Snapshot()
	bookings := queueview.FilterBookings(queueview.TabBookings(snap.Bookings, tab), filters)
	httputil.RespondWithSuccess(c, gin.H{
		"tab":       tab,
		"count":     len(bookings),
		"bookings":  bookings,
		"loaded_at": snap.LoadedAt,
	})
}

func parseFilters(c *gin.Context) (model.QueueFilters, error) {
	var f model.QueueFilters
	for _, s := range c.QueryArray("status") {
		status, err := model.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, status)
	}
	if provider, ok := c.GetQuery("provider"); ok && provider != "" {
		f.ProviderName = &provider
	}
	f.PatientNameSearch = c.Query("q")
	return f, nil
}

func (h *Handler) InOfficeGroups(c *gin.Context) {
	snap := h.view.Snapshot()
	httputil.RespondWithSuccess(c, queueview.GroupInOffice(queueview.TabBookings(snap.Bookings, queueview.TabInOffice)))
}

func (h *Handler) Providers(c *gin.Context) {
	httputil.RespondWithSuccess(c, queueview.Providers(h.view.Snapshot().Bookings))
}

func (h *Handler) Refresh(c *gin.Context) {
	if err := h.view.Refresh(c.Request.Context()); err != nil {
		if errors.Is(err, datastore.ErrNotRunning) {
			httputil.RespondWithError(c, apperrors.Conflict("dashboard view is not running", err))
			return
		}
		httputil.RespondWithError(c, apperrors.Internal(fmt.Errorf("failed to refresh dashboard view: %w", err)))
		return
	}
	snap := h.view.Snapshot()
	httputil.RespondWithSuccess(c, gin.H{"stats": snap.Stats, "loaded_at": snap.LoadedAt})
}

type visibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// SetVisibility pauses or resumes background polling of the dashboard view.
func (h *Handler) SetVisibility(c *gin.Context) {
	var req visibilityRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	h.view.SetVisible(*req.Visible)
	httputil.RespondWithSuccess(c, gin.H{"visible": h.view.Visible()})
}

func (h *Handler) Notifications(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.notifications.List())
}

func (h *Handler) DismissNotification(c *gin.Context) {
	if !h.notifications.Dismiss(c.Param("id")) {
		httputil.RespondWithError(c, apperrors.NotFound("notification", nil))
		return
	}
	c.Status(http.StatusNoContent)
}

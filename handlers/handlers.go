package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"violation-dashboard/geospatial"
	"violation-dashboard/middleware"
	"violation-dashboard/models"
	"violation-dashboard/services"
	"violation-dashboard/upstream"
	"violation-dashboard/viewstate"
)

// SessionHeader carries the dashboard session id. A request without one gets
// a fresh session whose id is echoed back in the response.
const SessionHeader = "X-Session-ID"

// DashboardHandler serves the dashboard HTTP surface.
type DashboardHandler struct {
	service *services.DashboardService
	client  *upstream.Client
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(service *services.DashboardService, client *upstream.Client) *DashboardHandler {
	return &DashboardHandler{service: service, client: client}
}

// HealthHandler handles health check requests.
func (h *DashboardHandler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Message: "Violation Dashboard service is running",
		Service: "violation-dashboard",
	})
}

// ViolationsHandler returns the current page of the violations tab.
func (h *DashboardHandler) ViolationsHandler(c *gin.Context) {
	ctrl := h.session(c)
	view, err := h.service.Violations(c.Request.Context(), ctrl)
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UsersHandler returns the current page of the users tab.
func (h *DashboardHandler) UsersHandler(c *gin.Context) {
	ctrl := h.session(c)
	view, err := h.service.Users(c.Request.Context(), ctrl)
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AnalyticsHandler returns the aggregated analytics view.
func (h *DashboardHandler) AnalyticsHandler(c *gin.Context) {
	ctrl := h.session(c)
	view, err := h.service.Analytics(c.Request.Context(), ctrl, c.Query("period"))
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// MapHandler returns clustered markers for the requested viewport.
func (h *DashboardHandler) MapHandler(c *gin.Context) {
	ctrl := h.session(c)

	var vp geospatial.ViewPort
	if err := c.BindQuery(&vp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid viewport"})
		return
	}
	if vp.LatMax <= vp.LatMin || vp.LonMax <= vp.LonMin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "viewport must span a positive area"})
		return
	}

	view, err := h.service.Map(c.Request.Context(), ctrl, &vp, c.Query("grid") == "true")
	if err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteViolationHandler proxies a violation deletion to the backend.
func (h *DashboardHandler) DeleteViolationHandler(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	id := c.Param("id")
	log.Printf("INFO: user %s deleting violation %s", userID, id)

	if err := h.client.DeleteViolation(c.Request.Context(), id); err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteUserHandler proxies a user deletion to the backend.
func (h *DashboardHandler) DeleteUserHandler(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	id := c.Param("id")
	log.Printf("INFO: user %s deleting user %s", userID, id)

	if err := h.client.DeleteUser(c.Request.Context(), id); err != nil {
		h.fetchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// session resolves the controller for the request and echoes its id so the
// client can carry it forward.
func (h *DashboardHandler) session(c *gin.Context) *viewstate.Controller {
	ctrl := h.service.Session(c.GetHeader(SessionHeader))
	c.Header(SessionHeader, ctrl.Session)
	return ctrl
}

// fetchError maps service failures onto responses: superseded fetches are
// reported as 409 so the client just drops them, backend failures keep the
// server message, everything else is a plain 502.
func (h *DashboardHandler) fetchError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrSuperseded) {
		c.JSON(http.StatusConflict, gin.H{"error": "superseded by a newer request"})
		return
	}
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = "backend request failed"
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": msg})
		return
	}
	log.Printf("ERROR: backend fetch failed: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
}

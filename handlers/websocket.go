package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"violation-dashboard/middleware"
	"violation-dashboard/models"
	"violation-dashboard/services"
)

// WebSocketHandler handles WebSocket connections.
type WebSocketHandler struct {
	hub *services.WebSocketHub
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(hub *services.WebSocketHub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ListenViolations upgrades the connection and streams new violation batches.
func (h *WebSocketHandler) ListenViolations(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	log.Printf("INFO: WebSocket connection request from user %s", userID)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins for now
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading connection to WebSocket: %v", err)
		return
	}

	h.hub.RegisterClient(conn, userID)
}

// HealthCheck reports hub connectivity.
func (h *WebSocketHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:           "healthy",
		Message:          "Violation Dashboard WebSocket service is running",
		Service:          "violation-dashboard-websocket",
		ConnectedClients: h.hub.GetConnectedClientsCount(),
	})
}

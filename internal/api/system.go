package api

import (
	"net/http"

	"slimechat/backend/internal/chat"
	"slimechat/backend/internal/store"
	"slimechat/backend/pkg/errors"
	"slimechat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SystemController carries the key-authenticated operator endpoints: server
// broadcasts and storage maintenance.
type SystemController struct {
	messages store.MessageRepository
	hub      *chat.Hub
	log      *logger.Logger
	apiKey   string
}

func NewSystemController(messages store.MessageRepository, hub *chat.Hub, apiKey string, log *logger.Logger) *SystemController {
	return &SystemController{
		messages: messages,
		hub:      hub,
		log:      log,
		apiKey:   apiKey,
	}
}

// RegisterRoutes registers the routes for the system controller
func (sc *SystemController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api")
	group.Use(RequireKey(sc.apiKey))
	{
		group.POST("/server-message", sc.SendServerMessage)
		group.POST("/system/vacuum", sc.Vacuum)
	}
}

// ServerMessageRequest carries content for a system broadcast
type ServerMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// SendServerMessage persists and broadcasts a message as the system identity
func (sc *SystemController) SendServerMessage(c *gin.Context) {
	var req ServerMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("message is required"))
		return
	}

	sc.log.Info("server broadcast requested", "length", len(req.Message))

	message, err := sc.hub.BroadcastSystem(c.Request.Context(), req.Message)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, message)
}

// Vacuum triggers storage space reclamation outside the retention schedule
func (sc *SystemController) Vacuum(c *gin.Context) {
	sc.log.Info("manual vacuum requested")

	if err := sc.messages.Vacuum(c.Request.Context()); err != nil {
		c.Error(errors.NewStorageError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "vacuumed"})
}

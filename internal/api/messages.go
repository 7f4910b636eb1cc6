package api

import (
	"net/http"
	"strconv"

	"slimechat/backend/internal/chat"
	"slimechat/backend/internal/store"
	"slimechat/backend/pkg/errors"
	"slimechat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// MessageController is the request/response surface over the message log. It
// reads and writes through the same storage gateway the hub appends to, and
// notifies live clients through the hub when an admin mutates the log.
type MessageController struct {
	messages  store.MessageRepository
	hub       *chat.Hub
	sanitizer *chat.Sanitizer
	log       *logger.Logger

	historyMax int
	apiKey     string
}

func NewMessageController(messages store.MessageRepository, hub *chat.Hub, sanitizer *chat.Sanitizer, historyMax int, apiKey string, log *logger.Logger) *MessageController {
	return &MessageController{
		messages:   messages,
		hub:        hub,
		sanitizer:  sanitizer,
		log:        log,
		historyMax: historyMax,
		apiKey:     apiKey,
	}
}

// RegisterRoutes registers the routes for the message controller
func (mc *MessageController) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/messages")
	{
		group.GET("", mc.GetHistory)
		group.GET("/user/:userId", mc.GetUserHistory)
	}

	admin := router.Group("/api/messages")
	admin.Use(RequireKey(mc.apiKey))
	{
		admin.PUT("/:id", mc.UpdateMessage)
		admin.DELETE("/:id", mc.DeleteMessage)
	}
}

// clampCount bounds the requested page size to [1, historyMax]
func (mc *MessageController) clampCount(c *gin.Context) int {
	count := mc.historyMax
	if raw := c.Query("count"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			count = parsed
		}
	}
	if count < 1 {
		count = 1
	}
	if count > mc.historyMax {
		count = mc.historyMax
	}
	return count
}

// GetHistory returns the newest messages, newest first
func (mc *MessageController) GetHistory(c *gin.Context) {
	messages, err := mc.messages.ListRecent(c.Request.Context(), mc.clampCount(c))
	if err != nil {
		c.Error(errors.NewStorageError(err))
		return
	}
	c.JSON(http.StatusOK, messages)
}

// GetUserHistory returns the newest messages for one user, newest first
func (mc *MessageController) GetUserHistory(c *gin.Context) {
	userID := c.Param("userId")

	messages, err := mc.messages.ListByUser(c.Request.Context(), userID, mc.clampCount(c))
	if err != nil {
		c.Error(errors.NewStorageError(err))
		return
	}
	if len(messages) == 0 {
		c.Error(errors.NewNotFoundError("no messages for user " + userID))
		return
	}
	c.JSON(http.StatusOK, messages)
}

// UpdateMessageRequest carries the replacement content for an edit
type UpdateMessageRequest struct {
	NewContent string `json:"newContent" binding:"required"`
}

// UpdateMessage replaces a message's content and broadcasts the edit
func (mc *MessageController) UpdateMessage(c *gin.Context) {
	id := c.Param("id")

	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("newContent is required"))
		return
	}

	content := mc.sanitizer.Content(req.NewContent)
	message, err := mc.messages.UpdateContent(c.Request.Context(), id, content)
	if err != nil {
		if err == store.ErrNotFound {
			c.Error(errors.NewNotFoundError("message " + id + " not found"))
			return
		}
		c.Error(errors.NewStorageError(err))
		return
	}

	mc.log.Info("message updated", "message_id", message.ID, "name", message.Name)
	mc.hub.BroadcastUpdated(message)

	c.JSON(http.StatusOK, message)
}

// DeleteMessage removes a message and broadcasts the removal
func (mc *MessageController) DeleteMessage(c *gin.Context) {
	id := c.Param("id")

	message, err := mc.messages.FindByID(c.Request.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			c.Error(errors.NewNotFoundError("message " + id + " not found"))
			return
		}
		c.Error(errors.NewStorageError(err))
		return
	}

	if err := mc.messages.Delete(c.Request.Context(), id); err != nil {
		c.Error(errors.NewStorageError(err))
		return
	}

	mc.log.Info("message deleted", "message_id", message.ID, "name", message.Name)
	mc.hub.BroadcastRemoved(message)

	c.Status(http.StatusNoContent)
}

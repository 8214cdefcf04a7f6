package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/dispatch"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/ws"
)

type MessageHandler struct {
	cfg *config.Config
	db  *gorm.DB
	hub *ws.Hub
}

func NewMessageHandler(cfg *config.Config, db *gorm.DB, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{cfg: cfg, db: db, hub: hub}
}

// SendMessage runs one outbound dispatch through the pipeline.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	tc := resolveTenant(c, h.db)
	if tc == nil {
		return
	}

	var req dispatch.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dispatcher := buildDispatcher(h.cfg, h.db, tc)
	resp, err := dispatcher.Send(c.Request.Context(), &req)
	if err != nil {
		zap.L().Warn("dispatch failed",
			zap.Uint("agent_id", tc.Agent.ID),
			zap.String("type", req.Type),
			zap.Error(err))
		dispatchError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastEvent("dispatch_completed", tc.Agent.ID, resp)
	}
	c.JSON(http.StatusOK, resp)
}

// GetConversation returns a customer's thread in chronological order.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	tc := resolveTenant(c, h.db)
	if tc == nil {
		return
	}

	customerID, err := strconv.ParseUint(c.Param("customerId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	messages, err := tc.Repo.MessagesByCustomer(uint(customerID), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	c.JSON(http.StatusOK, messages)
}

// MarkRead flips is_read on the customer's unread inbound messages.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	tc := resolveTenant(c, h.db)
	if tc == nil {
		return
	}

	customerID, err := strconv.ParseUint(c.Param("customerId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}

	if err := tc.Repo.MarkRead(uint(customerID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

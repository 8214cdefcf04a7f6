package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/models"
)

type AgentHandler struct {
	db *gorm.DB
}

func NewAgentHandler(db *gorm.DB) *AgentHandler {
	return &AgentHandler{db: db}
}

type provisionRequest struct {
	Name               string  `json:"name" binding:"required"`
	TablePrefix        string  `json:"table_prefix" binding:"required"`
	Credits            float64 `json:"credits"`
	APIKey             string  `json:"api_key" binding:"required"`
	PhoneNumberID      string  `json:"phone_number_id" binding:"required"`
	BusinessAccountID  string  `json:"business_account_id" binding:"required"`
	DefaultCountryCode string  `json:"default_country_code"`
}

// Provision creates an agent, its provider config and its tenant tables.
func (h *AgentHandler) Provision(c *gin.Context) {
	var req provisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agent := &models.Agent{
		Name:        req.Name,
		TablePrefix: database.SanitizePrefix(req.TablePrefix),
		Credits:     req.Credits,
		IsActive:    true,
	}
	cfg := &models.WhatsAppConfig{
		APIKey:             req.APIKey,
		PhoneNumberID:      req.PhoneNumberID,
		BusinessAccountID:  req.BusinessAccountID,
		DefaultCountryCode: req.DefaultCountryCode,
		IsActive:           true,
	}

	if err := database.NewAgentStore(h.db).Provision(agent, cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provisioning failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, agent)
}

func (h *AgentHandler) GetAgent(c *gin.Context) {
	tc := resolveTenant(c, h.db)
	if tc == nil {
		return
	}
	c.JSON(http.StatusOK, tc.Agent)
}

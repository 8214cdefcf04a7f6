package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/dispatch"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/storage"
	"whatsapp-crm/internal/whatsapp"
)

// tenantContext bundles everything a handler needs for one agent.
type tenantContext struct {
	Agent  *models.Agent
	Config *models.WhatsAppConfig
	Repo   *database.TenantRepo
}

// resolveTenant loads the agent named by the :agentId path param. It
// writes the error response itself; callers just return on nil.
func resolveTenant(c *gin.Context, db *gorm.DB) *tenantContext {
	id, err := strconv.ParseUint(c.Param("agentId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agent id"})
		return nil
	}

	agents := database.NewAgentStore(db)
	agent, err := agents.AgentByID(uint(id))
	if err != nil || !agent.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		return nil
	}

	cfg, err := agents.ConfigByAgent(agent.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent has no active provider config"})
		return nil
	}

	return &tenantContext{
		Agent:  agent,
		Config: cfg,
		Repo:   database.NewTenantRepo(db, agent),
	}
}

// buildDispatcher assembles the send pipeline for one tenant.
func buildDispatcher(appCfg *config.Config, db *gorm.DB, tc *tenantContext) *dispatch.Dispatcher {
	client := whatsapp.NewClient(appCfg.GraphAPIBase, tc.Config.APIKey, tc.Config.PhoneNumberID, tc.Config.BusinessAccountID)

	var store storage.ObjectStore
	if appCfg.StorageEndpoint != "" {
		store = storage.NewHTTPStore(appCfg.StorageEndpoint, appCfg.StorageBucket, appCfg.StorageKey)
	}
	resolver := dispatch.NewMediaResolver(client, store, database.SanitizePrefix(tc.Agent.TablePrefix))

	return dispatch.NewDispatcher(
		tc.Agent.ID,
		tc.Repo,
		database.NewTemplateStore(db),
		database.NewCreditLedger(db),
		client,
		resolver,
		tc.Config.DefaultCountryCode,
	)
}

// dispatchError maps a pipeline error onto the HTTP response shape.
func dispatchError(c *gin.Context, err error) {
	c.JSON(dispatch.HTTPStatus(err), gin.H{
		"success": false,
		"code":    dispatch.ErrorCode(err),
		"error":   err.Error(),
	})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/syncer"
)

type TemplateHandler struct {
	db     *gorm.DB
	syncer *syncer.Syncer
}

func NewTemplateHandler(db *gorm.DB, s *syncer.Syncer) *TemplateHandler {
	return &TemplateHandler{db: db, syncer: s}
}

// ListTemplates returns the agent's cached template definitions.
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	tc := resolveTenant(c, h.db)
	if tc == nil {
		return
	}

	templates, err := database.NewTemplateStore(h.db).ListByAgent(tc.Agent.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load templates"})
		return
	}
	if templates == nil {
		templates = []models.Template{}
	}

	c.JSON(http.StatusOK, templates)
}

// SyncTemplates refreshes one agent's cache from the provider on demand,
// outside the scheduled resync.
func (h *TemplateHandler) SyncTemplates(c *gin.Context) {
	tc := resolveTenant(c, h.db)
	if tc == nil {
		return
	}

	if err := h.syncer.SyncAgent(c.Request.Context(), tc.Config); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "template sync failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "synced"})
}

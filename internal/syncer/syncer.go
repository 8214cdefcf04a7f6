package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/whatsapp"
)

// Syncer refreshes each agent's cached template definitions from the
// provider. Only APPROVED templates become active; the dispatch pipeline
// reads the cache exclusively and never calls the provider for templates.
type Syncer struct {
	cfg       *config.Config
	agents    *database.AgentStore
	templates *database.TemplateStore
	cron      *cron.Cron
}

func New(cfg *config.Config, db *gorm.DB) *Syncer {
	return &Syncer{
		cfg:       cfg,
		agents:    database.NewAgentStore(db),
		templates: database.NewTemplateStore(db),
		cron:      cron.New(),
	}
}

// Start schedules periodic resync and fires one immediate pass in the
// background.
func (s *Syncer) Start() error {
	spec := "@every " + s.cfg.TemplateSyncInterval
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.SyncAll(context.Background()); err != nil {
			zap.L().Error("template sync pass failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule template sync: %w", err)
	}
	s.cron.Start()
	go func() {
		if err := s.SyncAll(context.Background()); err != nil {
			zap.L().Error("initial template sync failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Syncer) Stop() {
	s.cron.Stop()
}

// SyncAll walks every active provider config and refreshes its agent's
// template cache. Per-agent failures are logged and do not stop the pass.
func (s *Syncer) SyncAll(ctx context.Context) error {
	configs, err := s.agents.ActiveConfigs()
	if err != nil {
		return fmt.Errorf("list active configs: %w", err)
	}
	for _, cfg := range configs {
		if err := s.SyncAgent(ctx, &cfg); err != nil {
			zap.L().Warn("template sync failed for agent",
				zap.Uint("agent_id", cfg.AgentID), zap.Error(err))
		}
	}
	return nil
}

// SyncAgent pulls the agent's template list from the provider and upserts
// each definition into the cache.
func (s *Syncer) SyncAgent(ctx context.Context, cfg *models.WhatsAppConfig) error {
	client := whatsapp.NewClient(s.cfg.GraphAPIBase, cfg.APIKey, cfg.PhoneNumberID, cfg.BusinessAccountID)
	raw, err := client.ListTemplates(ctx)
	if err != nil {
		return err
	}

	data := cast.ToSlice(raw["data"])
	synced := 0
	for _, item := range data {
		entry := cast.ToStringMap(item)
		tmpl, err := templateFromProvider(cfg.AgentID, entry)
		if err != nil {
			zap.L().Warn("skipping unparsable template entry", zap.Error(err))
			continue
		}
		if err := s.templates.Upsert(tmpl); err != nil {
			return fmt.Errorf("upsert template %s: %w", tmpl.Name, err)
		}
		synced++
	}

	zap.L().Info("template cache refreshed",
		zap.Uint("agent_id", cfg.AgentID), zap.Int("templates", synced))
	return nil
}

func templateFromProvider(agentID uint, entry map[string]interface{}) (*models.Template, error) {
	id := cast.ToString(entry["id"])
	name := cast.ToString(entry["name"])
	if id == "" || name == "" {
		return nil, fmt.Errorf("template entry missing id or name")
	}

	components, err := json.Marshal(entry["components"])
	if err != nil {
		return nil, fmt.Errorf("marshal components for %s: %w", name, err)
	}

	status := strings.ToUpper(cast.ToString(entry["status"]))
	return &models.Template{
		ID:         id,
		AgentID:    agentID,
		Name:       name,
		Language:   cast.ToString(entry["language"]),
		Category:   strings.ToLower(cast.ToString(entry["category"])),
		Status:     status,
		Components: string(components),
		IsActive:   status == "APPROVED",
	}, nil
}

package database

import (
	"fmt"

	"gorm.io/gorm"

	"whatsapp-crm/internal/models"
)

// AgentStore manages agent rows, their provider configs and tenant-table
// provisioning.
type AgentStore struct {
	db *gorm.DB
}

func NewAgentStore(db *gorm.DB) *AgentStore {
	return &AgentStore{db: db}
}

func (s *AgentStore) AgentByID(id uint) (*models.Agent, error) {
	var agent models.Agent
	if err := s.db.First(&agent, id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

// ConfigByAgent returns the agent's active provider credentials.
func (s *AgentStore) ConfigByAgent(agentID uint) (*models.WhatsAppConfig, error) {
	var cfg models.WhatsAppConfig
	err := s.db.Where("agent_id = ? AND is_active = ?", agentID, true).First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AgentByPhoneNumberID routes an inbound webhook to its tenant.
func (s *AgentStore) AgentByPhoneNumberID(phoneNumberID string) (*models.Agent, *models.WhatsAppConfig, error) {
	var cfg models.WhatsAppConfig
	err := s.db.Where("phone_number_id = ? AND is_active = ?", phoneNumberID, true).First(&cfg).Error
	if err != nil {
		return nil, nil, err
	}
	var agent models.Agent
	if err := s.db.First(&agent, cfg.AgentID).Error; err != nil {
		return nil, nil, err
	}
	return &agent, &cfg, nil
}

func (s *AgentStore) ActiveConfigs() ([]models.WhatsAppConfig, error) {
	var configs []models.WhatsAppConfig
	err := s.db.Where("is_active = ?", true).Find(&configs).Error
	return configs, err
}

// Provision creates the agent row, its provider config and the tenant
// tables in one transaction.
func (s *AgentStore) Provision(agent *models.Agent, cfg *models.WhatsAppConfig) error {
	agent.TablePrefix = SanitizePrefix(agent.TablePrefix)
	if agent.TablePrefix == "" {
		return fmt.Errorf("agent table prefix is required")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(agent).Error; err != nil {
			return fmt.Errorf("create agent: %w", err)
		}
		if cfg != nil {
			cfg.AgentID = agent.ID
			if err := tx.Create(cfg).Error; err != nil {
				return fmt.Errorf("create whatsapp config: %w", err)
			}
		}
		return NewTenantRepo(tx, agent).ProvisionTables()
	})
}

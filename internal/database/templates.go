package database

import (
	"strings"

	"gorm.io/gorm"

	"whatsapp-crm/internal/models"
)

// TemplateStore reads and refreshes the cached template rows. The
// dispatch pipeline treats the cache as read-only; only the syncer
// writes it.
type TemplateStore struct {
	db *gorm.DB
}

func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// ActiveTemplate returns one active template matching the category, or
// (nil, nil) when the agent has none.
func (s *TemplateStore) ActiveTemplate(agentID uint, category string) (*models.Template, error) {
	var tmpl models.Template
	err := s.db.Where("agent_id = ? AND LOWER(category) = ? AND is_active = ?",
		agentID, strings.ToLower(category), true).
		Order("updated_at DESC").First(&tmpl).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// TemplateByName returns (nil, nil) when the agent has no template with
// that name.
func (s *TemplateStore) TemplateByName(agentID uint, name string) (*models.Template, error) {
	var tmpl models.Template
	err := s.db.Where("agent_id = ? AND name = ?", agentID, name).First(&tmpl).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (s *TemplateStore) ListByAgent(agentID uint) ([]models.Template, error) {
	var templates []models.Template
	err := s.db.Where("agent_id = ?", agentID).Order("name ASC").Find(&templates).Error
	return templates, err
}

// Upsert replaces the cached definition for one provider template.
func (s *TemplateStore) Upsert(tmpl *models.Template) error {
	return s.db.Save(tmpl).Error
}

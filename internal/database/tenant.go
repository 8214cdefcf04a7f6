package database

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"whatsapp-crm/internal/models"
)

var prefixPattern = regexp.MustCompile("[^a-zA-Z0-9_]+")

// SanitizePrefix cleans a string so it is safe to interpolate into a
// table name (alphanumeric + underscore, lowercased).
func SanitizePrefix(name string) string {
	return strings.ToLower(prefixPattern.ReplaceAllString(name, "_"))
}

// TenantRepo exposes fixed queries over one agent's dynamically named
// tables. The prefix is resolved and sanitized once at construction; no
// other code composes tenant table names.
type TenantRepo struct {
	db     *gorm.DB
	prefix string
}

func NewTenantRepo(db *gorm.DB, agent *models.Agent) *TenantRepo {
	return &TenantRepo{db: db, prefix: SanitizePrefix(agent.TablePrefix)}
}

func (r *TenantRepo) customersTable() string {
	return r.prefix + "_customers"
}

func (r *TenantRepo) messagesTable() string {
	return r.prefix + "_messages"
}

// ProvisionTables creates the agent's customer and message tables. Safe to
// call repeatedly; existing tables are left untouched.
func (r *TenantRepo) ProvisionTables() error {
	if err := r.db.Table(r.customersTable()).AutoMigrate(&models.Customer{}); err != nil {
		return fmt.Errorf("provision %s: %w", r.customersTable(), err)
	}
	if err := r.db.Table(r.messagesTable()).AutoMigrate(&models.Message{}); err != nil {
		return fmt.Errorf("provision %s: %w", r.messagesTable(), err)
	}
	return nil
}

// CustomerByPhone returns (nil, nil) when no customer has the phone.
func (r *TenantRepo) CustomerByPhone(phone string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Table(r.customersTable()).Where("phone = ?", phone).First(&customer).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *TenantRepo) CustomerByID(id uint) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Table(r.customersTable()).Where("id = ?", id).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// SaveCustomer inserts a new customer or, when the phone already exists,
// updates the display name.
func (r *TenantRepo) SaveCustomer(customer *models.Customer) error {
	var existing models.Customer
	err := r.db.Table(r.customersTable()).Where("phone = ?", customer.Phone).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.Table(r.customersTable()).Create(customer).Error
	}
	if err != nil {
		return err
	}
	customer.ID = existing.ID
	updates := map[string]interface{}{}
	if customer.Name != "" {
		updates["name"] = customer.Name
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Table(r.customersTable()).Where("id = ?", existing.ID).Updates(updates).Error
}

func (r *TenantRepo) ListCustomers() ([]models.Customer, error) {
	var customers []models.Customer
	err := r.db.Table(r.customersTable()).Order("updated_at DESC").Find(&customers).Error
	return customers, err
}

func (r *TenantRepo) UpdateLeadStage(customerID uint, stage string) error {
	res := r.db.Table(r.customersTable()).Where("id = ?", customerID).
		Update("lead_stage", stage)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TouchLastUserMessage is called by inbound ingestion only; the dispatch
// pipeline reads last_user_message_time but never writes it.
func (r *TenantRepo) TouchLastUserMessage(customerID uint, at time.Time) error {
	return r.db.Table(r.customersTable()).Where("id = ?", customerID).
		Update("last_user_message_time", at).Error
}

func (r *TenantRepo) InsertMessage(message *models.Message) error {
	return r.db.Table(r.messagesTable()).Create(message).Error
}

func (r *TenantRepo) MessagesByCustomer(customerID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	q := r.db.Table(r.messagesTable()).Where("customer_id = ?", customerID).
		Order("timestamp ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&messages).Error
	return messages, err
}

func (r *TenantRepo) LastMessage(customerID uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Table(r.messagesTable()).Where("customer_id = ?", customerID).
		Order("timestamp DESC, id DESC").First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *TenantRepo) MarkRead(customerID uint) error {
	return r.db.Table(r.messagesTable()).
		Where("customer_id = ? AND direction = ? AND is_read = ?", customerID, models.DirectionInbound, false).
		Update("is_read", true).Error
}

func (r *TenantRepo) CountMessages(customerID uint) (int64, error) {
	var count int64
	err := r.db.Table(r.messagesTable()).Where("customer_id = ?", customerID).Count(&count).Error
	return count, err
}

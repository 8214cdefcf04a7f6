package models

import (
	"time"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Media types stored on message rows.
const (
	MediaNone     = "none"
	MediaImage    = "image"
	MediaVideo    = "video"
	MediaAudio    = "audio"
	MediaDocument = "document"
)

// Agent is a provisioned tenant. TablePrefix names the agent's dynamic
// tables ({prefix}_customers, {prefix}_messages). Credits is only ever
// mutated through the ledger's conditional SQL, never read-then-written.
type Agent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	TablePrefix string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"table_prefix"`
	Credits     float64   `gorm:"type:numeric(12,2);default:0" json:"credits"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Agent) TableName() string {
	return "agents"
}

// WhatsAppConfig carries the per-agent provider credentials.
type WhatsAppConfig struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	AgentID            uint      `gorm:"index;not null" json:"agent_id"`
	APIKey             string    `gorm:"type:text;not null" json:"-"`
	PhoneNumberID      string    `gorm:"type:varchar(64);not null;index" json:"phone_number_id"`
	BusinessAccountID  string    `gorm:"type:varchar(64);not null" json:"business_account_id"`
	DefaultCountryCode string    `gorm:"type:varchar(8)" json:"default_country_code"`
	IsActive           bool      `gorm:"default:true" json:"is_active"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WhatsAppConfig) TableName() string {
	return "whatsapp_configs"
}

// Template is a cached provider template definition. Components holds the
// provider's component tree as JSON and is the authoritative schema the
// validator checks caller input against.
type Template struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	AgentID    uint      `gorm:"index;not null" json:"agent_id"`
	Name       string    `gorm:"type:varchar(255);index" json:"name"`
	Language   string    `gorm:"type:varchar(50)" json:"language"`
	Category   string    `gorm:"type:varchar(100)" json:"category"`
	Status     string    `gorm:"type:varchar(50)" json:"status"`
	Components string    `gorm:"type:text" json:"components"`
	IsActive   bool      `gorm:"default:false" json:"is_active"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Template) TableName() string {
	return "templates"
}

// Customer lives in the tenant's {prefix}_customers table; the table name
// is supplied by the tenant repository, so no TableName method here.
// LastUserMessageTime is mutated only by inbound ingestion.
type Customer struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Phone               string     `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	Name                string     `gorm:"type:varchar(255)" json:"name"`
	LeadStage           string     `gorm:"type:varchar(50);default:'new'" json:"lead_stage"`
	LastUserMessageTime *time.Time `json:"last_user_message_time"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Message lives in the tenant's {prefix}_messages table. Rows are append
// only: one row per dispatched unit, never updated after creation (IsRead
// excepted, which the inbox flips on inbound rows).
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CustomerID uint      `gorm:"index;not null" json:"customer_id"`
	Message    string    `gorm:"type:text" json:"message"`
	Direction  string    `gorm:"type:varchar(10);not null" json:"direction"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`
	IsRead     bool      `gorm:"default:false" json:"is_read"`
	MediaType  string    `gorm:"type:varchar(20);default:'none'" json:"media_type"`
	MediaURL   string    `gorm:"type:text" json:"media_url"`
	Caption    string    `gorm:"type:text" json:"caption"`
}

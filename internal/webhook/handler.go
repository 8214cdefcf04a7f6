package webhook

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/dispatch"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/ws"
)

// Handler ingests inbound webhook deliveries: it routes each message to
// its tenant by phone_number_id, upserts the customer, records an inbound
// row and bumps last_user_message_time (the sole writer of that column).
type Handler struct {
	Config *config.Config
	DB     *gorm.DB
	Agents *database.AgentStore
	Hub    *ws.Hub
}

func NewHandler(cfg *config.Config, db *gorm.DB, hub *ws.Hub) *Handler {
	return &Handler{
		Config: cfg,
		DB:     db,
		Agents: database.NewAgentStore(db),
		Hub:    hub,
	}
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && token != "" {
		if mode == "subscribe" && token == h.Config.VerifyToken {
			c.String(http.StatusOK, challenge)
		} else {
			c.Status(http.StatusForbidden)
		}
	} else {
		c.Status(http.StatusBadRequest)
	}
}

func (h *Handler) HandleMessage(c *gin.Context) {
	var payload Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		zap.L().Warn("webhook: bad payload", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			if len(value.Messages) == 0 {
				continue
			}

			agent, cfg, err := h.Agents.AgentByPhoneNumberID(value.Metadata.PhoneNumberID)
			if err != nil {
				zap.L().Warn("webhook: no tenant for phone_number_id",
					zap.String("phone_number_id", value.Metadata.PhoneNumberID))
				continue
			}

			senderName := map[string]string{}
			for _, contact := range value.Contacts {
				senderName[contact.WaID] = contact.Profile.Name
			}

			repo := database.NewTenantRepo(h.DB, agent)
			for _, message := range value.Messages {
				h.ingest(repo, agent, cfg, &message, senderName[message.From])
			}
		}
	}

	// Always 200 so the provider does not retry deliveries we chose to
	// skip.
	c.Status(http.StatusOK)
}

func (h *Handler) ingest(repo *database.TenantRepo, agent *models.Agent, cfg *models.WhatsAppConfig, message *InboundMessage, name string) {
	phone, err := dispatch.NormalizePhone(message.From, cfg.DefaultCountryCode)
	if err != nil {
		zap.L().Warn("webhook: unnormalizable sender", zap.String("from", message.From), zap.Error(err))
		return
	}

	customer, err := repo.CustomerByPhone(phone)
	if err != nil {
		zap.L().Error("webhook: customer lookup failed", zap.Error(err))
		return
	}
	if customer == nil {
		customer = &models.Customer{Phone: phone, Name: name}
		if err := repo.SaveCustomer(customer); err != nil {
			zap.L().Error("webhook: customer create failed", zap.Error(err))
			return
		}
	} else if name != "" && customer.Name == "" {
		customer.Name = name
		_ = repo.SaveCustomer(customer)
	}

	content, mediaType, caption := flatten(message)
	row := &models.Message{
		CustomerID: customer.ID,
		Message:    content,
		Direction:  models.DirectionInbound,
		Timestamp:  inboundTime(message.Timestamp),
		MediaType:  mediaType,
		Caption:    caption,
	}
	if err := repo.InsertMessage(row); err != nil {
		zap.L().Error("webhook: message insert failed", zap.Error(err))
		return
	}

	if err := repo.TouchLastUserMessage(customer.ID, row.Timestamp); err != nil {
		zap.L().Error("webhook: last_user_message_time update failed", zap.Error(err))
	}

	if h.Hub != nil {
		h.Hub.NotifyMessage(agent.ID, row)
	}
}

// flatten reduces an inbound message to the stored columns.
func flatten(message *InboundMessage) (content, mediaType, caption string) {
	mediaType = models.MediaNone
	switch message.Type {
	case "text":
		if message.Text != nil {
			content = message.Text.Body
		}
	case "image":
		if message.Image != nil {
			content = "[image]:" + message.Image.ID
			caption = message.Image.Caption
		}
		mediaType = models.MediaImage
	case "video":
		if message.Video != nil {
			content = "[video]:" + message.Video.ID
			caption = message.Video.Caption
		}
		mediaType = models.MediaVideo
	case "audio":
		if message.Audio != nil {
			content = "[audio]:" + message.Audio.ID
		}
		mediaType = models.MediaAudio
	case "document":
		if message.Document != nil {
			content = "[document]:" + message.Document.ID
			if message.Document.Filename != "" {
				content += ":" + message.Document.Filename
			}
		}
		mediaType = models.MediaDocument
	default:
		content = "[" + message.Type + "]"
	}
	return content, mediaType, caption
}

// inboundTime parses the provider's unix-seconds timestamp, falling back
// to now.
func inboundTime(ts string) time.Time {
	if secs, err := strconv.ParseInt(ts, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0)
	}
	return time.Now()
}

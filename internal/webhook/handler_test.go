package webhook

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/models"
)

func setupHandler(t *testing.T) (*Handler, *database.TenantRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:webhook_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	agent := &models.Agent{Name: "Acme", TablePrefix: "acme", IsActive: true}
	require.NoError(t, database.NewAgentStore(db).Provision(agent, &models.WhatsAppConfig{
		APIKey:             "secret",
		PhoneNumberID:      "555001",
		DefaultCountryCode: "62",
		IsActive:           true,
	}))

	cfg := &config.Config{VerifyToken: "verify-me"}
	return NewHandler(cfg, db, nil), database.NewTenantRepo(db, agent)
}

func TestVerifyWebhook(t *testing.T) {
	handler, _ := setupHandler(t)
	r := gin.New()
	r.GET("/webhook", handler.VerifyWebhook)

	// Correct token echoes the challenge.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())

	// Wrong token is refused.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

const inboundTextPayload = `{
	"entry": [{
		"changes": [{
			"value": {
				"metadata": {"phone_number_id": "555001"},
				"contacts": [{"wa_id": "6281234567890", "profile": {"name": "Ana"}}],
				"messages": [{
					"from": "6281234567890",
					"id": "wamid.in1",
					"timestamp": "1724760000",
					"type": "text",
					"text": {"body": "hi there"}
				}]
			}
		}]
	}]
}`

func TestHandleMessageIngestsInboundText(t *testing.T) {
	handler, repo := setupHandler(t)
	r := gin.New()
	r.POST("/webhook", handler.HandleMessage)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(inboundTextPayload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	customer, err := repo.CustomerByPhone("+6281234567890")
	require.NoError(t, err)
	require.NotNil(t, customer, "inbound message must create the customer")
	assert.Equal(t, "Ana", customer.Name)
	require.NotNil(t, customer.LastUserMessageTime, "inbound ingestion opens the messaging window")
	assert.True(t, customer.LastUserMessageTime.Equal(time.Unix(1724760000, 0)))

	messages, err := repo.MessagesByCustomer(customer.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hi there", messages[0].Message)
	assert.Equal(t, models.DirectionInbound, messages[0].Direction)
	assert.False(t, messages[0].IsRead)
}

func TestHandleMessageUnknownTenantIsSkipped(t *testing.T) {
	handler, repo := setupHandler(t)
	r := gin.New()
	r.POST("/webhook", handler.HandleMessage)

	payload := strings.Replace(inboundTextPayload, "555001", "999999", 1)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	// Still 200 so the provider does not retry, but nothing is stored.
	require.Equal(t, http.StatusOK, w.Code)
	customer, err := repo.CustomerByPhone("+6281234567890")
	require.NoError(t, err)
	assert.Nil(t, customer)
}

func TestFlattenMediaMessage(t *testing.T) {
	t.Parallel()

	content, mediaType, caption := flatten(&InboundMessage{
		Type:  "image",
		Image: &MediaAttachment{ID: "media-9", Caption: "look"},
	})
	assert.Equal(t, "[image]:media-9", content)
	assert.Equal(t, models.MediaImage, mediaType)
	assert.Equal(t, "look", caption)

	content, mediaType, _ = flatten(&InboundMessage{
		Type:     "document",
		Document: &MediaAttachment{ID: "doc-1", Filename: "contract.pdf"},
	})
	assert.Equal(t, "[document]:doc-1:contract.pdf", content)
	assert.Equal(t, models.MediaDocument, mediaType)

	content, mediaType, _ = flatten(&InboundMessage{Type: "sticker"})
	assert.Equal(t, "[sticker]", content)
	assert.Equal(t, models.MediaNone, mediaType)
}

func TestInboundTimeFallsBackToNow(t *testing.T) {
	t.Parallel()

	parsed := inboundTime("1724760000")
	assert.True(t, parsed.Equal(time.Unix(1724760000, 0)))

	before := time.Now()
	fallback := inboundTime("not-a-timestamp")
	assert.False(t, fallback.Before(before))
}

package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-crm/internal/models"
)

func TestSanitizePrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"acme", "acme"},
		{"Acme Corp", "acme_corp"},
		{"acme; DROP TABLE agents;--", "acme_drop_table_agents_"},
		{"tenant-42", "tenant_42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizePrefix(tt.in), "input %q", tt.in)
	}
}

func provisionTenant(t *testing.T) (*TenantRepo, *models.Agent) {
	t.Helper()
	db := openTestDB(t)
	agent := &models.Agent{Name: "Acme", TablePrefix: "acme", IsActive: true}
	require.NoError(t, NewAgentStore(db).Provision(agent, &models.WhatsAppConfig{
		APIKey:        "secret",
		PhoneNumberID: "555001",
		IsActive:      true,
	}))
	return NewTenantRepo(db, agent), agent
}

func TestProvisionCreatesTenantTables(t *testing.T) {
	repo, _ := provisionTenant(t)

	// The tenant tables must be usable immediately after provisioning.
	customer := &models.Customer{Phone: "+6281234567890", Name: "Ana"}
	require.NoError(t, repo.SaveCustomer(customer))
	require.NotZero(t, customer.ID)

	require.NoError(t, repo.InsertMessage(&models.Message{
		CustomerID: customer.ID,
		Message:    "hello",
		Direction:  models.DirectionOutbound,
		Timestamp:  time.Now(),
	}))
}

func TestProvisionRoutesByPhoneNumberID(t *testing.T) {
	db := openTestDB(t)
	store := NewAgentStore(db)

	agent := &models.Agent{Name: "Acme", TablePrefix: "acme", IsActive: true}
	require.NoError(t, store.Provision(agent, &models.WhatsAppConfig{
		APIKey:        "secret",
		PhoneNumberID: "555001",
		IsActive:      true,
	}))

	routed, cfg, err := store.AgentByPhoneNumberID("555001")
	require.NoError(t, err)
	assert.Equal(t, agent.ID, routed.ID)
	assert.Equal(t, "secret", cfg.APIKey)

	_, _, err = store.AgentByPhoneNumberID("999999")
	require.Error(t, err)
}

func TestCustomerByPhoneNotFoundIsNil(t *testing.T) {
	repo, _ := provisionTenant(t)

	customer, err := repo.CustomerByPhone("+6280000000000")
	require.NoError(t, err)
	assert.Nil(t, customer)
}

func TestSaveCustomerUpsertsByPhone(t *testing.T) {
	repo, _ := provisionTenant(t)

	first := &models.Customer{Phone: "+6281234567890"}
	require.NoError(t, repo.SaveCustomer(first))

	second := &models.Customer{Phone: "+6281234567890", Name: "Ana"}
	require.NoError(t, repo.SaveCustomer(second))
	assert.Equal(t, first.ID, second.ID, "same phone must not create a second row")

	loaded, err := repo.CustomerByPhone("+6281234567890")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Ana", loaded.Name)
}

func TestMessagesByCustomerOrdering(t *testing.T) {
	repo, _ := provisionTenant(t)

	customer := &models.Customer{Phone: "+6281234567890"}
	require.NoError(t, repo.SaveCustomer(customer))

	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	for i, body := range []string{"first", "second", "third"} {
		require.NoError(t, repo.InsertMessage(&models.Message{
			CustomerID: customer.ID,
			Message:    body,
			Direction:  models.DirectionInbound,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	messages, err := repo.MessagesByCustomer(customer.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Message)
	assert.Equal(t, "third", messages[2].Message)

	last, err := repo.LastMessage(customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "third", last.Message)
}

func TestTouchLastUserMessage(t *testing.T) {
	repo, _ := provisionTenant(t)

	customer := &models.Customer{Phone: "+6281234567890"}
	require.NoError(t, repo.SaveCustomer(customer))

	at := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastUserMessage(customer.ID, at))

	loaded, err := repo.CustomerByID(customer.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.LastUserMessageTime)
	assert.True(t, loaded.LastUserMessageTime.Equal(at))
}

func TestMarkReadOnlyFlipsInbound(t *testing.T) {
	repo, _ := provisionTenant(t)

	customer := &models.Customer{Phone: "+6281234567890"}
	require.NoError(t, repo.SaveCustomer(customer))

	now := time.Now()
	require.NoError(t, repo.InsertMessage(&models.Message{
		CustomerID: customer.ID, Message: "in", Direction: models.DirectionInbound, Timestamp: now,
	}))
	require.NoError(t, repo.InsertMessage(&models.Message{
		CustomerID: customer.ID, Message: "out", Direction: models.DirectionOutbound, Timestamp: now, IsRead: true,
	}))

	require.NoError(t, repo.MarkRead(customer.ID))

	messages, err := repo.MessagesByCustomer(customer.ID, 0)
	require.NoError(t, err)
	for _, m := range messages {
		assert.True(t, m.IsRead, "message %q", m.Message)
	}
}

func TestUpdateLeadStage(t *testing.T) {
	repo, _ := provisionTenant(t)

	customer := &models.Customer{Phone: "+6281234567890"}
	require.NoError(t, repo.SaveCustomer(customer))

	require.NoError(t, repo.UpdateLeadStage(customer.ID, "qualified"))

	loaded, err := repo.CustomerByID(customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "qualified", loaded.LeadStage)

	assert.Error(t, repo.UpdateLeadStage(9999, "qualified"))
}

func TestTenantIsolation(t *testing.T) {
	db := openTestDB(t)
	store := NewAgentStore(db)

	acme := &models.Agent{Name: "Acme", TablePrefix: "acme", IsActive: true}
	require.NoError(t, store.Provision(acme, nil))
	globex := &models.Agent{Name: "Globex", TablePrefix: "globex", IsActive: true}
	require.NoError(t, store.Provision(globex, nil))

	acmeRepo := NewTenantRepo(db, acme)
	globexRepo := NewTenantRepo(db, globex)

	require.NoError(t, acmeRepo.SaveCustomer(&models.Customer{Phone: "+6281234567890", Name: "Ana"}))

	// The same phone must be invisible through the other tenant's repo.
	fromGlobex, err := globexRepo.CustomerByPhone("+6281234567890")
	require.NoError(t, err)
	assert.Nil(t, fromGlobex)
}

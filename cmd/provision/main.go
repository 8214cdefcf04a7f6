package main

import (
	"flag"
	"fmt"
	"log"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/models"
)

// provision creates an agent, its provider config and its tenant tables
// from the command line, for environments without the admin API.
func main() {
	name := flag.String("name", "", "agent display name")
	prefix := flag.String("prefix", "", "tenant table prefix")
	credits := flag.Float64("credits", 0, "initial credit balance")
	apiKey := flag.String("api-key", "", "provider API key")
	phoneNumberID := flag.String("phone-number-id", "", "provider phone number id")
	businessAccountID := flag.String("business-account-id", "", "provider business account id")
	countryCode := flag.String("country-code", "", "default country code for local numbers")
	flag.Parse()

	if *name == "" || *prefix == "" || *apiKey == "" || *phoneNumberID == "" || *businessAccountID == "" {
		flag.Usage()
		log.Fatal("name, prefix, api-key, phone-number-id and business-account-id are required")
	}

	cfg := config.LoadConfig()
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	agent := &models.Agent{
		Name:        *name,
		TablePrefix: database.SanitizePrefix(*prefix),
		Credits:     *credits,
		IsActive:    true,
	}
	providerCfg := &models.WhatsAppConfig{
		APIKey:             *apiKey,
		PhoneNumberID:      *phoneNumberID,
		BusinessAccountID:  *businessAccountID,
		DefaultCountryCode: *countryCode,
		IsActive:           true,
	}

	if err := database.NewAgentStore(db).Provision(agent, providerCfg); err != nil {
		log.Fatalf("provisioning failed: %v", err)
	}

	fmt.Printf("agent %d (%s) provisioned with prefix %q and %.2f credits\n",
		agent.ID, agent.Name, agent.TablePrefix, agent.Credits)
}

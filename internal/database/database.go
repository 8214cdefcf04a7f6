package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/models"
)

// Open connects to PostgreSQL when DBHost is configured, otherwise falls
// back to a local sqlite file for development.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var (
		db  *gorm.DB
		err error
	)
	if cfg.DBHost != "" {
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	} else {
		db, err = gorm.Open(sqlite.Open(cfg.DBPath), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	zap.L().Info("database: connected", zap.Bool("postgres", cfg.DBHost != ""))
	return db, nil
}

// Migrate creates the global (non-tenant) tables. Tenant tables are
// provisioned per agent by TenantRepo.ProvisionTables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Agent{},
		&models.WhatsAppConfig{},
		&models.Template{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}

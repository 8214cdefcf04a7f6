package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	VerifyToken string

	// Database. When DBHost is empty the server falls back to a local
	// sqlite file at DBPath (development mode).
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// Object storage (bucket REST endpoint).
	StorageEndpoint string
	StorageBucket   string
	StorageKey      string

	// Graph API base, overridable for testing.
	GraphAPIBase string

	// Template cache resync interval, e.g. "30m".
	TemplateSyncInterval string

	LogMode       string
	LogFileEnable bool
	LogFilename   string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		VerifyToken: getEnv("VERIFY_TOKEN", ""),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "whatsapp_crm"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBPath:     getEnv("DB_PATH", "./whatsapp_crm.db"),

		StorageEndpoint: getEnv("STORAGE_ENDPOINT", ""),
		StorageBucket:   getEnv("STORAGE_BUCKET", "chat-media"),
		StorageKey:      getEnv("STORAGE_KEY", ""),

		GraphAPIBase: getEnv("GRAPH_API_BASE", "https://graph.facebook.com/v19.0"),

		TemplateSyncInterval: getEnv("TEMPLATE_SYNC_INTERVAL", "30m"),

		LogMode:       getEnv("LOG_MODE", "development"),
		LogFileEnable: getEnvBool("LOG_FILE_ENABLE", false),
		LogFilename:   getEnv("LOG_FILENAME", "./whatsapp_crm.log"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

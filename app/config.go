package app

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is a application configuration structure
type (
	AppConfig struct {
		Database   DatabaseConfig
		Logging    LoggingConfig
		Services   ServicesConfig
		ConfigFile string
	}

	KafkaConfig struct {
		Brokers []string
		GroupID string
	}

	// ServicesConfig points at the surrounding microservices.
	ServicesConfig struct {
		OrderServiceURL string
		AuthServiceURL  string
		ServiceToken    string
	}
)

var (
	Logging  *LoggingConfig
	Database *DatabaseConfig
	Services *ServicesConfig
)

func Setup() {

	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("Error loading .env file:", err)
	}

	Http := &AppConfig{
		Database: DatabaseConfig{
			Driver:   os.Getenv("DB_DRIVER"),
			Host:     os.Getenv("DB_HOST"),
			Username: os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
			Port:     getEnvAsInt("DB_PORT", 3306),
			Debug:    os.Getenv("DB_DEBUG") == "true",
		},
		Logging: LoggingConfig{
			Type:       os.Getenv("LOG_TYPE"),
			ServerName: os.Getenv("SERVER_NAME"),
		},
		Services: ServicesConfig{
			OrderServiceURL: getEnv("ORDER_SERVICE_URL", "http://localhost:3004"),
			AuthServiceURL:  getEnv("AUTH_SERVICE_URL", "http://localhost:3000"),
			ServiceToken:    os.Getenv("SERVICE_TOKEN"),
		},
	}

	Http.Database.Setup()
	Http.Logging.Setup()

	Database = &Http.Database
	Logging = &Http.Logging
	Services = &Http.Services
}

func Config(key string) string {
	return os.Getenv(key)
}

// Helper convert env -> int
func getEnvAsInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

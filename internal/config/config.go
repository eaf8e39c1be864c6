package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	HTTPPort        string
	JWTSecret       string
	ProductsBaseURL string
	ClientsBaseURL  string
	SalesBaseURL    string
	CORSOrigins     []string
	MetricsEnabled  bool
}

// Load reads configuration from environment variables (and a .env file, if
// present) with local-dev defaults. The port is validated to be numeric.
func Load() Config {
	// .env es opcional; en producción todo llega por variables de entorno.
	_ = godotenv.Load()

	port := getEnv("HTTP_PORT", "8081")
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8081", port)
		port = "8081"
	}

	var origins []string
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return Config{
		HTTPPort:        port,
		JWTSecret:       getEnv("JWT_SECRET", "dev_secret"),
		ProductsBaseURL: getEnv("PRODUCTS_SERVICE_URL", "http://localhost:8080"),
		ClientsBaseURL:  getEnv("CLIENTS_SERVICE_URL", "http://localhost:8080"),
		SalesBaseURL:    getEnv("SALES_SERVICE_URL", "http://localhost:8080"),
		CORSOrigins:     origins,
		MetricsEnabled:  os.Getenv("PROMETHEUS_ENABLED") == "true",
	}
}

// getEnv obtiene una variable de entorno o devuelve un valor por defecto.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

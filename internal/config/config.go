package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var ErrMissingConfig = errors.New("missing required configuration")

type Config struct {
	AppPort string
	AppEnv  string

	GatewayBaseURL         string
	GatewayPartnerID       string
	GatewaySignatureSecret string

	PayloadEncryptionKey string
	PayloadHMACKey       string

	WebSocketURL   string
	BackendBaseURL string
	PublicBaseURL  string

	// Optional. Settlement journal is disabled when empty.
	DBURL string

	InternalSecretKey string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:                os.Getenv("APP_PORT"),
		AppEnv:                 os.Getenv("APP_ENV"),
		GatewayBaseURL:         os.Getenv("GATEWAY_BASE_URL"),
		GatewayPartnerID:       os.Getenv("GATEWAY_PARTNER_ID"),
		GatewaySignatureSecret: os.Getenv("GATEWAY_SIGNATURE_SECRET"),
		PayloadEncryptionKey:   os.Getenv("PAYLOAD_ENCRYPTION_KEY"),
		PayloadHMACKey:         os.Getenv("PAYLOAD_HMAC_KEY"),
		WebSocketURL:           os.Getenv("WEBSOCKET_URL"),
		BackendBaseURL:         os.Getenv("BACKEND_BASE_URL"),
		PublicBaseURL:          os.Getenv("PUBLIC_BASE_URL"),
		DBURL:                  os.Getenv("DB_URL"),
		InternalSecretKey:      os.Getenv("INTERNAL_SECRET_KEY"),
	}

	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.AppPort
	}

	return cfg
}

// Validate reports every missing secret at once. Callers treat the error as
// fatal at startup.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"GATEWAY_BASE_URL", c.GatewayBaseURL},
		{"GATEWAY_PARTNER_ID", c.GatewayPartnerID},
		{"GATEWAY_SIGNATURE_SECRET", c.GatewaySignatureSecret},
		{"PAYLOAD_ENCRYPTION_KEY", c.PayloadEncryptionKey},
		{"PAYLOAD_HMAC_KEY", c.PayloadHMACKey},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

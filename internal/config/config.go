package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Xendit      XenditConfig
	Biteship    BiteshipConfig
	Checkout    CheckoutConfig
	Shipping    ShippingConfig
	Admin       AdminConfig
	LogLevel    string

	// RefundReplayTolerance bounds how far a refund webhook's embedded
	// creation timestamp may drift from current time before rejection.
	RefundReplayTolerance time.Duration
	// GuestTokenTTL is the lifetime of a guest order-tracking token.
	GuestTokenTTL time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// XenditConfig is used to create payment invoices and submit refunds
type XenditConfig struct {
	BaseURL       string
	SecretKey     string
	CallbackToken string // verified against x-callback-token on incoming webhooks
}

// BiteshipConfig is used for courier rates, shipment orders, and tracking
type BiteshipConfig struct {
	BaseURL string
	APIKey  string
}

type CheckoutConfig struct {
	SuccessRedirectURL string
	FailureRedirectURL string
}

// ShippingConfig carries the warehouse origin and the local-delivery zone.
// Orders destined inside the local zone bypass the aggregator entirely.
type ShippingConfig struct {
	OriginContactName string
	OriginPhone       string
	OriginAddress     string
	OriginCity        string
	OriginPostalCode  string
	OriginAreaID      string

	LocalZoneCity    string
	LocalFlatRate    float64
	LocalCourierName string
}

type AdminConfig struct {
	// APIKeyHash is the bcrypt hash of the admin API key
	APIKeyHash string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	replayTolerance, err := time.ParseDuration(getEnvOrViper("REFUND_REPLAY_TOLERANCE", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFUND_REPLAY_TOLERANCE: %w", err)
	}
	guestTokenTTL, err := time.ParseDuration(getEnvOrViper("GUEST_TOKEN_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid GUEST_TOKEN_TTL: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "kagounga"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Xendit: XenditConfig{
			BaseURL:       strings.TrimSuffix(getEnvOrViper("XENDIT_BASE_URL", "https://api.xendit.co"), "/"),
			SecretKey:     strings.TrimSpace(getEnvOrViper("XENDIT_SECRET_KEY", "")),
			CallbackToken: strings.TrimSpace(getEnvOrViper("XENDIT_CALLBACK_TOKEN", "")),
		},
		Biteship: BiteshipConfig{
			BaseURL: strings.TrimSuffix(getEnvOrViper("BITESHIP_BASE_URL", "https://api.biteship.com"), "/"),
			APIKey:  strings.TrimSpace(getEnvOrViper("BITESHIP_API_KEY", "")),
		},
		Checkout: CheckoutConfig{
			SuccessRedirectURL: strings.TrimSpace(getEnvOrViper("CHECKOUT_SUCCESS_URL", "")),
			FailureRedirectURL: strings.TrimSpace(getEnvOrViper("CHECKOUT_FAILURE_URL", "")),
		},
		Shipping: ShippingConfig{
			OriginContactName: getEnvOrViper("ORIGIN_CONTACT_NAME", "Kagounga Warehouse"),
			OriginPhone:       getEnvOrViper("ORIGIN_PHONE", ""),
			OriginAddress:     getEnvOrViper("ORIGIN_ADDRESS", ""),
			OriginCity:        getEnvOrViper("ORIGIN_CITY", "Ternate"),
			OriginPostalCode:  getEnvOrViper("ORIGIN_POSTAL_CODE", ""),
			OriginAreaID:      getEnvOrViper("ORIGIN_AREA_ID", ""),
			LocalZoneCity:     getEnvOrViper("LOCAL_ZONE_CITY", "Ternate"),
			LocalFlatRate:     viper.GetFloat64("LOCAL_FLAT_RATE"),
			LocalCourierName:  getEnvOrViper("LOCAL_COURIER_NAME", "Kurir Lokal"),
		},
		Admin: AdminConfig{
			APIKeyHash: strings.TrimSpace(getEnvOrViper("ADMIN_API_KEY_HASH", "")),
		},
		LogLevel:              getEnvOrViper("LOG_LEVEL", "info"),
		RefundReplayTolerance: replayTolerance,
		GuestTokenTTL:         guestTokenTTL,
	}

	// Validate required fields
	if cfg.Xendit.SecretKey == "" {
		return nil, fmt.Errorf("XENDIT_SECRET_KEY is required")
	}
	if cfg.Biteship.APIKey == "" {
		return nil, fmt.Errorf("BITESHIP_API_KEY is required")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

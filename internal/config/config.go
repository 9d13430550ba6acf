package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/twitchyvr/MycoLab-sub010/internal/models"
)

type Config struct {
	// Database Configuration
	DatabaseHost     string `mapstructure:"DB_HOST"`
	DatabasePort     int    `mapstructure:"DB_PORT"`
	DatabaseUsername string `mapstructure:"DB_USERNAME"`
	DatabasePassword string `mapstructure:"DB_PASSWORD"`
	DatabaseName     string `mapstructure:"DB_DATABASE_NAME"`
	DatabaseSSLMode  string `mapstructure:"DB_SSL_MODE"`
	DatabaseMaxConns int32  `mapstructure:"DB_MAX_CONNS"`
	DatabaseMinConns int32  `mapstructure:"DB_MIN_CONNS"`

	// Application Configuration
	AppEnvironment string `mapstructure:"APP_ENVIRONMENT"`
	AppName        string `mapstructure:"APP_NAME"`

	// Notification Settings
	UserID                    string `mapstructure:"USER_ID"`
	EmailNotificationsEnabled bool   `mapstructure:"EMAIL_NOTIFICATIONS_ENABLED"`
	SMSNotificationsEnabled   bool   `mapstructure:"SMS_NOTIFICATIONS_ENABLED"`
	NotificationEmail         string `mapstructure:"NOTIFICATION_EMAIL"`
	PhoneNumber               string `mapstructure:"PHONE_NUMBER"`
	PhoneVerified             bool   `mapstructure:"PHONE_VERIFIED"`
	QuietHoursStart           string `mapstructure:"QUIET_HOURS_START"`
	QuietHoursEnd             string `mapstructure:"QUIET_HOURS_END"`

	// Email Provider (SendGrid)
	SendGridApiKey string `mapstructure:"SENDGRID_API_KEY"`
	EmailFrom      string `mapstructure:"EMAIL_FROM"`

	// SMS Provider (Twilio)
	TwilioAccountSid string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `mapstructure:"TWILIO_FROM_NUMBER"`

	// Firebase Configuration (for FCM push notifications)
	FirebaseProjectID      string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialPath string `mapstructure:"FIREBASE_CREDENTIAL_PATH"`
	FirebaseDeviceToken    string `mapstructure:"FIREBASE_DEVICE_TOKEN"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// Load loads configuration from a .env file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("../")

	if err := v.ReadInConfig(); err != nil {
		// Missing .env is fine; env vars and defaults still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USERNAME", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_DATABASE_NAME", "mycolab")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)

	// Application defaults
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_NAME", "MycoLab Notifications")

	// Notification defaults
	v.SetDefault("EMAIL_NOTIFICATIONS_ENABLED", false)
	v.SetDefault("SMS_NOTIFICATIONS_ENABLED", false)
	v.SetDefault("PHONE_VERIFIED", false)
	v.SetDefault("QUIET_HOURS_START", "")
	v.SetDefault("QUIET_HOURS_END", "")

	// Provider defaults
	v.SetDefault("EMAIL_FROM", "alerts@mycolab.local")

	// Logging defaults
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DatabaseHost == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.DatabasePort <= 0 {
		return fmt.Errorf("invalid DB_PORT")
	}
	if c.DatabaseName == "" {
		return fmt.Errorf("DB_DATABASE_NAME is required")
	}
	if c.EmailNotificationsEnabled && c.NotificationEmail == "" {
		return fmt.Errorf("NOTIFICATION_EMAIL is required when email notifications are enabled")
	}
	if c.SMSNotificationsEnabled && c.PhoneNumber == "" {
		return fmt.Errorf("PHONE_NUMBER is required when SMS notifications are enabled")
	}
	return nil
}

// AppSettings projects the delivery-relevant settings for the dispatcher.
func (c *Config) AppSettings() models.AppSettings {
	return models.AppSettings{
		UserID:                    c.UserID,
		EmailNotificationsEnabled: c.EmailNotificationsEnabled,
		SMSNotificationsEnabled:   c.SMSNotificationsEnabled,
		NotificationEmail:         c.NotificationEmail,
		PhoneNumber:               c.PhoneNumber,
		PhoneVerified:             c.PhoneVerified,
		QuietHoursStart:           c.QuietHoursStart,
		QuietHoursEnd:             c.QuietHoursEnd,
	}
}

// IsDevelopment returns true if environment is development.
func (c *Config) IsDevelopment() bool {
	return c.AppEnvironment == "development"
}

// GetDatabaseDSN returns the database connection string.
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DatabaseUsername,
		c.DatabasePassword,
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

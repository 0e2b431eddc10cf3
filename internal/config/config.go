package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Storage drivers accepted by storage.driver.
const (
	StorageDriverSQLite = "sqlite"
	StorageDriverMemory = "memory"
)

const (
	envPrefix             = "MASARI"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultDatabasePath   = "masari.db"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultStorageDriver  = StorageDriverSQLite
	defaultStorageKey     = "masari_applications"
	defaultCookieName     = "app_session"
	defaultSessionIssuer  = "tauth"
	defaultTimezone       = "UTC"
	defaultLabelLanguage  = "en"
	defaultAllowedOrigins = "*"
	maxStorageKeyLength   = 190
)

// AppConfig captures runtime configuration for the API server and CLI.
type AppConfig struct {
	HTTPAddress          string
	DatabasePath         string
	LogLevel             string
	LogFormat            string
	StorageDriver        string
	StorageKey           string
	SessionSigningSecret string
	SessionIssuer        string
	SessionCookieName    string
	TimelineLocation     *time.Location
	LabelLanguage        language.Tag
	AllowedOrigins       []string
}

// AuthEnabled reports whether requests must carry a valid session token.
func (c AppConfig) AuthEnabled() bool {
	return strings.TrimSpace(c.SessionSigningSecret) != ""
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", defaultAllowedOrigins)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("storage.driver", defaultStorageDriver)
	configViper.SetDefault("storage.key", defaultStorageKey)
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("auth.issuer", defaultSessionIssuer)
	configViper.SetDefault("timeline.timezone", defaultTimezone)
	configViper.SetDefault("labels.language", defaultLabelLanguage)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          strings.TrimSpace(configViper.GetString("http.address")),
		DatabasePath:         strings.TrimSpace(configViper.GetString("database.path")),
		LogLevel:             configViper.GetString("log.level"),
		LogFormat:            configViper.GetString("log.format"),
		StorageDriver:        strings.ToLower(strings.TrimSpace(configViper.GetString("storage.driver"))),
		StorageKey:           strings.TrimSpace(configViper.GetString("storage.key")),
		SessionSigningSecret: configViper.GetString("auth.signing_secret"),
		SessionIssuer:        strings.TrimSpace(configViper.GetString("auth.issuer")),
		SessionCookieName:    strings.TrimSpace(configViper.GetString("auth.cookie_name")),
		AllowedOrigins:       splitList(configViper.GetString("http.allowed_origins")),
	}

	timezone := strings.TrimSpace(configViper.GetString("timeline.timezone"))
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return AppConfig{}, fmt.Errorf("timeline.timezone %q is invalid: %w", timezone, err)
	}
	cfg.TimelineLocation = location

	rawLanguage := strings.TrimSpace(configViper.GetString("labels.language"))
	tag, err := language.Parse(rawLanguage)
	if err != nil {
		return AppConfig{}, fmt.Errorf("labels.language %q is invalid: %w", rawLanguage, err)
	}
	cfg.LabelLanguage = tag

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.StorageDriver {
	case StorageDriverSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("database.path is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("storage.driver must be %q or %q", StorageDriverSQLite, StorageDriverMemory)
	}
	if c.StorageKey == "" {
		return fmt.Errorf("storage.key is required")
	}
	if len(c.StorageKey) > maxStorageKeyLength {
		return fmt.Errorf("storage.key exceeds %d characters", maxStorageKeyLength)
	}
	if c.HTTPAddress == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.AuthEnabled() {
		if c.SessionCookieName == "" {
			return fmt.Errorf("auth.cookie_name is required")
		}
		if c.SessionIssuer == "" {
			return fmt.Errorf("auth.issuer is required")
		}
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "TENKEN"
	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultDatabasePath  = "tenken.db"
	defaultLogLevel      = "info"
	defaultTemplatePath  = "checklist.yaml"
	defaultJPEGQuality   = 92
	defaultSessionIssuer = "tenken-auth"
)

// AppConfig captures runtime configuration for the inspection API server.
type AppConfig struct {
	HTTPAddress       string
	DatabasePath      string
	LogLevel          string
	TemplatePath      string
	SessionSigningKey string
	SessionIssuer     string
	JPEGQuality       int
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
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("checklist.template_path", defaultTemplatePath)
	configViper.SetDefault("photo.jpeg_quality", defaultJPEGQuality)
	configViper.SetDefault("session.issuer", defaultSessionIssuer)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		DatabasePath:      configViper.GetString("database.path"),
		LogLevel:          configViper.GetString("log.level"),
		TemplatePath:      configViper.GetString("checklist.template_path"),
		SessionSigningKey: configViper.GetString("session.signing_secret"),
		SessionIssuer:     configViper.GetString("session.issuer"),
		JPEGQuality:       configViper.GetInt("photo.jpeg_quality"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SessionSigningKey) == "" {
		return fmt.Errorf("session.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.TemplatePath) == "" {
		return fmt.Errorf("checklist.template_path is required")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("photo.jpeg_quality must be between 1 and 100")
	}
	return nil
}

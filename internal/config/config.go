package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                  = "DECKS"
	defaultHTTPAddress         = "0.0.0.0:8080"
	defaultDatabasePath        = "decks.db"
	defaultLogLevel            = "info"
	defaultViewerCookieName    = "decks_viewer"
	defaultViewerTokenTTL      = 12 * 60
	defaultProfileCookieName   = "decks_profile"
	defaultTrackingBufferSize  = 256
	defaultTrackingFlushPeriod = 2 * time.Second
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress           string
	DatabasePath          string
	LogLevel              string
	ViewerSigningSecret   string
	ViewerCookieName      string
	ViewerTokenTTL        time.Duration
	ProfileCookieName     string
	RedisURL              string
	CatalogPath           string
	TrackingBufferSize    int
	TrackingFlushInterval time.Duration
	AllowedOrigins        []string
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
	configViper.SetDefault("viewer.cookie_name", defaultViewerCookieName)
	configViper.SetDefault("viewer.token_ttl_minutes", defaultViewerTokenTTL)
	configViper.SetDefault("profile.cookie_name", defaultProfileCookieName)
	configViper.SetDefault("redis.url", "")
	configViper.SetDefault("catalog.path", "")
	configViper.SetDefault("tracking.buffer_size", defaultTrackingBufferSize)
	configViper.SetDefault("tracking.flush_interval", defaultTrackingFlushPeriod)
	configViper.SetDefault("cors.allowed_origins", []string{})
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:           configViper.GetString("http.address"),
		DatabasePath:          configViper.GetString("database.path"),
		LogLevel:              configViper.GetString("log.level"),
		ViewerSigningSecret:   configViper.GetString("viewer.signing_secret"),
		ViewerCookieName:      configViper.GetString("viewer.cookie_name"),
		ViewerTokenTTL:        time.Duration(configViper.GetInt("viewer.token_ttl_minutes")) * time.Minute,
		ProfileCookieName:     configViper.GetString("profile.cookie_name"),
		RedisURL:              strings.TrimSpace(configViper.GetString("redis.url")),
		CatalogPath:           strings.TrimSpace(configViper.GetString("catalog.path")),
		TrackingBufferSize:    configViper.GetInt("tracking.buffer_size"),
		TrackingFlushInterval: configViper.GetDuration("tracking.flush_interval"),
		AllowedOrigins:        splitOrigins(configViper.GetStringSlice("cors.allowed_origins")),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// Environment variables arrive as one comma separated string.
func splitOrigins(raw []string) []string {
	origins := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, origin := range strings.Split(entry, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}
	return origins
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.ViewerSigningSecret) == "" {
		return fmt.Errorf("viewer.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.ViewerCookieName) == "" {
		return fmt.Errorf("viewer.cookie_name is required")
	}
	if strings.TrimSpace(c.ProfileCookieName) == "" {
		return fmt.Errorf("profile.cookie_name is required")
	}
	if c.ViewerCookieName == c.ProfileCookieName {
		return fmt.Errorf("viewer.cookie_name and profile.cookie_name must differ")
	}
	if c.ViewerTokenTTL <= 0 {
		return fmt.Errorf("viewer.token_ttl_minutes must be positive")
	}
	if c.TrackingBufferSize <= 0 {
		return fmt.Errorf("tracking.buffer_size must be positive")
	}
	if c.TrackingFlushInterval <= 0 {
		return fmt.Errorf("tracking.flush_interval must be positive")
	}
	return nil
}

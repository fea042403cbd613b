package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingSummarizerKey is returned when a summary is requested but no
// API credential is configured. It is a configuration fault, not a
// transient upstream failure, and callers report it as such.
var ErrMissingSummarizerKey = errors.New("summarization API key is not configured")

type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Auth       AuthConfig       `json:"auth"`
	OAuth      OAuthConfig      `json:"oauth"`
	Summarizer SummarizerConfig `json:"summarizer"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// BaseURL is the externally visible origin, used to build OAuth
	// redirect URLs.
	BaseURL string `json:"base_url"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// OAuthConfig configures the external identity provider used for the
// "sign in with Google" flow. When ClientID is empty the code-exchange
// path of the auth callback reports a configuration error.
type OAuthConfig struct {
	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
	RedirectURL        string `json:"redirect_url"`
}

// SummarizerConfig selects and configures the external summarization API.
type SummarizerConfig struct {
	Provider string        `json:"provider"` // "gemini" or "openai"
	APIKey   string        `json:"api_key"`
	Model    string        `json:"model"`
	BaseURL  string        `json:"base_url,omitempty"` // override for tests
	Timeout  time.Duration `json:"timeout"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".inkwell"))
	}

	// Set defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "inkwell")
	viper.SetDefault("database.database", "inkwell")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("summarizer.provider", "gemini")
	viper.SetDefault("summarizer.model", "gemini-2.0-flash")
	viper.SetDefault("summarizer.timeout", 15*time.Second)

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file is fine; defaults plus env cover everything.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("INKWELL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("INKWELL_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if base := os.Getenv("INKWELL_BASE_URL"); base != "" {
		cfg.Server.BaseURL = base
	}
	if secret := os.Getenv("INKWELL_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}

	// OAuth overrides
	if id := os.Getenv("GOOGLE_OAUTH_CLIENT_ID"); id != "" {
		cfg.OAuth.GoogleClientID = id
	}
	if secret := os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"); secret != "" {
		cfg.OAuth.GoogleClientSecret = secret
	}
	if cfg.OAuth.RedirectURL == "" {
		cfg.OAuth.RedirectURL = cfg.Server.BaseURL + "/auth/callback"
	}

	// Summarizer overrides
	if provider := os.Getenv("INKWELL_SUMMARIZER_PROVIDER"); provider != "" {
		cfg.Summarizer.Provider = provider
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.Summarizer.Provider == "gemini" {
		cfg.Summarizer.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Summarizer.Provider == "openai" {
		cfg.Summarizer.APIKey = key
	}
	if model := os.Getenv("INKWELL_SUMMARIZER_MODEL"); model != "" {
		cfg.Summarizer.Model = model
	}
	if cfg.Summarizer.Timeout <= 0 {
		cfg.Summarizer.Timeout = 15 * time.Second
	}
}

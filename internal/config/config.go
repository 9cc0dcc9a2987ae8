package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mailwarden/core/internal/pkg/mail"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort     = 3500
	defaultEnv      = "development"
	defaultDSN      = "root:password@tcp(127.0.0.1:3306)/mailwarden?charset=utf8mb4&parseTime=True&loc=Local"
	defaultRedisURL = "redis://localhost:6379/0"

	defaultIdleTTLMinutes     = 720
	defaultRotateHours        = 2
	defaultTokenTTLHours      = 720
	defaultExpiryReminderDays = 7
)

// SessionConfig controls browser session lifetimes.
type SessionConfig struct {
	IdleTTLMinutes int `yaml:"idle_ttl_minutes"`
	RotateHours    int `yaml:"rotate_hours"`
}

// DesktopTokenConfig controls desktop bearer token lifetimes.
type DesktopTokenConfig struct {
	TTLHours int `yaml:"ttl_hours"`
}

// BootstrapAdminConfig seeds the first admin account on an empty
// directory. Ignored once any admin exists.
type BootstrapAdminConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port               int                  `yaml:"port"`
	DSN                string               `yaml:"dsn"` // MySQL DSN
	RedisURL           string               `yaml:"redis_url"`
	Env                string               `yaml:"env"` // "development" | "production"
	AllowedOrigins     []string             `yaml:"allowed_origins"`
	Session            SessionConfig        `yaml:"session"`
	DesktopToken       DesktopTokenConfig   `yaml:"desktop_token"`
	BootstrapAdmin     BootstrapAdminConfig `yaml:"bootstrap_admin"`
	Mail               mail.Config          `yaml:"mail"`
	ExpiryReminderDays int                  `yaml:"expiry_reminder_days"`
}

// Load reads the YAML config, applies MW_* environment overrides and
// fills defaults. A missing file is not an error; defaults apply.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fall through to env + defaults.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	normalize(cfg)
	return cfg, nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("MW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("MW_DSN"); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv("MW_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("MW_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("MW_BOOTSTRAP_ADMIN_PASSWORD"); v != "" {
		cfg.BootstrapAdmin.Password = v
	}
}

func normalize(cfg *AppConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		cfg.DSN = defaultDSN
	}
	cfg.RedisURL = normalizeRedisURL(cfg.RedisURL)
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.Session.IdleTTLMinutes <= 0 {
		cfg.Session.IdleTTLMinutes = defaultIdleTTLMinutes
	}
	if cfg.Session.RotateHours <= 0 {
		cfg.Session.RotateHours = defaultRotateHours
	}
	if cfg.DesktopToken.TTLHours <= 0 {
		cfg.DesktopToken.TTLHours = defaultTokenTTLHours
	}
	if cfg.ExpiryReminderDays <= 0 {
		cfg.ExpiryReminderDays = defaultExpiryReminderDays
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins
}

func normalizeRedisURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultRedisURL
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

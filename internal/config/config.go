// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token       string `yaml:"token" env:"BOT_API_KEY" validate:"required"`
	AdminID     int64  `yaml:"admin_id" env:"ADMIN_ID" validate:"required,gt=0"`
	Workers     int    `yaml:"workers"` // update workers
	ServiceName string `yaml:"service_name"`
	SupportURL  string `yaml:"support_url" env:"SUPPORT_URL" validate:"omitempty,url"`
	NewsURL     string `yaml:"news_url" env:"NEWS_URL" validate:"omitempty,url"`
	Timezone    string `yaml:"timezone"`

	// SupportContact is the handle quoted in payment rejection notices.
	SupportContact string `yaml:"support_contact"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"` // trace|debug|info|warn|error
	Format   string `yaml:"format"`                // json|console
	Sampling bool   `yaml:"sampling"`              // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

type RedisConfig struct {
	URL        string        `yaml:"url" env:"REDIS_URL"`
	Password   string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB         int           `yaml:"db"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// PanelConfig describes the upstream VPN panel API.
type PanelConfig struct {
	URL                  string        `yaml:"url" env:"PANEL_URL" validate:"required,url"`
	Username             string        `yaml:"username" env:"PANEL_USERNAME" validate:"required"`
	Password             string        `yaml:"password" env:"PANEL_PASSWORD" validate:"required"`
	Cookie               string        `yaml:"cookie" env:"PANEL_COOKIE"`
	InboundTag           string        `yaml:"inbound_tag"`
	DefaultInboundUUID   string        `yaml:"default_inbound_uuid" env:"DEFAULT_INBOUND_UUID"`
	SubscriptionURL      string        `yaml:"subscription_url" env:"SUBSCRIPTION_URL" validate:"omitempty,url"`
	TokenTTL             time.Duration `yaml:"token_ttl"`
	RequestDelay         time.Duration `yaml:"request_delay"`
	MaxRetries           int           `yaml:"max_retries"`
	RetryBaseDelay       time.Duration `yaml:"retry_base_delay"`
	LoginMaxAttempts     int           `yaml:"login_max_attempts"`
	LoginCooldown        time.Duration `yaml:"login_cooldown"`
	TrafficLimitStrategy string        `yaml:"traffic_limit_strategy"`
	ActivateAllInbounds  *bool         `yaml:"activate_all_inbounds"`
	ProbeInterval        time.Duration `yaml:"probe_interval"`
}

type LedgerConfig struct {
	Driver string `yaml:"driver" validate:"oneof=file postgres"`
	Path   string `yaml:"path"`
}

type MediaConfig struct {
	Path      string `yaml:"path"`
	ImagesDir string `yaml:"images_dir"`
}

type PaymentConfig struct {
	Requisites string `yaml:"requisites" env:"PAYMENT_REQUISITES"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Panel    PanelConfig    `yaml:"panel"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Media    MediaConfig    `yaml:"media"`
	Payment  PaymentConfig  `yaml:"payment"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file, applies .env and environment overrides,
// fills defaults and validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse builds a Config from YAML bytes plus the process environment.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.ServiceName == "" {
		cfg.Bot.ServiceName = "blurnet"
	}
	if cfg.Bot.SupportContact == "" {
		cfg.Bot.SupportContact = "@blurnet_support"
	}
	if cfg.Bot.Timezone == "" {
		cfg.Bot.Timezone = "Europe/Moscow"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Redis.SessionTTL <= 0 {
		cfg.Redis.SessionTTL = 24 * time.Hour
	}

	p := &cfg.Panel
	p.URL = strings.TrimRight(p.URL, "/")
	if p.InboundTag == "" {
		p.InboundTag = "Steal"
	}
	if p.TokenTTL <= 0 {
		p.TokenTTL = time.Hour
	}
	if p.RequestDelay <= 0 {
		p.RequestDelay = time.Second
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.RetryBaseDelay <= 0 {
		p.RetryBaseDelay = time.Second
	}
	if p.LoginMaxAttempts <= 0 {
		p.LoginMaxAttempts = 3
	}
	if p.LoginCooldown <= 0 {
		p.LoginCooldown = 5 * time.Second
	}
	if p.TrafficLimitStrategy == "" {
		p.TrafficLimitStrategy = "MONTH"
	}
	if p.ActivateAllInbounds == nil {
		all := true
		p.ActivateAllInbounds = &all
	}
	if p.ProbeInterval <= 0 {
		p.ProbeInterval = 5 * time.Minute
	}

	if cfg.Ledger.Driver == "" {
		cfg.Ledger.Driver = "file"
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "data/users.json"
	}
	if cfg.Media.Path == "" {
		cfg.Media.Path = "data/media_ids.json"
	}
	if cfg.Media.ImagesDir == "" {
		cfg.Media.ImagesDir = "images"
	}
	if cfg.Payment.Requisites == "" {
		cfg.Payment.Requisites = "-------"
	}
}

var validate = validator.New()

// Validate checks required fields and cross-section constraints.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s failed %q validation", strings.ToLower(fe.Namespace()), fe.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Ledger.Driver == "postgres" && cfg.Database.URL == "" {
		return errors.New("database.url is required for the postgres ledger")
	}
	if _, err := time.LoadLocation(cfg.Bot.Timezone); err != nil {
		return fmt.Errorf("bot.timezone: %w", err)
	}
	return nil
}

// Location returns the time zone used in admin annotations.
func (c BotConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

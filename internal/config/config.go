package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSecretKey    = "change_me_in_production"
	DefaultPollInterval = 60 * time.Second
)

// Config is the runtime configuration: defaults, then an optional YAML file,
// then environment variables.
type Config struct {
	DataDir         string        `yaml:"data_dir" validate:"required"`
	StorageDriver   string        `yaml:"storage_driver" validate:"oneof=file sqlite"`
	DBPath          string        `yaml:"db_path"`
	Port            string        `yaml:"port" validate:"required,numeric"`
	Timezone        string        `yaml:"timezone" validate:"required"`
	SecretKey       string        `yaml:"secret_key" validate:"required,min=16"`
	AuthEnabled     bool          `yaml:"auth_enabled"`
	DefaultLanguage string        `yaml:"default_language" validate:"oneof=es en"`
	CatalogPath     string        `yaml:"catalog_path"`
	PollInterval    time.Duration `yaml:"poll_interval" validate:"gte=5s"`
	LogLevel        string        `yaml:"log_level" validate:"oneof=debug info warn error"`
}

func Default() Config {
	return Config{
		DataDir:         "data",
		StorageDriver:   "file",
		Port:            "8080",
		Timezone:        "UTC",
		SecretKey:       DefaultSecretKey,
		DefaultLanguage: "es",
		PollInterval:    DefaultPollInterval,
		LogLevel:        "info",
	}
}

type LookupEnv func(key string) (string, bool)

// Load reads path (if non-empty) and applies overrides from the process
// environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

func LoadWithEnv(path string, lookup LookupEnv) (Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	cfg.normalize()

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup LookupEnv) error {
	stringOverrides := map[string]*string{
		"DATA_DIR":         &cfg.DataDir,
		"STORAGE_DRIVER":   &cfg.StorageDriver,
		"DB_PATH":          &cfg.DBPath,
		"PORT":             &cfg.Port,
		"TZ":               &cfg.Timezone,
		"SECRET_KEY":       &cfg.SecretKey,
		"DEFAULT_LANGUAGE": &cfg.DefaultLanguage,
		"CATALOG_PATH":     &cfg.CatalogPath,
		"LOG_LEVEL":        &cfg.LogLevel,
	}
	for key, target := range stringOverrides {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
		}
	}

	if value, ok := lookup("POLL_INTERVAL"); ok && strings.TrimSpace(value) != "" {
		interval, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("parse POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = interval
	}
	if value, ok := lookup("AUTH_ENABLED"); ok && strings.TrimSpace(value) != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "on":
			cfg.AuthEnabled = true
		case "0", "false", "no", "off":
			cfg.AuthEnabled = false
		default:
			return fmt.Errorf("parse AUTH_ENABLED: unexpected value %q", value)
		}
	}
	return nil
}

func (cfg *Config) normalize() {
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	cfg.DefaultLanguage = strings.ToLower(cfg.DefaultLanguage)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.StorageDriver == "sqlite" && cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "dosekeeper.db")
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that the timezone resolves.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}

func (cfg Config) Location() *time.Location {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC
	}
	return location
}

func (cfg Config) ZapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// UsesDefaultSecret reports whether the placeholder signing key is still set.
func (cfg Config) UsesDefaultSecret() bool {
	return cfg.SecretKey == DefaultSecretKey
}

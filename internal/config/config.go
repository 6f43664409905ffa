// Package config resolves process settings in three layers: defaults, an optional
// YAML file named by CONFIG_PATH, then environment variables. A .env file, when
// present, is loaded into the environment first and never overrides variables that
// are already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/terraincognita07/actiontracker/internal/security"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string
	DBPath       string
	Location     *time.Location
	SecretKey    string
	SecretIsTemp bool
	CookieSecure bool
	SessionTTL   time.Duration

	PasswordResetTTL   time.Duration
	ResetSweepSchedule string
	BcryptCost         int

	AuthRatePerMinute int
	AuthRateBurst     int

	LogLevel  string
	LogFormat string

	PublicBaseURL string
	SMTP          SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether outgoing mail is configured at all.
func (smtp SMTPConfig) Enabled() bool {
	return strings.TrimSpace(smtp.Host) != ""
}

func (smtp SMTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", smtp.Host, smtp.Port)
}

type fileConfig struct {
	Server struct {
		Port          string `yaml:"port"`
		Timezone      string `yaml:"timezone"`
		CookieSecure  *bool  `yaml:"cookie_secure"`
		SessionTTL    string `yaml:"session_ttl"`
		PublicBaseURL string `yaml:"public_base_url"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Security struct {
		SecretKey          string `yaml:"secret_key"`
		PasswordResetTTL   string `yaml:"password_reset_ttl"`
		ResetSweepSchedule string `yaml:"reset_sweep_schedule"`
		BcryptCost         int    `yaml:"bcrypt_cost"`
	} `yaml:"security"`
	RateLimit struct {
		AuthPerMinute int `yaml:"auth_per_minute"`
		AuthBurst     int `yaml:"auth_burst"`
	} `yaml:"rate_limit"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`
}

func Defaults() Config {
	return Config{
		Port:               "8080",
		DBPath:             filepath.Join("data", "actiontracker.db"),
		Location:           time.UTC,
		SessionTTL:         7 * 24 * time.Hour,
		PasswordResetTTL:   time.Hour,
		ResetSweepSchedule: "@every 15m",
		BcryptCost:         12,
		AuthRatePerMinute:  20,
		AuthRateBurst:      5,
		LogLevel:           "info",
		LogFormat:          "text",
		PublicBaseURL:      "http://localhost:8080",
		SMTP:               SMTPConfig{Port: 587},
	}
}

// Load reads envFile (skipped when missing), the YAML file at CONFIG_PATH and the
// environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.SecretKey) == "" {
		secret, err := security.NewSecretKey()
		if err != nil {
			return nil, fmt.Errorf("generate secret key: %w", err)
		}
		cfg.SecretKey = secret
		cfg.SecretIsTemp = true
	}
	return &cfg, nil
}

func (cfg *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.Port, file.Server.Port)
	setString(&cfg.PublicBaseURL, file.Server.PublicBaseURL)
	if file.Server.CookieSecure != nil {
		cfg.CookieSecure = *file.Server.CookieSecure
	}
	if err := setLocation(&cfg.Location, file.Server.Timezone); err != nil {
		return err
	}
	if err := setDuration(&cfg.SessionTTL, "server.session_ttl", file.Server.SessionTTL); err != nil {
		return err
	}
	setString(&cfg.DBPath, file.Database.Path)
	setString(&cfg.SecretKey, file.Security.SecretKey)
	if err := setDuration(&cfg.PasswordResetTTL, "security.password_reset_ttl", file.Security.PasswordResetTTL); err != nil {
		return err
	}
	setString(&cfg.ResetSweepSchedule, file.Security.ResetSweepSchedule)
	setInt(&cfg.BcryptCost, file.Security.BcryptCost)
	setInt(&cfg.AuthRatePerMinute, file.RateLimit.AuthPerMinute)
	setInt(&cfg.AuthRateBurst, file.RateLimit.AuthBurst)
	setString(&cfg.LogLevel, file.Log.Level)
	setString(&cfg.LogFormat, file.Log.Format)
	setString(&cfg.SMTP.Host, file.SMTP.Host)
	setInt(&cfg.SMTP.Port, file.SMTP.Port)
	setString(&cfg.SMTP.Username, file.SMTP.Username)
	setString(&cfg.SMTP.Password, file.SMTP.Password)
	setString(&cfg.SMTP.From, file.SMTP.From)
	return nil
}

func (cfg *Config) applyEnv() error {
	setString(&cfg.Port, os.Getenv("PORT"))
	setString(&cfg.DBPath, os.Getenv("DB_PATH"))
	setString(&cfg.SecretKey, os.Getenv("SECRET_KEY"))
	setString(&cfg.PublicBaseURL, os.Getenv("PUBLIC_BASE_URL"))
	setString(&cfg.ResetSweepSchedule, os.Getenv("RESET_SWEEP_SCHEDULE"))
	setString(&cfg.LogLevel, os.Getenv("LOG_LEVEL"))
	setString(&cfg.LogFormat, os.Getenv("LOG_FORMAT"))
	setString(&cfg.SMTP.Host, os.Getenv("SMTP_HOST"))
	setString(&cfg.SMTP.Username, os.Getenv("SMTP_USERNAME"))
	setString(&cfg.SMTP.Password, os.Getenv("SMTP_PASSWORD"))
	setString(&cfg.SMTP.From, os.Getenv("SMTP_FROM"))

	if err := setLocation(&cfg.Location, os.Getenv("TZ")); err != nil {
		return err
	}
	if err := setDuration(&cfg.SessionTTL, "SESSION_TTL", os.Getenv("SESSION_TTL")); err != nil {
		return err
	}
	if err := setDuration(&cfg.PasswordResetTTL, "PASSWORD_RESET_TTL", os.Getenv("PASSWORD_RESET_TTL")); err != nil {
		return err
	}

	for key, target := range map[string]*int{
		"BCRYPT_COST":          &cfg.BcryptCost,
		"AUTH_RATE_PER_MINUTE": &cfg.AuthRatePerMinute,
		"AUTH_RATE_BURST":      &cfg.AuthRateBurst,
		"SMTP_PORT":            &cfg.SMTP.Port,
	} {
		if err := setIntFromEnv(target, key); err != nil {
			return err
		}
	}

	if raw := strings.TrimSpace(os.Getenv("COOKIE_SECURE")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid COOKIE_SECURE %q: %w", raw, err)
		}
		cfg.CookieSecure = value
	}
	return nil
}

func setString(target *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*target = trimmed
	}
}

func setInt(target *int, value int) {
	if value > 0 {
		*target = value
	}
}

func setIntFromEnv(target *int, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	*target = value
	return nil
}

func setDuration(target *time.Duration, name string, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fmt.Errorf("invalid %s %q: must be a positive duration", name, raw)
	}
	*target = value
	return nil
}

func setLocation(target **time.Location, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	location, err := time.LoadLocation(raw)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", raw, err)
	}
	*target = location
	return nil
}

// String summarizes the configuration without secrets.
func (cfg *Config) String() string {
	return fmt.Sprintf("Config{Port: %s, DB: %s, TZ: %s, SMTP: %t, TempSecret: %t}",
		cfg.Port, cfg.DBPath, cfg.Location, cfg.SMTP.Enabled(), cfg.SecretIsTemp)
}

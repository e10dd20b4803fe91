// Package config loads settings and owns process-wide resources (database, log writer, mailer).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envFile = ".env"

// Config holds application configuration.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	DB          DatabaseConfig `mapstructure:"db"`
	JWT         JWTConfig      `mapstructure:"jwt"`
	Roles       RolesConfig    `mapstructure:"roles"`
	SMTP        SMTPConfig     `mapstructure:"smtp"`
	Log         LogConfig      `mapstructure:"log"`
	Timeline    TimelineConfig `mapstructure:"timeline"`
	Protocol    ProtocolConfig `mapstructure:"protocol"`
}

// ServerConfig contains HTTP server options.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	GinMode        string   `mapstructure:"gin_mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig describes the MySQL connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DebugSQL bool   `mapstructure:"debug_sql"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RolesConfig maps personnel role ids onto workflow actor classes.
type RolesConfig struct {
	OfficeIDs []int `mapstructure:"office_ids"`
}

// SMTPConfig holds outgoing mail settings. An empty Host disables mail.
type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Pass          string `mapstructure:"pass"`
	From          string `mapstructure:"from"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
}

// LogConfig contains logger preferences.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// TimelineConfig controls timeline hygiene filtering.
type TimelineConfig struct {
	ExcludedValues []string `mapstructure:"excluded_values"`
}

// ProtocolConfig holds workflow tunables.
type ProtocolConfig struct {
	ReviewerCacheTTL   time.Duration `mapstructure:"reviewer_cache_ttl"`
	RegistrationDigits int           `mapstructure:"registration_digits"`
}

// NewConfig loads configuration from the environment and an optional .env file.
// Variables already present in the environment take precedence over .env.
func NewConfig() (*Config, error) {
	if envMap, err := godotenv.Read(envFile); err == nil {
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.gin_mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 3306)
	v.SetDefault("db.database", "protocol_review")
	v.SetDefault("db.username", "root")
	v.SetDefault("db.password", "")
	v.SetDefault("db.debug_sql", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("roles.office_ids", []int{3})

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.skip_tls_verify", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/protocol-api.log")

	v.SetDefault("timeline.excluded_values", []string{"test"})

	v.SetDefault("protocol.reviewer_cache_ttl", 5*time.Minute)
	v.SetDefault("protocol.registration_digits", 5)
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"environment",
		"server.port",
		"server.gin_mode",
		"server.allowed_origins",
		"db.host",
		"db.port",
		"db.database",
		"db.username",
		"db.password",
		"db.debug_sql",
		"jwt.secret",
		"jwt.expire_hours",
		"roles.office_ids",
		"smtp.host",
		"smtp.port",
		"smtp.user",
		"smtp.pass",
		"smtp.from",
		"smtp.skip_tls_verify",
		"log.level",
		"log.file",
		"timeline.excluded_values",
		"protocol.reviewer_cache_ttl",
		"protocol.registration_digits",
	}

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if c.Server.Port == 0 {
		return errors.New("server.port is required")
	}
	if c.DB.Host == "" || c.DB.Database == "" || c.DB.Username == "" {
		return errors.New("database host, name and username are required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Protocol.RegistrationDigits <= 0 {
		return errors.New("protocol.registration_digits must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ServerAddr returns the listen address for the HTTP server.
func (c Config) ServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// IsOfficeRole reports whether roleID belongs to review-office staff.
func (r RolesConfig) IsOfficeRole(roleID int) bool {
	for _, id := range r.OfficeIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Package config loads application configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Email     EmailConfig     `mapstructure:"email"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Templates TemplateConfig  `mapstructure:"templates"`
	SeedFile  string          `mapstructure:"seed_file"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig selects the SQL backend. Driver is one of mysql, postgres,
// or sqlite3.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig configures the deferred-action queue backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EmailConfig configures outbound mail.
type EmailConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	From    string     `mapstructure:"from"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig holds SMTP transport settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

// WebhookConfig configures outbound webhook signing.
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

// SchedulerConfig holds cron cadences.
type SchedulerConfig struct {
	BreachSweepSpec   string        `mapstructure:"breach_sweep_spec"`
	TimeBasedSpec     string        `mapstructure:"time_based_spec"`
	DeferredSpec      string        `mapstructure:"deferred_spec"`
	DeferredBatchSize int           `mapstructure:"deferred_batch_size"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// TemplateConfig locates notification templates.
type TemplateConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads configuration from path (optional) and TICKETFLOW_* env vars.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TICKETFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "ticketflow.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("email.enabled", false)
	v.SetDefault("scheduler.breach_sweep_spec", "@every 1m")
	v.SetDefault("scheduler.time_based_spec", "@every 5m")
	v.SetDefault("scheduler.deferred_spec", "@every 30s")
	v.SetDefault("scheduler.deferred_batch_size", 100)
	v.SetDefault("scheduler.shutdown_timeout", 10*time.Second)
	v.SetDefault("templates.dir", "templates")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	return nil
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Workflow   WorkflowConfig   `mapstructure:"workflow"`
	Assignment AssignmentConfig `mapstructure:"assignment"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	HSM        HSMConfig        `mapstructure:"hsm"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Documents  DocumentsConfig  `mapstructure:"documents"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// WorkflowConfig tunes the workflow orchestrator
type WorkflowConfig struct {
	// DefaultFeeAmount is used when an application is created without a fee
	DefaultFeeAmount float64 `mapstructure:"default_fee_amount"`
}

// AssignmentConfig tunes the officer assignment engine
type AssignmentConfig struct {
	DefaultStrategy    string `mapstructure:"default_strategy"`
	DefaultMaxWorkload int    `mapstructure:"default_max_workload"`
}

// EscalationConfig tunes the stale-assignment sweep
type EscalationConfig struct {
	Schedule     string `mapstructure:"schedule"`
	DefaultHours int    `mapstructure:"default_hours"`
}

// HSMConfig holds hardware security module client configuration
type HSMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PaymentConfig holds payment gateway client configuration
type PaymentConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	MerchantID string        `mapstructure:"merchant_id"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DocumentsConfig holds document service client configuration
type DocumentsConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NotifyConfig holds notification hub configuration
type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/licensing.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Workflow defaults
	viper.SetDefault("workflow.default_fee_amount", 5000.0)

	// Assignment defaults
	viper.SetDefault("assignment.default_strategy", "WORKLOAD_BASED")
	viper.SetDefault("assignment.default_max_workload", 10)

	// Escalation defaults: hourly sweep, escalate after two working days
	viper.SetDefault("escalation.schedule", "0 * * * *")
	viper.SetDefault("escalation.default_hours", 48)

	// External service defaults
	viper.SetDefault("hsm.timeout", 30*time.Second)
	viper.SetDefault("payment.timeout", 30*time.Second)
	viper.SetDefault("documents.timeout", 30*time.Second)
	viper.SetDefault("notify.timeout", 10*time.Second)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("hsm.api_key", "HSM_API_KEY")
	viper.BindEnv("payment.api_key", "PAYMENT_API_KEY")
	viper.BindEnv("payment.merchant_id", "PAYMENT_MERCHANT_ID")
	viper.BindEnv("documents.api_key", "DOCUMENTS_API_KEY")
	viper.BindEnv("notify.webhook_url", "NOTIFY_WEBHOOK_URL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Escalation.Schedule == "" {
		return fmt.Errorf("escalation.schedule is required")
	}
	if c.Escalation.DefaultHours <= 0 {
		return fmt.Errorf("escalation.default_hours must be positive")
	}
	if c.Assignment.DefaultMaxWorkload <= 0 {
		return fmt.Errorf("assignment.default_max_workload must be positive")
	}
	return nil
}

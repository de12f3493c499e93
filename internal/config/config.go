package config

import (
	"time"

	"github.com/millionvolts/adgather/internal/roster"
)

// CollectorConfig is the root configuration for a collector instance.
type CollectorConfig struct {
	Meta      MetaConfig      `yaml:"meta"`
	API       APIConfig       `yaml:"api"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Range     RangeConfig     `yaml:"range"`
	Accounts  []roster.Row    `yaml:"accounts"`
}

// MetaConfig identifies the reporting client to the downstream collector.
type MetaConfig struct {
	User string `yaml:"user"`
	Geo  string `yaml:"geo"`
	Sign string `yaml:"sign"`
}

// APIConfig configures the Graph API client.
type APIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	GraphQLURL  string        `yaml:"graphql_url"`
	AccessToken string        `yaml:"access_token"`
	Version     string        `yaml:"version"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	PageLimit   int           `yaml:"page_limit"`
}

// SchedulerConfig configures the polling rounds.
type SchedulerConfig struct {
	Interval       time.Duration `yaml:"interval"`
	Concurrency    int           `yaml:"concurrency"`
	InitOnly       bool          `yaml:"init_only"`
	BillingMode    bool          `yaml:"billing_mode"`
	InitAckTimeout time.Duration `yaml:"init_ack_timeout"`
	InitAckPoll    time.Duration `yaml:"init_ack_poll"`
}

// DeliveryConfig configures the outbound payload POST.
type DeliveryConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig selects the baseline store backend.
type StoreConfig struct {
	// Driver is "memory" or "postgres".
	Driver   string   `yaml:"driver"`
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	MinConns int    `yaml:"min_conns"`
	MaxConns int    `yaml:"max_conns"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// RangeConfig fixes the reporting window for non-billing accounts. Empty
// bounds default to the current day at round time.
type RangeConfig struct {
	Since string `yaml:"since"`
	Until string `yaml:"until"`
}

package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL         = "https://graph.facebook.com"
	DefaultAPIVersion      = "v22.0"
	DefaultAPITimeout      = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultPageLimit       = 500
	DefaultInterval        = 5 * time.Minute
	DefaultConcurrency     = 4
	DefaultInitAckTimeout  = 30 * time.Second
	DefaultInitAckPoll     = 500 * time.Millisecond
	DefaultDeliveryTimeout = 30 * time.Second
	DefaultStoreDriver     = "memory"
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

func (c *CollectorConfig) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Version == "" {
		c.API.Version = DefaultAPIVersion
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.PageLimit == 0 {
		c.API.PageLimit = DefaultPageLimit
	}

	// Scheduler defaults
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = DefaultInterval
	}
	if c.Scheduler.Concurrency == 0 {
		c.Scheduler.Concurrency = DefaultConcurrency
	}
	if c.Scheduler.InitAckTimeout == 0 {
		c.Scheduler.InitAckTimeout = DefaultInitAckTimeout
	}
	if c.Scheduler.InitAckPoll == 0 {
		c.Scheduler.InitAckPoll = DefaultInitAckPoll
	}

	// Delivery defaults
	if c.Delivery.Timeout == 0 {
		c.Delivery.Timeout = DefaultDeliveryTimeout
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	if c.Store.Driver == "postgres" {
		applyDBDefaults(&c.Store.Postgres)
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

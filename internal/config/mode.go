package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// ModeFlags are deployment-time overrides layered over the config file.
// Pointer fields distinguish "unset" from an explicit false.
type ModeFlags struct {
	// Interval overrides scheduler.interval. Accepts a Go duration
	// ("90s", "5m"), a bare number of seconds, or the init-only
	// sentinels "-1" and "init".
	Interval string `env:"ADG_INTERVAL"`

	// BillingMode toggles cumulative billing reconciliation.
	BillingMode *bool `env:"ADG_BILLING_MODE"`

	// BillingInited declares the downstream collector already holds the
	// baselines, so induction is skipped even with an empty memory store.
	BillingInited *bool `env:"ADG_BILLING_INITED"`
}

// ParseModeFlags reads the mode flags from the environment.
func ParseModeFlags() (*ModeFlags, error) {
	flags, err := env.ParseAs[ModeFlags]()
	if err != nil {
		return nil, fmt.Errorf("parse mode flags: %w", err)
	}
	return &flags, nil
}

// ApplyMode layers the flags over the loaded config.
func (f *ModeFlags) ApplyMode(cfg *CollectorConfig) error {
	if f.Interval != "" {
		switch f.Interval {
		case "init", "-1":
			cfg.Scheduler.InitOnly = true
		default:
			d, err := parseInterval(f.Interval)
			if err != nil {
				return err
			}
			if d < 0 {
				cfg.Scheduler.InitOnly = true
			} else {
				cfg.Scheduler.Interval = d
			}
		}
	}

	if f.BillingMode != nil {
		cfg.Scheduler.BillingMode = *f.BillingMode
	}

	return nil
}

func parseInterval(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	return time.Duration(secs) * time.Second, nil
}

// Package config holds the screening engine tunables.
package config

import (
	"time"

	dErrors "amora/pkg/domain-errors"
)

// Config carries the engine-level knobs that are not part of any quiz
// configuration version.
type Config struct {
	// CooldownWindow blocks re-entry after a cooldown outcome, measured
	// from the attempt's start time.
	CooldownWindow time.Duration
	// HardBanWeight is the sentinel answer weight that makes a user
	// permanently ineligible regardless of rules.
	HardBanWeight float64
	// DefaultMinSelectionsPenalty applies when a multi-select question
	// under-selects and neither overlay nor snapshot configures a penalty.
	DefaultMinSelectionsPenalty float64
	// LockTTL bounds how long a per-user lease may be held.
	LockTTL time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		CooldownWindow:              30 * 24 * time.Hour,
		HardBanWeight:               999999,
		DefaultMinSelectionsPenalty: 1,
		LockTTL:                     10 * time.Second,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.CooldownWindow <= 0 {
		return dErrors.New(dErrors.CodeValidation, "cooldown window must be positive")
	}
	if c.HardBanWeight <= 0 {
		return dErrors.New(dErrors.CodeValidation, "hard ban weight must be positive")
	}
	if c.LockTTL <= 0 {
		return dErrors.New(dErrors.CodeValidation, "lock ttl must be positive")
	}
	return nil
}

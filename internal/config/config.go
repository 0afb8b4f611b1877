// Package config provides configuration management for perturbd.
package config

import "time"

// Config holds all configuration options for the probe engine.
// The timing defaults are the engine's compiled-in constants; flags
// exist for them so lab runs can compress the schedule.
type Config struct {
	// Target catalog
	CatalogPath string `json:"catalog_path"`

	// Phase switches
	DisableSigterm bool `json:"disable_sigterm"`
	DisableSigkill bool `json:"disable_sigkill"`
	DisableFreeze  bool `json:"disable_freeze"`

	// Scheduling
	Once       bool          `json:"once"`
	CycleDelay time.Duration `json:"cycle_delay"`
	Seed       int64         `json:"seed"` // 0 = seed from time

	// Signal probes
	ShutdownDelay    time.Duration `json:"shutdown_delay"`
	InterTargetDelay time.Duration `json:"inter_target_delay"`

	// Freeze probe
	FreezePollIterations int           `json:"freeze_poll_iterations"`
	FreezePollInterval   time.Duration `json:"freeze_poll_interval"`

	// Observability
	MetricsAddr  string `json:"metrics_addr"`
	SnapshotPath string `json:"snapshot_path"` // metrics dump on exit, empty = disabled
	Verbose      bool   `json:"verbose"`
	LogFormat    string `json:"log_format"` // json, text
	TUIEnabled   bool   `json:"tui"`

	// Diagnostics
	SkipPreflight bool   `json:"skip_preflight"`
	ProcRoot      string `json:"proc_root"`
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() *Config {
	return &Config{
		CatalogPath: "/etc/perturbd/targets.yaml",

		// Scheduling: a full cycle every 10 minutes. Re-running the
		// same checks with a different target order each cycle is how
		// ordering-dependent recovery bugs get flushed out.
		CycleDelay: 10 * time.Minute,

		// Signal probes: 5s for a well-behaved process to shut down
		// and be respawned, then 5min for the whole system to settle
		// so the next target is not blamed for this one's fallout.
		ShutdownDelay:    5 * time.Second,
		InterTargetDelay: 5 * time.Minute,

		// Freeze probe: give the watchdog 10 x 5s to act.
		FreezePollIterations: 10,
		FreezePollInterval:   5 * time.Second,

		// Observability
		MetricsAddr: "0.0.0.0:17092",
		LogFormat:   "text",

		ProcRoot: "/proc",
	}
}

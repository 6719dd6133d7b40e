package config

// Default returns a fully populated default configuration
func Default() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	SetDefaults(cfg)
	return cfg
}

// SetDefaults sets default values for all zero configuration fields.
// Booleans are left alone; their defaults come from Default.
func SetDefaults(cfg *Config) {
	// Episode defaults
	if cfg.Episode.Horizon == 0 {
		cfg.Episode.Horizon = 3600
	}
	if cfg.Episode.Valuation == "" {
		cfg.Episode.Valuation = "sunk"
	}
	if cfg.Episode.MaxSteps == 0 {
		cfg.Episode.MaxSteps = 1000
	}
	if cfg.Episode.Policy == "" {
		cfg.Episode.Policy = "greedy"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.MaxSessions == 0 {
		cfg.Server.MaxSessions = 64
	}

	// Metrics defaults
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

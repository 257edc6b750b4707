package config

// validate checks that the final merged [StructuredConfig] satisfies the
// engine's startup invariants.
//
// Returns nil if the configuration is valid, or a sentinel error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.BaseURL == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.SyncInterval <= 0 || cfg.Workers.BatchSize <= 0 ||
		cfg.Workers.MaxBackoff <= 0 || cfg.Workers.LockTTL <= 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}

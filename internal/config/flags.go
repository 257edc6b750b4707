package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-d local database file path
//	-remote remote backend base URL
//	-c/-config json file path with configs
//	-request-timeout remote request timeout (e.g., "30s", "1m")
//	-sync-interval background sync period (e.g., "5m")
//	-batch-size queue drain batch size
//	-max-backoff retry backoff cap (e.g., "60s")
//	-lock-ttl full-sync lock lifetime (e.g., "2m")
//	-log-file rotated log file path
func ParseFlags() *StructuredConfig {
	var databaseDSN string
	var remoteBaseURL string
	var jsonConfigPath string
	var requestTimeout time.Duration
	var syncInterval time.Duration
	var batchSize int
	var maxBackoff time.Duration
	var lockTTL time.Duration
	var logFile string

	flag.StringVar(&databaseDSN, "d", "", "Local database file path")
	flag.StringVar(&remoteBaseURL, "remote", "", "Remote backend base URL")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Remote request timeout (e.g., 30s, 1m)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync period (e.g., 5m)")
	flag.IntVar(&batchSize, "batch-size", 0, "Queue drain batch size")
	flag.DurationVar(&maxBackoff, "max-backoff", 0, "Retry backoff cap (e.g., 60s)")
	flag.DurationVar(&lockTTL, "lock-ttl", 0, "Full-sync lock lifetime (e.g., 2m)")
	flag.StringVar(&logFile, "log-file", "", "Rotated log file path")

	flag.Parse()

	return &StructuredConfig{
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Adapter: Adapter{
			BaseURL:        remoteBaseURL,
			RequestTimeout: requestTimeout,
		},
		Workers: Workers{
			SyncInterval: syncInterval,
			BatchSize:    batchSize,
			MaxBackoff:   maxBackoff,
			LockTTL:      lockTTL,
		},
		Logs: Logs{
			File: logFile,
		},
		JSONFilePath: jsonConfigPath,
	}
}

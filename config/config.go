package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Port the API listens on
	Port string `env:"PORT" envDefault:"5250"`

	// Path to the sqlite database file; empty runs fully in memory
	DatabasePath string `env:"DATABASE_PATH" envDefault:"database/tasador.db"`

	// Run without any database (local-only session)
	LocalMode bool `env:"LOCAL_MODE" envDefault:"false"`

	// Timeout for fetching spreadsheet exports (in seconds)
	SheetFetchTimeout int `env:"SHEET_FETCH_TIMEOUT" envDefault:"15"`

	// Directory for the geocoding cache; empty uses the system temp dir
	GeocodeCacheDir string `env:"GEOCODE_CACHE_DIR"`

	// BatchProcessing configuration for bulk import persistence
	BatchProcessing struct {
		// Number of batches the import queue buffers
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"100"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

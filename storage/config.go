package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds buffer cache configuration
type Config struct {
	// Buffer pool
	BufferPoolSize int    `json:"buffer_pool_size"` // Number of frames in the pool
	Replacer       string `json:"replacer"`         // Replacement policy (lruk, lru)
	ReplacerK      int    `json:"replacer_k"`       // K for the LRU-K policy

	// Disk
	DataFile    string `json:"data_file"`   // Path of the page file
	PageSize    int    `json:"page_size"`   // Page size in bytes (must be 4096)
	DirectIO    bool   `json:"direct_io"`   // Bypass the kernel page cache
	Compression string `json:"compression"` // Page compression (none, lz4, snappy)

	// Background flusher
	FlusherEnabled   bool          `json:"flusher_enabled"`
	FlushInterval    time.Duration `json:"flush_interval"`
	DirtyRatioTarget float64       `json:"dirty_ratio_target"` // Flush when dirty/total reaches this

	// Observability
	EnableMetrics bool   `json:"enable_metrics"`
	LogLevel      string `json:"log_level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		BufferPoolSize:   100,
		Replacer:         "lruk",
		ReplacerK:        2,
		DataFile:         "./tarn.db",
		PageSize:         PageSize,
		DirectIO:         false,
		Compression:      "none",
		FlusherEnabled:   false,
		FlushInterval:    time.Second,
		DirtyRatioTarget: 0.5,
		EnableMetrics:    true,
		LogLevel:         "info",
	}
}

// LoadConfigFromFile loads configuration from a JSON file
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigFromEnv loads configuration from TARNDB_* environment variables,
// falling back to defaults for variables that are not set.
func LoadConfigFromEnv() *Config {
	config := DefaultConfig()

	if val := os.Getenv("TARNDB_BUFFER_POOL_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.BufferPoolSize = size
		}
	}

	if val := os.Getenv("TARNDB_REPLACER"); val != "" {
		config.Replacer = val
	}

	if val := os.Getenv("TARNDB_REPLACER_K"); val != "" {
		if k, err := strconv.Atoi(val); err == nil {
			config.ReplacerK = k
		}
	}

	if val := os.Getenv("TARNDB_DATA_FILE"); val != "" {
		config.DataFile = val
	}

	if val := os.Getenv("TARNDB_DIRECT_IO"); val != "" {
		config.DirectIO = val == "true" || val == "1"
	}

	if val := os.Getenv("TARNDB_COMPRESSION"); val != "" {
		config.Compression = val
	}

	if val := os.Getenv("TARNDB_FLUSHER_ENABLED"); val != "" {
		config.FlusherEnabled = val == "true" || val == "1"
	}

	if val := os.Getenv("TARNDB_FLUSH_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.FlushInterval = d
		}
	}

	if val := os.Getenv("TARNDB_ENABLE_METRICS"); val != "" {
		config.EnableMetrics = val == "true" || val == "1"
	}

	if val := os.Getenv("TARNDB_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	return config
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BufferPoolSize <= 0 {
		return NewStorageError(ErrCodeInvalidConfig, "Config.Validate", "buffer pool size must be greater than 0", nil)
	}

	if c.PageSize != PageSize {
		return NewStorageError(ErrCodeInvalidConfig, "Config.Validate",
			fmt.Sprintf("page size must be %d, got %d", PageSize, c.PageSize), nil)
	}

	switch c.Replacer {
	case "lruk", "lru":
	default:
		return NewStorageError(ErrCodeInvalidConfig, "Config.Validate",
			fmt.Sprintf("unknown replacer: %q (must be lruk or lru)", c.Replacer), nil)
	}

	if c.ReplacerK < 1 {
		return NewStorageError(ErrCodeInvalidConfig, "Config.Validate", "replacer K must be at least 1", nil)
	}

	if c.DataFile == "" {
		return NewStorageError(ErrCodeInvalidConfig, "Config.Validate", "data file cannot be empty", nil)
	}

	if _, err := CompressionTypeFromString(c.Compression); err != nil {
		return NewStorageError(ErrCodeInvalidConfig, "Config.Validate", err.Error(), nil)
	}

	if c.FlusherEnabled {
		if c.FlushInterval <= 0 {
			return NewStorageError(ErrCodeInvalidConfig, "Config.Validate", "flush interval must be positive", nil)
		}
		if c.DirtyRatioTarget < 0 || c.DirtyRatioTarget > 1 {
			return NewStorageError(ErrCodeInvalidConfig, "Config.Validate", "dirty ratio target must be within [0, 1]", nil)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return NewStorageError(ErrCodeInvalidConfig, "Config.Validate",
			fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel), nil)
	}

	return nil
}

// SlogLevel maps the configured log level to a slog level
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// OpenDiskManager builds the disk manager stack the configuration describes:
// a file or direct I/O base, optionally wrapped with page compression.
func (c *Config) OpenDiskManager() (DiskManager, error) {
	var base DiskManager
	var err error

	if c.DirectIO {
		base, err = NewDirectIODiskManager(c.DataFile)
	} else {
		base, err = NewFileDiskManager(c.DataFile)
	}
	if err != nil {
		return nil, err
	}

	algorithm, err := CompressionTypeFromString(c.Compression)
	if err != nil {
		base.Close()
		return nil, err
	}
	if algorithm == CompressionNone {
		return base, nil
	}
	return NewCompressedDiskManager(base, algorithm), nil
}

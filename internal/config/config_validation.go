package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(config *Config) error {
	var errs []error

	if err := validateServerConfig(&config.Server); err != nil {
		errs = append(errs, err)
	}
	if err := validateStorageConfig(&config.Storage); err != nil {
		errs = append(errs, err)
	}
	if err := validateRetentionConfig(&config.Retention); err != nil {
		errs = append(errs, err)
	}
	if err := validateIngestConfig(&config.Ingest); err != nil {
		errs = append(errs, err)
	}
	if err := validateLiveConfig(&config.Live); err != nil {
		errs = append(errs, err)
	}
	if err := validateExportConfig(&config.Export); err != nil {
		errs = append(errs, err)
	}
	if err := validateLoggingConfig(&config.Logging); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "config",
			Message: fmt.Sprintf("configuration validation failed: %v", errs),
		}
	}
	return nil
}

func validateServerConfig(c *ServerConfig) error {
	if strings.TrimSpace(c.Host) == "" {
		return &ValidationError{Field: "server.host", Message: "host cannot be empty"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Port)}
	}
	if c.ReadTimeout <= 0 {
		return &ValidationError{Field: "server.read_timeout", Message: fmt.Sprintf("read timeout must be positive, got %v", c.ReadTimeout)}
	}
	if c.WriteTimeout <= 0 {
		return &ValidationError{Field: "server.write_timeout", Message: fmt.Sprintf("write timeout must be positive, got %v", c.WriteTimeout)}
	}
	if c.ShutdownTimeout <= 0 {
		return &ValidationError{Field: "server.shutdown_timeout", Message: fmt.Sprintf("shutdown timeout must be positive, got %v", c.ShutdownTimeout)}
	}
	return nil
}

func validateStorageConfig(c *StorageConfig) error {
	if strings.TrimSpace(c.RootDir) == "" {
		return &ValidationError{Field: "storage.root_dir", Message: "root_dir cannot be empty"}
	}
	if c.WarnPercent < 0 || c.WarnPercent > 100 {
		return &ValidationError{Field: "storage.warn_percent", Message: fmt.Sprintf("warn percent must be between 0 and 100, got %d", c.WarnPercent)}
	}
	if c.BlockPercent < 0 || c.BlockPercent > 100 {
		return &ValidationError{Field: "storage.block_percent", Message: fmt.Sprintf("block percent must be between 0 and 100, got %d", c.BlockPercent)}
	}
	if c.WarnPercent >= c.BlockPercent {
		return &ValidationError{Field: "storage.block_percent", Message: fmt.Sprintf("block percent (%d) must exceed warn percent (%d)", c.BlockPercent, c.WarnPercent)}
	}
	return nil
}

func validateRetentionConfig(c *RetentionConfig) error {
	if c.MaxAgeDays < 0 {
		return &ValidationError{Field: "retention.max_age_days", Message: fmt.Sprintf("max_age_days cannot be negative, got %d", c.MaxAgeDays)}
	}
	if c.MaxStorageGB < 0 {
		return &ValidationError{Field: "retention.max_storage_gb", Message: fmt.Sprintf("max_storage_gb cannot be negative, got %d", c.MaxStorageGB)}
	}
	if c.MaxStoragePercent < 0 || c.MaxStoragePercent > 100 {
		return &ValidationError{Field: "retention.max_storage_percent", Message: fmt.Sprintf("max_storage_percent must be between 0 and 100, got %f", c.MaxStoragePercent)}
	}
	return nil
}

func validateIngestConfig(c *IngestConfig) error {
	if c.RestartCoolOff <= 0 {
		return &ValidationError{Field: "ingest.restart_cool_off", Message: fmt.Sprintf("restart_cool_off must be positive, got %v", c.RestartCoolOff)}
	}
	if c.StopGraceTimeout <= 0 {
		return &ValidationError{Field: "ingest.stop_grace_timeout", Message: fmt.Sprintf("stop_grace_timeout must be positive, got %v", c.StopGraceTimeout)}
	}
	if c.HungActivityThreshold <= 0 {
		return &ValidationError{Field: "ingest.hung_activity_threshold", Message: fmt.Sprintf("hung_activity_threshold must be positive, got %v", c.HungActivityThreshold)}
	}
	if c.HungSegmentThreshold <= 0 {
		return &ValidationError{Field: "ingest.hung_segment_threshold", Message: fmt.Sprintf("hung_segment_threshold must be positive, got %v", c.HungSegmentThreshold)}
	}
	return nil
}

func validateLiveConfig(c *LiveConfig) error {
	if c.IdleGrace <= 0 {
		return &ValidationError{Field: "live.idle_grace", Message: fmt.Sprintf("idle_grace must be positive, got %v", c.IdleGrace)}
	}
	if c.WaitTimeout <= 0 {
		return &ValidationError{Field: "live.wait_timeout", Message: fmt.Sprintf("wait_timeout must be positive, got %v", c.WaitTimeout)}
	}
	return nil
}

func validateExportConfig(c *ExportConfig) error {
	if c.MinDurationSec <= 0 {
		return &ValidationError{Field: "export.min_duration_sec", Message: fmt.Sprintf("min_duration_sec must be positive, got %d", c.MinDurationSec)}
	}
	if c.MaxDurationSec <= c.MinDurationSec {
		return &ValidationError{Field: "export.max_duration_sec", Message: fmt.Sprintf("max_duration_sec (%d) must exceed min_duration_sec (%d)", c.MaxDurationSec, c.MinDurationSec)}
	}
	return nil
}

func validateLoggingConfig(c *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "warning", "error", "fatal", "panic"}
	found := false
	for _, v := range validLevels {
		if strings.ToLower(c.Level) == v {
			found = true
			break
		}
	}
	if !found {
		return &ValidationError{Field: "logging.level", Message: fmt.Sprintf("level must be one of: %v, got %s", validLevels, c.Level)}
	}
	if strings.TrimSpace(c.Format) == "" {
		return &ValidationError{Field: "logging.format", Message: "format cannot be empty"}
	}
	if c.FileEnabled && strings.TrimSpace(c.FilePath) == "" {
		return &ValidationError{Field: "logging.file_path", Message: "file path cannot be empty when file logging is enabled"}
	}
	return nil
}

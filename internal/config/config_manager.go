package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ConfigManager manages configuration loading, validation, and hot reload functionality.
type ConfigManager struct {
	config          *Config
	configPath      string
	updateCallbacks []func(*Config)
	watcher         *fsnotify.Watcher
	watcherActive   int32 // Atomic: 0 = inactive, 1 = active
	watcherLock     sync.RWMutex
	lock            sync.RWMutex
	defaultConfig   *Config
	logger          *logging.Logger
	stopChan        chan struct{}
	wg              sync.WaitGroup
}

// CreateConfigManager creates a new configuration manager instance.
func CreateConfigManager() *ConfigManager {
	return &ConfigManager{
		updateCallbacks: make([]func(*Config), 0),
		defaultConfig:   getDefaultConfig(),
		logger:          logging.GetLogger("config-manager"),
		stopChan:        make(chan struct{}, 5), // Buffered to prevent deadlock during shutdown
	}
}

// LoadConfig loads configuration from YAML file with environment variable overrides and validation.
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.lock.Lock()
	defer cm.lock.Unlock()

	cm.logger.WithFields(logging.Fields{
		"config_path": configPath,
		"action":      "load_config",
	}).Info("Loading configuration")

	if err := cm.validateConfigFile(configPath); err != nil {
		return fmt.Errorf("configuration validation failed: invalid configuration - %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	cm.setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("VMS")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: invalid configuration - cannot read configuration file '%s': %w", configPath, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Prevents zero values in an incomplete YAML section from overriding
	// Viper's own defaults once it's unmarshaled into the struct.
	cm.applyDefaultsAfterUnmarshal(&config)

	if err := cm.validateFinalConfiguration(&config); err != nil {
		return fmt.Errorf("configuration validation failed: invalid configuration - %w", err)
	}
	if err := ValidateConfig(&config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	oldConfig := cm.config
	cm.config = &config
	cm.configPath = configPath

	if os.Getenv("VMS_ENABLE_HOT_RELOAD") == "true" {
		if err := cm.startFileWatching(); err != nil {
			cm.logger.WithError(err).Warn("Failed to start file watching, hot reload disabled")
		}
	}

	cm.notifyConfigUpdated(oldConfig, &config)

	cm.logger.WithFields(logging.Fields{
		"config_path": configPath,
		"action":      "load_config",
		"status":      "success",
	}).Info("Configuration loaded successfully")

	return nil
}

// validateConfigFile validates the configuration file before loading.
func (cm *ConfigManager) validateConfigFile(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("configuration file does not exist: '%s'", configPath)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("cannot read configuration file '%s': %w", configPath, err)
	}
	if len(content) == 0 {
		return fmt.Errorf("configuration file is empty: '%s' - file must contain valid YAML configuration", configPath)
	}

	hasNonCommentContent := false
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		hasNonCommentContent = true
		break
	}
	if !hasNonCommentContent {
		return fmt.Errorf("configuration file contains only comments or is empty: '%s' - file must contain valid YAML configuration data", configPath)
	}

	return nil
}

// validateFinalConfiguration validates configuration values after environment
// variable overrides, failing fast with a clear message per field.
func (cm *ConfigManager) validateFinalConfiguration(config *Config) error {
	if strings.TrimSpace(config.Server.Host) == "" {
		return fmt.Errorf("server host cannot be empty or whitespace-only")
	}
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", config.Server.Port)
	}

	if strings.TrimSpace(config.Storage.RootDir) == "" {
		return fmt.Errorf("storage root_dir cannot be empty or whitespace-only")
	}
	if config.Storage.WarnPercent < 0 || config.Storage.WarnPercent > 100 {
		return fmt.Errorf("storage warn percent must be between 0 and 100, got %d", config.Storage.WarnPercent)
	}
	if config.Storage.BlockPercent < 0 || config.Storage.BlockPercent > 100 {
		return fmt.Errorf("storage block percent must be between 0 and 100, got %d", config.Storage.BlockPercent)
	}
	if config.Storage.WarnPercent >= config.Storage.BlockPercent {
		return fmt.Errorf("storage warn percent (%d) must be less than block percent (%d)", config.Storage.WarnPercent, config.Storage.BlockPercent)
	}

	if config.Retention.MaxAgeDays < 0 {
		return fmt.Errorf("retention max_age_days cannot be negative, got %d", config.Retention.MaxAgeDays)
	}
	if config.Retention.MaxStorageGB < 0 {
		return fmt.Errorf("retention max_storage_gb cannot be negative, got %d", config.Retention.MaxStorageGB)
	}
	if config.Retention.MaxStoragePercent < 0 || config.Retention.MaxStoragePercent > 100 {
		return fmt.Errorf("retention max_storage_percent must be between 0 and 100, got %f", config.Retention.MaxStoragePercent)
	}

	if config.Ingest.RestartCoolOff <= 0 {
		return fmt.Errorf("ingest restart_cool_off must be positive, got %v", config.Ingest.RestartCoolOff)
	}
	if config.Ingest.StopGraceTimeout <= 0 {
		return fmt.Errorf("ingest stop_grace_timeout must be positive, got %v", config.Ingest.StopGraceTimeout)
	}
	if config.Ingest.HungActivityThreshold <= 0 {
		return fmt.Errorf("ingest hung_activity_threshold must be positive, got %v", config.Ingest.HungActivityThreshold)
	}
	if config.Ingest.HungSegmentThreshold <= 0 {
		return fmt.Errorf("ingest hung_segment_threshold must be positive, got %v", config.Ingest.HungSegmentThreshold)
	}

	if config.Live.IdleGrace <= 0 {
		return fmt.Errorf("live idle_grace must be positive, got %v", config.Live.IdleGrace)
	}
	if config.Live.WaitTimeout <= 0 {
		return fmt.Errorf("live wait_timeout must be positive, got %v", config.Live.WaitTimeout)
	}

	if config.Export.MinDurationSec <= 0 {
		return fmt.Errorf("export min_duration_sec must be positive, got %d", config.Export.MinDurationSec)
	}
	if config.Export.MaxDurationSec <= config.Export.MinDurationSec {
		return fmt.Errorf("export max_duration_sec (%d) must exceed min_duration_sec (%d)", config.Export.MaxDurationSec, config.Export.MinDurationSec)
	}

	validLogLevels := []string{"debug", "info", "warn", "warning", "error", "fatal", "panic"}
	levelFound := false
	for _, valid := range validLogLevels {
		if strings.ToLower(config.Logging.Level) == valid {
			levelFound = true
			break
		}
	}
	if !levelFound {
		return fmt.Errorf("logging level must be one of: %v, got %s", validLogLevels, config.Logging.Level)
	}
	if config.Logging.FileEnabled && strings.TrimSpace(config.Logging.FilePath) == "" {
		return fmt.Errorf("logging file path cannot be empty when file logging is enabled")
	}

	return nil
}

// startFileWatching starts watching the configuration file for changes.
func (cm *ConfigManager) startFileWatching() error {
	cm.stopFileWatching()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	cm.watcherLock.Lock()
	cm.watcher = watcher
	cm.watcherLock.Unlock()

	configDir := filepath.Dir(cm.configPath)
	if err := cm.watcher.Add(configDir); err != nil {
		cm.watcher.Close()
		cm.watcherLock.Lock()
		cm.watcher = nil
		cm.watcherLock.Unlock()
		return fmt.Errorf("failed to watch config directory %s: %w", configDir, err)
	}

	atomic.StoreInt32(&cm.watcherActive, 1)

	cm.wg.Add(1)
	go cm.watchFileChanges()

	cm.logger.WithFields(logging.Fields{
		"config_path": cm.configPath,
		"watch_dir":   configDir,
	}).Info("File watching started for hot reload")

	return nil
}

// stopFileWatching stops the file watcher.
func (cm *ConfigManager) stopFileWatching() {
	atomic.StoreInt32(&cm.watcherActive, 0)

	cm.watcherLock.Lock()
	defer cm.watcherLock.Unlock()

	if cm.watcher != nil {
		if err := cm.watcher.Close(); err != nil {
			cm.logger.WithError(err).Warn("Error closing file watcher")
		}
		cm.watcher = nil
		cm.logger.Debug("File watcher stopped and cleaned up")
	}
}

// watchFileChanges watches for file changes and triggers configuration reload.
func (cm *ConfigManager) watchFileChanges() {
	defer cm.wg.Done()

	var reloadTimer *time.Timer

	for {
		select {
		case <-cm.stopChan:
			return
		default:
			if atomic.LoadInt32(&cm.watcherActive) == 0 {
				return
			}

			cm.watcherLock.RLock()
			if cm.watcher == nil {
				cm.watcherLock.RUnlock()
				return
			}
			events := cm.watcher.Events
			errors := cm.watcher.Errors
			cm.watcherLock.RUnlock()

			select {
			case <-cm.stopChan:
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if event.Name == cm.configPath {
					cm.logger.WithFields(logging.Fields{
						"file":  event.Name,
						"event": event.Op.String(),
					}).Debug("Configuration file change detected")

					switch event.Op {
					case fsnotify.Write, fsnotify.Create:
						if reloadTimer != nil {
							reloadTimer.Stop()
						}
						reloadTimer = time.AfterFunc(100*time.Millisecond, func() {
							cm.reloadConfiguration()
						})
					case fsnotify.Remove:
						cm.logger.Warn("Configuration file was removed, hot reload disabled")
						cm.stopFileWatching()
						return
					}
				}

			case err, ok := <-errors:
				if !ok {
					return
				}
				cm.logger.WithError(err).Error("File watcher error")
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}
	}
}

// reloadConfiguration reloads the configuration file.
func (cm *ConfigManager) reloadConfiguration() {
	cm.logger.Info("Reloading configuration due to file change")

	if _, err := os.Stat(cm.configPath); os.IsNotExist(err) {
		cm.logger.Warn("Configuration file no longer exists, stopping hot reload")
		cm.stopFileWatching()
		return
	}

	if err := cm.LoadConfig(cm.configPath); err != nil {
		cm.logger.WithError(err).Error("Failed to reload configuration")
		return
	}

	cm.logger.Info("Configuration reloaded successfully")
}

// Stop stops the configuration manager and cleans up resources with context-aware cancellation.
func (cm *ConfigManager) Stop(ctx context.Context) error {
	cm.logger.Info("Stopping configuration manager")

	select {
	case <-cm.stopChan:
	default:
		close(cm.stopChan)
	}

	cm.stopFileWatching()

	done := make(chan struct{})
	go func() {
		cm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		cm.logger.Warn("Configuration manager shutdown timeout")
		return ctx.Err()
	}

	cm.logger.Info("Configuration manager stopped")
	return nil
}

// GetConfig returns the current configuration.
func (cm *ConfigManager) GetConfig() *Config {
	cm.lock.RLock()
	defer cm.lock.RUnlock()

	if cm.config == nil {
		return cm.defaultConfig
	}
	return cm.config
}

// GetLogger returns the config manager's logger for level configuration.
func (cm *ConfigManager) GetLogger() *logging.Logger {
	return cm.logger
}

// SaveConfig saves the current configuration to the configuration file.
func (cm *ConfigManager) SaveConfig() error {
	cm.lock.Lock()
	defer cm.lock.Unlock()

	if cm.config == nil {
		return fmt.Errorf("no configuration to save")
	}
	if cm.configPath == "" {
		return fmt.Errorf("no configuration file path set")
	}

	cm.logger.WithFields(logging.Fields{
		"config_path": cm.configPath,
		"action":      "save_config",
	}).Info("Saving configuration to file")

	v := viper.New()
	v.SetConfigFile(cm.configPath)
	v.SetConfigType("yaml")

	cm.setConfigValues(v, cm.config)

	configDir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cm.logger.WithFields(logging.Fields{
		"config_path": cm.configPath,
		"action":      "save_config",
		"status":      "success",
	}).Info("Configuration saved successfully")

	return nil
}

// setConfigValues sets every configuration value in Viper ahead of a write.
func (cm *ConfigManager) setConfigValues(v *viper.Viper, config *Config) {
	v.Set("server.host", config.Server.Host)
	v.Set("server.port", config.Server.Port)
	v.Set("server.read_timeout", config.Server.ReadTimeout)
	v.Set("server.write_timeout", config.Server.WriteTimeout)
	v.Set("server.shutdown_timeout", config.Server.ShutdownTimeout)

	v.Set("storage.root_dir", config.Storage.RootDir)
	v.Set("storage.warn_percent", config.Storage.WarnPercent)
	v.Set("storage.block_percent", config.Storage.BlockPercent)

	v.Set("retention.max_age_days", config.Retention.MaxAgeDays)
	v.Set("retention.max_storage_gb", config.Retention.MaxStorageGB)
	v.Set("retention.max_storage_percent", config.Retention.MaxStoragePercent)

	v.Set("ingest.restart_cool_off", config.Ingest.RestartCoolOff)
	v.Set("ingest.stop_grace_timeout", config.Ingest.StopGraceTimeout)
	v.Set("ingest.hung_activity_threshold", config.Ingest.HungActivityThreshold)
	v.Set("ingest.hung_segment_threshold", config.Ingest.HungSegmentThreshold)

	v.Set("live.idle_grace", config.Live.IdleGrace)
	v.Set("live.wait_timeout", config.Live.WaitTimeout)

	v.Set("export.min_duration_sec", config.Export.MinDurationSec)
	v.Set("export.max_duration_sec", config.Export.MaxDurationSec)

	v.Set("logging.level", config.Logging.Level)
	v.Set("logging.format", config.Logging.Format)
	v.Set("logging.file_enabled", config.Logging.FileEnabled)
	v.Set("logging.file_path", config.Logging.FilePath)
	v.Set("logging.max_file_size", config.Logging.MaxFileSize)
	v.Set("logging.backup_count", config.Logging.BackupCount)
	v.Set("logging.console_enabled", config.Logging.ConsoleEnabled)
}

// AddUpdateCallback adds a callback function to be called when configuration is updated.
func (cm *ConfigManager) AddUpdateCallback(callback func(*Config)) {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	cm.updateCallbacks = append(cm.updateCallbacks, callback)
}

// RegisterLoggingConfigurationUpdates registers a callback that keeps the
// global logging configuration in sync with every config reload.
func (cm *ConfigManager) RegisterLoggingConfigurationUpdates() {
	cm.AddUpdateCallback(func(newConfig *Config) {
		if newConfig == nil {
			cm.logger.Warn("Skipping logging config update - invalid configuration")
			return
		}

		loggingConfig := &logging.LoggingConfig{
			Level:          newConfig.Logging.Level,
			Format:         newConfig.Logging.Format,
			FileEnabled:    newConfig.Logging.FileEnabled,
			FilePath:       newConfig.Logging.FilePath,
			MaxFileSize:    int(newConfig.Logging.MaxFileSize),
			BackupCount:    newConfig.Logging.BackupCount,
			ConsoleEnabled: newConfig.Logging.ConsoleEnabled,
		}

		if err := logging.ConfigureGlobalLogging(loggingConfig); err != nil {
			cm.logger.WithError(err).Error("Failed to update logging configuration")
			return
		}

		cm.logger.WithFields(logging.Fields{
			"level":           loggingConfig.Level,
			"format":          loggingConfig.Format,
			"file_enabled":    loggingConfig.FileEnabled,
			"console_enabled": loggingConfig.ConsoleEnabled,
		}).Info("Logging configuration updated successfully")
	})
}

// setDefaults sets default configuration values in Viper.
func (cm *ConfigManager) setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("storage.root_dir", "/var/lib/vms/recordings")
	v.SetDefault("storage.warn_percent", 80)
	v.SetDefault("storage.block_percent", 90)

	v.SetDefault("retention.max_age_days", 30)
	v.SetDefault("retention.max_storage_gb", int64(0))
	v.SetDefault("retention.max_storage_percent", 90.0)

	v.SetDefault("ingest.restart_cool_off", 10*time.Second)
	v.SetDefault("ingest.stop_grace_timeout", 5*time.Second)
	v.SetDefault("ingest.hung_activity_threshold", 90*time.Second)
	v.SetDefault("ingest.hung_segment_threshold", 120*time.Second)

	v.SetDefault("live.idle_grace", 30*time.Second)
	v.SetDefault("live.wait_timeout", 10*time.Second)

	v.SetDefault("export.min_duration_sec", 1)
	v.SetDefault("export.max_duration_sec", 3600)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file_enabled", true)
	v.SetDefault("logging.file_path", "/var/log/vms/vms.log")
	v.SetDefault("logging.max_file_size", 10485760)
	v.SetDefault("logging.backup_count", 5)
	v.SetDefault("logging.console_enabled", true)
}

// notifyConfigUpdated invokes every registered update callback.
func (cm *ConfigManager) notifyConfigUpdated(oldConfig, newConfig *Config) {
	_ = oldConfig
	for _, callback := range cm.updateCallbacks {
		callback(newConfig)
	}
}

// getDefaultConfig returns a default configuration instance.
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			RootDir:      "/var/lib/vms/recordings",
			WarnPercent:  80,
			BlockPercent: 90,
		},
		Retention: RetentionConfig{
			MaxAgeDays:        30,
			MaxStorageGB:      0,
			MaxStoragePercent: 90.0,
		},
		Ingest: IngestConfig{
			RestartCoolOff:        10 * time.Second,
			StopGraceTimeout:      5 * time.Second,
			HungActivityThreshold: 90 * time.Second,
			HungSegmentThreshold:  120 * time.Second,
		},
		Live: LiveConfig{
			IdleGrace:   30 * time.Second,
			WaitTimeout: 10 * time.Second,
		},
		Export: ExportConfig{
			MinDurationSec: 1,
			MaxDurationSec: 3600,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "json",
			FileEnabled:    true,
			FilePath:       "/var/log/vms/vms.log",
			MaxFileSize:    10485760,
			BackupCount:    5,
			ConsoleEnabled: true,
		},
	}
}

// applyDefaultsAfterUnmarshal restores default values for any zero-valued
// field Viper's Unmarshal left behind because the YAML section was absent
// or incomplete.
func (cm *ConfigManager) applyDefaultsAfterUnmarshal(config *Config) {
	d := getDefaultConfig()

	if config.Server.Host == "" {
		config.Server.Host = d.Server.Host
	}
	if config.Server.Port == 0 {
		config.Server.Port = d.Server.Port
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}

	if config.Storage.RootDir == "" {
		config.Storage.RootDir = d.Storage.RootDir
	}
	if config.Storage.WarnPercent == 0 {
		config.Storage.WarnPercent = d.Storage.WarnPercent
	}
	if config.Storage.BlockPercent == 0 {
		config.Storage.BlockPercent = d.Storage.BlockPercent
	}

	if config.Retention.MaxStoragePercent == 0 {
		config.Retention.MaxStoragePercent = d.Retention.MaxStoragePercent
	}

	if config.Ingest.RestartCoolOff == 0 {
		config.Ingest.RestartCoolOff = d.Ingest.RestartCoolOff
	}
	if config.Ingest.StopGraceTimeout == 0 {
		config.Ingest.StopGraceTimeout = d.Ingest.StopGraceTimeout
	}
	if config.Ingest.HungActivityThreshold == 0 {
		config.Ingest.HungActivityThreshold = d.Ingest.HungActivityThreshold
	}
	if config.Ingest.HungSegmentThreshold == 0 {
		config.Ingest.HungSegmentThreshold = d.Ingest.HungSegmentThreshold
	}

	if config.Live.IdleGrace == 0 {
		config.Live.IdleGrace = d.Live.IdleGrace
	}
	if config.Live.WaitTimeout == 0 {
		config.Live.WaitTimeout = d.Live.WaitTimeout
	}

	if config.Export.MinDurationSec == 0 {
		config.Export.MinDurationSec = d.Export.MinDurationSec
	}
	if config.Export.MaxDurationSec == 0 {
		config.Export.MaxDurationSec = d.Export.MaxDurationSec
	}

	if config.Logging.Level == "" {
		config.Logging.Level = d.Logging.Level
	}
	if config.Logging.Format == "" {
		config.Logging.Format = d.Logging.Format
	}
}

package config

import "time"

// ServerConfig represents the gateway's listen configuration. The
// gateway's HTTP framing itself is out of scope (§1 Non-goals); this
// only shapes how the process binds and drains.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig represents where recordings live on disk and the
// operator-facing occupancy thresholds surfaced by storageStats (§6).
type StorageConfig struct {
	RootDir      string `mapstructure:"root_dir"`      // overridden by the STORAGE_PATH env var at startup
	WarnPercent  int    `mapstructure:"warn_percent"`  // Default: 80
	BlockPercent int    `mapstructure:"block_percent"` // Default: 90, must exceed WarnPercent; retention Phase C uses Retention.MaxStoragePercent, not this value
}

// RetentionConfig drives the three retention phases (§4.9): Phase A
// (age), Phase B (storage quota), Phase C (disk-safety ceiling).
type RetentionConfig struct {
	MaxAgeDays        int     `mapstructure:"max_age_days"`        // not read by the retention engine; Phase A expires each recording at its own RetentionInstant
	MaxStorageGB      int64   `mapstructure:"max_storage_gb"`      // Phase B: 0 disables the quota phase
	MaxStoragePercent float64 `mapstructure:"max_storage_percent"` // Phase C: retention.Engine.Run skips the phase for 0, but LoadConfig replaces a 0 with the default 90
}

// IngestConfig tunes the Ingest Supervisor's child-process lifecycle
// (§4.3).
type IngestConfig struct {
	RestartCoolOff        time.Duration `mapstructure:"restart_cool_off"`         // Default: 10s
	StopGraceTimeout      time.Duration `mapstructure:"stop_grace_timeout"`       // Default: 5s
	HungActivityThreshold time.Duration `mapstructure:"hung_activity_threshold"`  // Default: 90s
	HungSegmentThreshold  time.Duration `mapstructure:"hung_segment_threshold"`   // Default: 120s
}

// LiveConfig tunes the Live Playlist Publisher's on-demand child
// lifecycle (§4.7).
type LiveConfig struct {
	IdleGrace   time.Duration `mapstructure:"idle_grace"`   // Default: 30s
	WaitTimeout time.Duration `mapstructure:"wait_timeout"` // Default: 10s, the P9 blocking-playlist bound
}

// ExportConfig bounds the VOD export engine's clip requests (§4.8).
type ExportConfig struct {
	MinDurationSec int `mapstructure:"min_duration_sec"` // Default: 1
	MaxDurationSec int `mapstructure:"max_duration_sec"` // Default: 3600
}

// LoggingConfig represents structured-logging configuration, grounded
// on the teacher's logrus setup.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`
	Format         string `mapstructure:"format"`
	FileEnabled    bool   `mapstructure:"file_enabled"`
	FilePath       string `mapstructure:"file_path"`
	MaxFileSize    int64  `mapstructure:"max_file_size"`
	BackupCount    int    `mapstructure:"backup_count"`
	ConsoleEnabled bool   `mapstructure:"console_enabled"`
}

// Config represents the complete service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Retention RetentionConfig `mapstructure:"retention"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Live      LiveConfig      `mapstructure:"live"`
	Export    ExportConfig    `mapstructure:"export"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

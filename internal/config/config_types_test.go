package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigZeroValueIsUsable(t *testing.T) {
	var c Config
	assert.Equal(t, "", c.Server.Host)
	assert.Equal(t, 0, c.Server.Port)
	assert.Equal(t, 0, c.Retention.MaxAgeDays)
}

func TestConfigStructurePopulatesEverySection(t *testing.T) {
	c := Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Storage:   StorageConfig{RootDir: "/data", WarnPercent: 80, BlockPercent: 90},
		Retention: RetentionConfig{MaxAgeDays: 30, MaxStorageGB: 100, MaxStoragePercent: 90},
		Ingest: IngestConfig{
			RestartCoolOff:        10 * time.Second,
			StopGraceTimeout:      5 * time.Second,
			HungActivityThreshold: 90 * time.Second,
			HungSegmentThreshold:  120 * time.Second,
		},
		Live:    LiveConfig{IdleGrace: 30 * time.Second, WaitTimeout: 10 * time.Second},
		Export:  ExportConfig{MinDurationSec: 1, MaxDurationSec: 3600},
		Logging: LoggingConfig{Level: "info", Format: "json", ConsoleEnabled: true},
	}

	assert.Equal(t, "0.0.0.0", c.Server.Host)
	assert.Equal(t, int64(100), c.Retention.MaxStorageGB)
	assert.Equal(t, 3600, c.Export.MaxDurationSec)
	assert.Equal(t, 10*time.Second, c.Ingest.RestartCoolOff)
}

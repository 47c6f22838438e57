package domain

import "time"

// SystemConfigKey enumerates the recognized SystemConfig keys (§3). The
// store gateway refuses to set any key outside this set.
type SystemConfigKey string

const (
	KeyRetentionDays      SystemConfigKey = "retentionDays"
	KeyMaxStorageGB       SystemConfigKey = "maxStorageGB"
	KeyMaxStoragePercent  SystemConfigKey = "maxStoragePercent"
	KeyStoragePath        SystemConfigKey = "storagePath"
)

// KnownSystemConfigKeys lists every key the gateway accepts.
var KnownSystemConfigKeys = map[SystemConfigKey]bool{
	KeyRetentionDays:     true,
	KeyMaxStorageGB:      true,
	KeyMaxStoragePercent: true,
	KeyStoragePath:       true,
}

// SystemConfigEntry is one key/value row with provenance, mirroring the
// key->scalar table in §3.
type SystemConfigEntry struct {
	Key       SystemConfigKey
	Value     any
	UpdatedBy string
	UpdatedAt time.Time
}

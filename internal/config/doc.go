// Package config provides centralized configuration management for the
// video management service.
//
// It loads YAML configuration through Viper with environment variable
// overrides (VMS_ prefix), validates the result, and supports hot
// reload via fsnotify so operators can change retention thresholds and
// timeouts without a restart.
//
// Configuration sections:
//   - Server: listen host/port and shutdown timing
//   - Storage: the recordings root directory and occupancy thresholds
//   - Retention: the three retention-phase thresholds (§4.9)
//   - Ingest: child-process restart/hang-detection timing (§4.3)
//   - Live: on-demand publisher idle/wait timing (§4.7)
//   - Export: allowed clip-duration bounds (§4.8)
//   - Logging: logrus level/format/output configuration
//
// STORAGE_PATH and ENCRYPTION_KEY are read directly from the process
// environment at startup (not through Viper) since the encryption key
// must never round-trip through a config file; see cmd/server.
package config

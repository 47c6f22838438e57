// Package domain defines the entities the camera-stream lifecycle and
// storage subsystem operates on: Camera, Recording, SystemConfig, and the
// error taxonomy surfaced to the external gateway.
//
// These types are intentionally free of store, filesystem, or process
// concerns — they are passed by value or pointer between the store
// gateway, the ingest supervisor, the finalizer, the retention engine and
// the VOD/export engine.
package domain

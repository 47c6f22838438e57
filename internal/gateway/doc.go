// Package gateway implements the thin abstract-operation dispatch layer
// described in §6: one Go method per operation the external HTTP
// gateway exposes (listRecordings, streamRecording, startRecording,
// startLive, protect, storageStats, integrityCheck, ...). This package
// intentionally carries no HTTP framing, routing, or auth — those are
// explicitly out of scope (§1 Non-goals) and are the external gateway's
// job; Gateway here is the single seam that layer calls into.
//
// The live event push (camera state changes, retention run summaries)
// reuses the teacher's topic-subscription EventManager design
// (internal/websocket/events.go), trimmed to this repo's event set and
// delivered over gorilla/websocket connections registered with Hub.
package gateway

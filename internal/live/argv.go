package live

import (
	"path/filepath"

	"github.com/camerarecorder/vms-core/internal/domain"
)

// BuildLiveArgv constructs the external transcoder's argv for the live
// low-latency playlist contract (§4.7/§6): 2 s fMP4 segments, 500 ms
// parts, a 6-segment rolling window, an independent init segment.
// Grounded the same way as ingest.BuildIngestArgv, on the teacher's
// buildSegmentFFmpegCommand (internal/mediamtx/recording_manager.go),
// adapted to ll-hls muxer flags instead of segment-muxer flags.
func BuildLiveArgv(camera domain.Camera, rtspURL, dir string) []string {
	return []string{
		"ffmpeg",
		"-rtsp_transport", "tcp",
		"-timeout", "10000000",
		"-i", rtspURL,
		"-c:v", "copy",
		"-c:a", "aac",
		"-f", "hls",
		"-hls_time", "2",
		"-hls_list_size", "6",
		"-hls_flags", "independent_segments+split_by_time+delete_segments",
		"-hls_segment_type", "fmp4",
		"-hls_fmp4_init_filename", "init.mp4",
		"-hls_playlist_type", "event",
		"-hls_start_number_source", "datetime",
		"-master_pl_publish_rate", "1",
		filepath.Join(dir, "playlist"),
	}
}

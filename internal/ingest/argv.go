package ingest

import (
	"fmt"
	"path/filepath"

	"github.com/camerarecorder/vms-core/internal/domain"
)

// segmentDurationSec is the nominal segment length (§3 Recording.durationSec,
// §6 transcoder contract).
const segmentDurationSec = 60

// BuildIngestArgv constructs the external transcoder's argv for the
// ingest contract (§6): time-segmented fMP4, 60 s segments aligned to
// wall clock, strftime filenames, stream-copy video with forced
// key-frame cadence, AAC audio. Grounded on the teacher's
// buildSegmentFFmpegCommand (internal/mediamtx/recording_manager.go),
// generalized from v4l2 device input to RTSP camera input and from
// numbered segments to the §6 strftime segment pattern this spec
// requires for filename parsing round-trips.
func BuildIngestArgv(camera domain.Camera, rtspURL, outputDir, ext string) []string {
	pattern := filepath.Join(outputDir, fmt.Sprintf("%s_segment_%%Y%%m%%d_%%H%%M%%S.%s", camera.ID, ext))
	gop := camera.StreamProfile.FPS * segmentDurationSec / 30
	if gop <= 0 {
		gop = segmentDurationSec
	}
	return []string{
		"ffmpeg",
		"-rtsp_transport", "tcp",
		"-timeout", "10000000",
		"-i", rtspURL,
		"-c:v", "copy",
		"-g", fmt.Sprintf("%d", gop),
		"-force_key_frames", "expr:gte(t,n_forced*2)",
		"-c:a", "aac",
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%d", segmentDurationSec),
		"-segment_atclocktime", "1",
		"-strftime", "1",
		"-reset_timestamps", "1",
		"-movflags", "+faststart",
		pattern,
	}
}

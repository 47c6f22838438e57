package ingest

import (
	"bufio"
	"io"
	"regexp"

	"github.com/camerarecorder/vms-core/internal/logging"
)

// openingLineRe matches the transcoder's segment-start marker (§4.3,
// §6): `Opening '<path>'`.
var openingLineRe = regexp.MustCompile(`Opening '([^']+)'`)

// watchStderr is the per-handle watcher (§4.3): it consumes the child's
// stderr line by line until EOF (child exit), refreshing activity on
// every line and firing onOpening whenever a new segment starts.
// Grounded on the teacher's process-output consumption in
// internal/mediamtx/ffmpeg_manager.go, generalized from a fixed
// monitorProcess poll loop into a line-driven event source per §9's
// "coroutine / event-loop control flow" design note.
func watchStderr(r io.Reader, logger *logging.Logger, onLine func(line string), onOpening func(path string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		onLine(line)
		if m := openingLineRe.FindStringSubmatch(line); m != nil {
			onOpening(m[1])
		}
	}
	if err := scanner.Err(); err != nil {
		logger.WithFields(logging.Fields{"error": err.Error()}).Warn("ingest stderr scan ended with error")
	}
}

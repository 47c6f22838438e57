package clock

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/camerarecorder/vms-core/internal/domain"
)

// segmentNameRe matches the current filename shape:
// <CameraId>_segment_YYYYMMDD_HHMMSS.<ext>
var segmentNameRe = regexp.MustCompile(`^([A-Za-z0-9]+)_segment_(\d{8})_(\d{6})\.([A-Za-z0-9]+)$`)

// legacySegmentNameRe matches the older variant without the camera
// prefix, accepted for reverse sweeps per §4.1/§6.
var legacySegmentNameRe = regexp.MustCompile(`^segment_(\d{8})_(\d{6})\.([A-Za-z0-9]+)$`)

// SegmentName builds the bit-exact segment filename for a camera and its
// wall-clock start instant (§6).
func SegmentName(camera domain.CameraID, start time.Time, ext string) string {
	return fmt.Sprintf("%s_segment_%s.%s", camera, start.UTC().Format("20060102_150405"), ext)
}

// SegmentDir returns the directory a segment starting at `start` belongs
// under, per the §3 on-disk layout:
// <root>/recordings/<CameraId>/<YYYY>/<MM>/<DD>/<HH>/
func SegmentDir(root string, camera domain.CameraID, start time.Time) string {
	t := start.UTC()
	return filepath.Join(root, "recordings", string(camera),
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()),
		fmt.Sprintf("%02d", t.Hour()),
	)
}

// SegmentPath returns the full path for a segment file.
func SegmentPath(root string, camera domain.CameraID, start time.Time, ext string) string {
	return filepath.Join(SegmentDir(root, camera, start), SegmentName(camera, start, ext))
}

// LiveDir returns the directory the live playlist publisher writes into
// for a camera: <root>/live/<CameraId>/.
func LiveDir(root string, camera domain.CameraID) string {
	return filepath.Join(root, "live", string(camera))
}

// ExportDir returns the directory temporary export artifacts are written
// to: <root>/export/.
func ExportDir(root string) string {
	return filepath.Join(root, "export")
}

// RecordingsRoot returns <root>/recordings, the tree the orphan
// reconciler's reverse sweep walks.
func RecordingsRoot(root string) string {
	return filepath.Join(root, "recordings")
}

// ParsedSegmentName is the result of successfully parsing a segment
// filename.
type ParsedSegmentName struct {
	Camera domain.CameraID // empty for the legacy filename variant
	Start  time.Time
	Ext    string
	Legacy bool
}

// ParseSegmentName parses a segment filename in either the current or
// legacy shape (§4.1, §6). It fails with domain.BadPath on any other
// shape.
func ParseSegmentName(name string) (ParsedSegmentName, error) {
	if m := segmentNameRe.FindStringSubmatch(name); m != nil {
		start, err := time.ParseInLocation("20060102_150405", m[2]+"_"+m[3], time.UTC)
		if err != nil {
			return ParsedSegmentName{}, domain.NewError(domain.BadPath, "ParseSegmentName", "bad timestamp: "+name, err)
		}
		return ParsedSegmentName{Camera: domain.CameraID(m[1]), Start: start, Ext: m[4]}, nil
	}
	if m := legacySegmentNameRe.FindStringSubmatch(name); m != nil {
		start, err := time.ParseInLocation("20060102_150405", m[1]+"_"+m[2], time.UTC)
		if err != nil {
			return ParsedSegmentName{}, domain.NewError(domain.BadPath, "ParseSegmentName", "bad timestamp: "+name, err)
		}
		return ParsedSegmentName{Start: start, Ext: m[3], Legacy: true}, nil
	}
	return ParsedSegmentName{}, domain.NewError(domain.BadPath, "ParseSegmentName", "unrecognized segment filename: "+name, nil)
}

// EnsureDir idempotently creates dir (and parents), tolerating the
// race where a concurrent ingest child for another camera is creating a
// sibling directory at the same time.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", dir, err)
	}
	return nil
}


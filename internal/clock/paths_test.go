package clock

import (
	"testing"
	"time"

	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentNameRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	name := SegmentName("ABCD1234", start, "mp4")
	assert.Equal(t, "ABCD1234_segment_20260305_143000.mp4", name)

	parsed, err := ParseSegmentName(name)
	require.NoError(t, err)
	assert.Equal(t, domain.CameraID("ABCD1234"), parsed.Camera)
	assert.True(t, parsed.Start.Equal(start))
	assert.Equal(t, "mp4", parsed.Ext)
	assert.False(t, parsed.Legacy)
}

func TestParseSegmentNameLegacy(t *testing.T) {
	parsed, err := ParseSegmentName("segment_20260305_143000.mp4")
	require.NoError(t, err)
	assert.True(t, parsed.Legacy)
	assert.Equal(t, domain.CameraID(""), parsed.Camera)
	assert.Equal(t, "mp4", parsed.Ext)
}

func TestParseSegmentNameBadPath(t *testing.T) {
	_, err := ParseSegmentName("not-a-segment.txt")
	require.Error(t, err)
	assert.Equal(t, domain.BadPath, domain.KindOf(err))
}

func TestSegmentDirLayout(t *testing.T) {
	start := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	dir := SegmentDir("/data", "ABCD1234", start)
	assert.Equal(t, "/data/recordings/ABCD1234/2026/03/05/14", dir)
}

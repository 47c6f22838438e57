package ingest

import (
	"fmt"
	"net/url"

	"github.com/camerarecorder/vms-core/internal/domain"
)

// BuildRTSPURL constructs the deterministic camera RTSP URL per §4.4. The
// password is URL-encoded and is only ever materialized here, inside the
// process that launches the child; callers MUST NOT log the returned
// string.
func BuildRTSPURL(camera domain.Camera, password string) string {
	zipstream := "off"
	if camera.StreamProfile.CompressionHintEnabled {
		zipstream = "on"
	}
	q := url.Values{}
	q.Set("videocodec", camera.StreamProfile.Codec)
	q.Set("streamprofile", camera.StreamProfile.ProfileName)
	q.Set("zipstream", zipstream)
	q.Set("resolution", fmt.Sprintf("%dx%d", camera.StreamProfile.ResolutionWidth, camera.StreamProfile.ResolutionHeight))
	q.Set("fps", fmt.Sprintf("%d", camera.StreamProfile.FPS))

	u := url.URL{
		Scheme:   "rtsp",
		User:     url.UserPassword(camera.Credentials.Username, password),
		Host:     fmt.Sprintf("%s:%d", camera.Endpoint.Host, effectivePort(camera.Endpoint)),
		Path:     "/axis-media/media.amp",
		RawQuery: q.Encode(),
	}
	return u.String()
}

// rtspDefaultPort is the camera's RTSP port when Endpoint.Port is unset
// (§3 Camera.endpoint).
const rtspDefaultPort = 554

func effectivePort(ep domain.Endpoint) int {
	if ep.Port > 0 {
		return ep.Port
	}
	return rtspDefaultPort
}

// redactedURL returns the camera's RTSP URL with the password shown as
// *** and without the query string, safe to pass to the logger. It is a defensive helper for call sites that log the argv;
// BuildRTSPURL's result must never reach a log line unredacted.
func redactedURL(camera domain.Camera) string {
	return fmt.Sprintf("rtsp://%s:***@%s:%d/axis-media/media.amp", camera.Credentials.Username,
		camera.Endpoint.Host, effectivePort(camera.Endpoint))
}

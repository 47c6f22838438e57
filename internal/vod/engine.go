package vod

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/camerarecorder/vms-core/internal/clock"
	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/store"
	"github.com/google/uuid"
)

const (
	// minExportDuration and maxExportDuration are §4.8's exportClip
	// duration bounds.
	minExportDuration = 1
	maxExportDuration = 3600
)

// Engine implements §4.8's three VOD & Export operations.
type Engine struct {
	store  store.Gateway
	logger *logging.Logger
	runner CommandRunner
	root   string
}

func New(gw store.Gateway, logger *logging.Logger, runner CommandRunner, root string) *Engine {
	return &Engine{store: gw, logger: logger, runner: runner, root: root}
}

// containerMIME maps a segment's container extension to the MIME type
// §4.8 requires for streamRecording's Content-Type.
func containerMIME(ext string) string {
	switch strings.TrimPrefix(ext, ".") {
	case "mp4", "m4v":
		return "video/mp4"
	case "mkv":
		return "video/x-matroska"
	case "ts":
		return "video/mp2t"
	default:
		return "application/octet-stream"
	}
}

// ServeRecording implements streamRecording(id) (§4.8): serve the file
// with full HTTP byte-range support. Fails with FileMissing if the
// filesystem entry is gone, marking the Recording deleted as a side
// effect (consistent with §4.6's forward sweep).
func (e *Engine) ServeRecording(w http.ResponseWriter, r *http.Request, id domain.RecordingID) error {
	rec, err := e.store.RecordingGet(r.Context(), id)
	if err != nil {
		return err
	}
	return e.serveRecordingFile(w, r, rec)
}

// ServeByTime implements streamByTime(cameraId, t) (§4.8).
func (e *Engine) ServeByTime(w http.ResponseWriter, r *http.Request, cameraID domain.CameraID, instant time.Time) error {
	rec, found, err := e.store.RecordingFindContaining(r.Context(), cameraID, instant)
	if err != nil {
		return err
	}
	if !found {
		return domain.NewError(domain.NotFound, "StreamByTime", "no recording covers the requested instant", nil)
	}
	return e.serveRecordingFile(w, r, rec)
}

func (e *Engine) serveRecordingFile(w http.ResponseWriter, r *http.Request, rec domain.Recording) error {
	f, err := os.Open(rec.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			if markErr := e.store.RecordingMarkDeleted(r.Context(), rec.ID); markErr != nil {
				e.logger.WithFields(logging.Fields{"recording": rec.ID, "error": markErr.Error()}).Warn("failed to mark recording deleted after missing file")
			}
			return domain.NewError(domain.FileMissing, "ServeRecording", rec.FilePath, err)
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", containerMIME(filepath.Ext(rec.FilePath)))
	http.ServeContent(w, r, filepath.Base(rec.FilePath), info.ModTime(), f)
	return nil
}

// ServeExportClip implements exportClip(cameraId, t0, durationSec)
// (§4.8): stitches every segment overlapping [t0, t0+duration) via the
// external stream-copy concat tool, serves the result with byte-range
// support, and deletes the temporary artifact once the response
// completes.
func (e *Engine) ServeExportClip(w http.ResponseWriter, r *http.Request, cameraID domain.CameraID, t0 time.Time, durationSec int) error {
	if durationSec < minExportDuration || durationSec > maxExportDuration {
		return domain.NewError(domain.Validation, "ExportClip", fmt.Sprintf("duration %d out of range [1,3600]", durationSec), nil)
	}

	duration := time.Duration(durationSec) * time.Second
	segments, err := e.store.RecordingFindOverlapping(r.Context(), cameraID, t0, t0.Add(duration))
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return domain.NewError(domain.NoRecordings, "ExportClip", string(cameraID), nil)
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].StartTime.Before(segments[j].StartTime) })

	for _, seg := range segments {
		if _, err := os.Stat(seg.FilePath); os.IsNotExist(err) {
			return domain.NewError(domain.FileMissing, "ExportClip", seg.FilePath, err)
		}
	}

	ext := filepath.Ext(segments[0].FilePath)
	exportDir := clock.ExportDir(e.root)
	if err := clock.EnsureDir(exportDir); err != nil {
		return err
	}
	outPath := filepath.Join(exportDir, uuid.New().String()+ext)

	argv, cleanup, err := e.buildExportArgv(segments, t0, durationSec, outPath)
	if err != nil {
		return err
	}
	defer cleanup()

	timeout := time.Duration(durationSec)*2*time.Second + 10*time.Second
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	if err := e.runner.Run(ctx, argv); err != nil {
		return domain.NewError(domain.TranscodeFailed, "ExportClip", outPath, err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	defer os.Remove(outPath)

	info, err := f.Stat()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", containerMIME(ext))
	http.ServeContent(w, r, filepath.Base(outPath), info.ModTime(), f)
	return nil
}

// buildExportArgv constructs the concat-tool argv for one or many
// overlapping segments (§4.8). For a single covering segment it uses
// direct input-seek; for multiple it writes a concat list file (cleaned
// up by the returned cleanup func) and uses `-f concat`.
func (e *Engine) buildExportArgv(segments []domain.Recording, t0 time.Time, durationSec int, outPath string) ([]string, func(), error) {
	noop := func() {}
	if len(segments) == 1 {
		seek := t0.Sub(segments[0].StartTime)
		argv := []string{
			"ffmpeg",
			"-ss", formatSeconds(seek),
			"-i", segments[0].FilePath,
			"-t", fmt.Sprintf("%d", durationSec),
			"-c", "copy",
			"-movflags", "+faststart",
			"-y", outPath,
		}
		return argv, noop, nil
	}

	listFile, err := os.CreateTemp(clock.ExportDir(e.root), "concat-*.txt")
	if err != nil {
		return nil, noop, err
	}
	for _, seg := range segments {
		if _, err := fmt.Fprintf(listFile, "file '%s'\n", seg.FilePath); err != nil {
			listFile.Close()
			os.Remove(listFile.Name())
			return nil, noop, err
		}
	}
	if err := listFile.Close(); err != nil {
		os.Remove(listFile.Name())
		return nil, noop, err
	}

	seek := t0.Sub(segments[0].StartTime)
	argv := []string{
		"ffmpeg",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile.Name(),
		"-ss", formatSeconds(seek),
		"-t", fmt.Sprintf("%d", durationSec),
		"-c", "copy",
		"-movflags", "+faststart",
		"-y", outPath,
	}
	cleanup := func() { os.Remove(listFile.Name()) }
	return argv, cleanup, nil
}

func formatSeconds(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.3f", d.Seconds())
}

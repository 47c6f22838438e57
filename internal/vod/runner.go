package vod

import (
	"context"
	"os/exec"
)

// CommandRunner abstracts running the external concat/transcode tool to
// completion, so tests can verify export without invoking a real binary.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) error
}

type execRunner struct{}

// NewExecRunner returns the os/exec-backed CommandRunner used outside
// tests, grounded on the teacher's exec.CommandContext invocations
// (internal/mediamtx/snapshot_manager.go, ffmpeg_manager.go).
func NewExecRunner() CommandRunner { return execRunner{} }

func (execRunner) Run(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	return cmd.Run()
}

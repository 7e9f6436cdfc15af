// Package media wraps ffmpeg/ffprobe for trimming uploads and extracting thumbnails.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes an external media tool and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s aborted: %w", name, ctxErr)
		}
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Tools locates the ffmpeg binaries and the runner used to invoke them.
type Tools struct {
	FFmpeg  string
	FFprobe string
	Runner  Runner
}

// NewTools returns Tools backed by child processes.
func NewTools(ffmpegPath, ffprobePath string) *Tools {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Tools{FFmpeg: ffmpegPath, FFprobe: ffprobePath, Runner: ExecRunner{}}
}

// Available reports whether both binaries resolve on PATH.
func (t *Tools) Available() bool {
	if _, err := exec.LookPath(t.FFmpeg); err != nil {
		return false
	}
	_, err := exec.LookPath(t.FFprobe)
	return err == nil
}

// ProbeDuration returns the container duration of a decodable video in seconds.
func (t *Tools) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_type:format=duration",
		"-of", "default=noprint_wrappers=1",
		path,
	}
	out, err := t.Runner.Run(ctx, t.FFprobe, args...)
	if err != nil {
		return 0, err
	}
	return parseProbe(string(out))
}

// parseProbe reads "codec_type=video" and "duration=12.3" lines.
func parseProbe(out string) (float64, error) {
	var hasVideo bool
	duration := -1.0
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "codec_type":
			if value == "video" {
				hasVideo = true
			}
		case "duration":
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				duration = parsed
			}
		}
	}
	if !hasVideo {
		return 0, fmt.Errorf("no video stream")
	}
	if duration <= 0 {
		return 0, fmt.Errorf("duration missing")
	}
	return duration, nil
}

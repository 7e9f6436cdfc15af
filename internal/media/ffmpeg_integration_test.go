package media

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFrameRate = 25

// requireFFmpeg skips unless ffmpeg, ffprobe and libx264 are installed.
func requireFFmpeg(t *testing.T) *Tools {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping ffmpeg integration test in short mode")
	}
	tools := NewTools("", "")
	if !tools.Available() {
		t.Skip("ffmpeg/ffprobe not on PATH")
	}
	out, err := tools.Runner.Run(context.Background(), tools.FFmpeg, "-hide_banner", "-encoders")
	if err != nil || !strings.Contains(string(out), "libx264") {
		t.Skip("ffmpeg built without libx264")
	}
	return tools
}

func synthesizeClip(t *testing.T, tools *Tools, seconds int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.mkv")
	_, err := tools.Runner.Run(context.Background(), tools.FFmpeg,
		"-y", "-v", "error",
		"-f", "lavfi",
		"-i", "testsrc=duration="+strconv.Itoa(seconds)+":size=180x320:rate="+strconv.Itoa(testFrameRate),
		"-c:v", "libx264", "-preset", "ultrafast",
		path,
	)
	require.NoError(t, err)
	return path
}

func TestFFmpeg_TrimLongClipToBound(t *testing.T) {
	tools := requireFFmpeg(t)
	src := synthesizeClip(t, tools, 90)
	out := filepath.Join(t.TempDir(), "trimmed.mp4")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	seconds, err := NewTranscoder(tools).Trim(ctx, src, out, 60)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, seconds, 1.0/testFrameRate+0.01)
}

func TestFFmpeg_TrimShortClipIsNotPadded(t *testing.T) {
	tools := requireFFmpeg(t)
	src := synthesizeClip(t, tools, 30)
	out := filepath.Join(t.TempDir(), "trimmed.mp4")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	seconds, err := NewTranscoder(tools).Trim(ctx, src, out, 60)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, seconds, 1.0/testFrameRate+0.01)
}

func TestFFmpeg_ThumbnailFromTrimmedClip(t *testing.T) {
	tools := requireFFmpeg(t)
	src := synthesizeClip(t, tools, 3)
	out := filepath.Join(t.TempDir(), "thumb.jpg")

	err := NewThumbnailExtractor(tools).Extract(context.Background(), src, out, 10*time.Second)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

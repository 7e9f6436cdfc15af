package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"dramafeed/internal/models"
)

// Transcoder trims uploads to a bounded duration and re-encodes them as faststart MP4.
type Transcoder struct {
	tools *Tools
}

// NewTranscoder creates the ffmpeg-backed transcoder.
func NewTranscoder(tools *Tools) *Transcoder {
	return &Transcoder{tools: tools}
}

// Trim writes [0, min(maxSeconds, source)] of inputPath to outputPath and returns the
// probed length of the result. The input is never modified and a failed run leaves
// nothing at outputPath.
func (t *Transcoder) Trim(ctx context.Context, inputPath, outputPath string, maxSeconds int) (float64, error) {
	if maxSeconds <= 0 {
		return 0, &models.MediaProcessingError{Op: "trim", Path: inputPath, Err: fmt.Errorf("invalid duration %d", maxSeconds)}
	}

	if _, err := t.tools.ProbeDuration(ctx, inputPath); err != nil {
		return 0, &models.MediaProcessingError{Op: "probe", Path: inputPath, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return 0, err
	}

	tmpPath := outputPath + ".part.mp4"
	_ = os.Remove(tmpPath)

	args := []string{
		"-y",
		"-v", "error",
		"-i", inputPath,
		"-t", fmt.Sprintf("%d", maxSeconds),
		"-sn",
		"-map", "0:v:0",
		"-map", "0:a:0?",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-ac", "2",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-f", "mp4",
		tmpPath,
	}

	if _, err := t.tools.Runner.Run(ctx, t.tools.FFmpeg, args...); err != nil {
		_ = os.Remove(tmpPath)
		return 0, &models.MediaProcessingError{Op: "trim", Path: inputPath, Err: err}
	}

	trimmedSeconds, err := t.tools.ProbeDuration(ctx, tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, &models.MediaProcessingError{Op: "verify", Path: inputPath, Err: err}
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}

	return trimmedSeconds, nil
}

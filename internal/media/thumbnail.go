package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dramafeed/internal/models"
)

// lastFrameBackoff is how far before the end a clamped seek lands.
const lastFrameBackoff = 100 * time.Millisecond

// ThumbnailExtractor grabs a single JPEG still from a video.
type ThumbnailExtractor struct {
	tools *Tools
}

// NewThumbnailExtractor creates the ffmpeg-backed extractor.
func NewThumbnailExtractor(tools *Tools) *ThumbnailExtractor {
	return &ThumbnailExtractor{tools: tools}
}

// ClampOffset moves an offset at or past the end of the video onto its last frame.
func ClampOffset(at time.Duration, videoSeconds float64) time.Duration {
	if at < 0 {
		return 0
	}
	length := time.Duration(videoSeconds * float64(time.Second))
	if at < length {
		return at
	}
	clamped := length - lastFrameBackoff
	if clamped < 0 {
		return 0
	}
	return clamped
}

// Extract writes the frame at offset "at" of videoPath to outputPath as JPEG.
func (x *ThumbnailExtractor) Extract(ctx context.Context, videoPath, outputPath string, at time.Duration) error {
	videoSeconds, err := x.tools.ProbeDuration(ctx, videoPath)
	if err != nil {
		return &models.MediaProcessingError{Op: "probe", Path: videoPath, Err: err}
	}
	at = ClampOffset(at, videoSeconds)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	tmpPath := outputPath + ".part.jpg"
	_ = os.Remove(tmpPath)

	args := []string{
		"-y",
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", at.Seconds()),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2",
		"-c:v", "mjpeg",
		tmpPath,
	}

	if _, err := x.tools.Runner.Run(ctx, x.tools.FFmpeg, args...); err != nil {
		_ = os.Remove(tmpPath)
		return &models.MediaProcessingError{Op: "thumbnail", Path: videoPath, Err: err}
	}

	// ffmpeg exits 0 without writing a frame when the seek lands past the last packet
	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(tmpPath)
		return &models.MediaProcessingError{Op: "thumbnail", Path: videoPath, Err: fmt.Errorf("no frame at %s", at)}
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

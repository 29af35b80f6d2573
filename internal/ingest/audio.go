package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Extractor pulls the audio track out of a downloaded video via ffmpeg.
type Extractor struct {
	dir string
	bin string
}

// NewExtractor creates an Extractor writing MP3 files into dir. An empty
// bin defaults to "ffmpeg" on PATH.
func NewExtractor(dir, bin string) *Extractor {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Extractor{dir: dir, bin: bin}
}

// ExtractMP3 writes <videoID>.mp3 and returns its path. Videos without an
// audio stream fail.
func (e *Extractor) ExtractMP3(ctx context.Context, videoPath, videoID string) (string, error) {
	output := filepath.Join(e.dir, videoID+".mp3")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.bin,
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		output,
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if strings.Contains(detail, "does not contain any stream") ||
			strings.Contains(detail, "Output file does not contain any stream") {
			return "", fmt.Errorf("no audio stream found in video %s", videoPath)
		}
		return "", fmt.Errorf("ffmpeg audio extraction: %w: %s", err, detail)
	}
	return output, nil
}

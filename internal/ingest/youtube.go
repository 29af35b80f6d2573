package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"
)

// DownloadedVideo describes a successfully fetched video.
type DownloadedVideo struct {
	VideoID string
	Title   string
	Path    string
}

// Downloader fetches YouTube videos via the yt-dlp binary.
type Downloader struct {
	dir    string
	bin    string
	logger *slog.Logger
}

// NewDownloader creates a Downloader writing into dir. An empty bin
// defaults to "yt-dlp" on PATH.
func NewDownloader(dir, bin string, logger *slog.Logger) *Downloader {
	if bin == "" {
		bin = "yt-dlp"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{dir: dir, bin: bin, logger: logger}
}

// Format fallback chain: progressive streams first (no merge step), then
// whatever yt-dlp can provide.
var formatCandidates = []string{
	"best[ext=mp4][acodec!=none][vcodec!=none]",
	"best[acodec!=none][vcodec!=none]",
	"best",
}

// Download fetches the video behind youtubeURL, trying each format
// candidate in order. Unparseable URLs are caller errors.
func (d *Downloader) Download(ctx context.Context, youtubeURL string) (*DownloadedVideo, error) {
	parsed, err := url.ParseRequestURI(youtubeURL)
	if err != nil || parsed.Host == "" {
		return nil, &BadInputError{Reason: fmt.Sprintf("invalid YouTube URL %q", youtubeURL), Err: err}
	}

	outputTemplate := filepath.Join(d.dir, "%(id)s.%(ext)s")

	var lastErr error
	for _, format := range formatCandidates {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, d.bin,
			"--no-playlist",
			"--quiet",
			"--no-simulate",
			"--print-json",
			"-f", format,
			"-o", outputTemplate,
			youtubeURL,
		)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			lastErr = fmt.Errorf("yt-dlp (%s): %w: %s", format, err, strings.TrimSpace(stderr.String()))
			continue
		}

		info := struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Ext   string `json:"ext"`
		}{}
		if err := json.Unmarshal(lastJSONLine(stdout.Bytes()), &info); err != nil {
			lastErr = fmt.Errorf("parsing yt-dlp output: %w", err)
			continue
		}
		if info.ID == "" {
			lastErr = fmt.Errorf("yt-dlp returned no video ID")
			continue
		}
		if info.Title == "" {
			info.Title = info.ID
		}
		if info.Ext == "" {
			info.Ext = "mp4"
		}

		path := filepath.Join(d.dir, info.ID+"."+info.Ext)
		d.logger.Info("video downloaded", "video_id", info.ID, "path", path, "format", format)
		return &DownloadedVideo{VideoID: info.ID, Title: info.Title, Path: path}, nil
	}

	return nil, classifyDownloadError(lastErr)
}

// lastJSONLine returns the final non-empty line of yt-dlp stdout, which
// carries the info JSON when --print-json is set.
func lastJSONLine(out []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return nil
	}
	return lines[len(lines)-1]
}

// classifyDownloadError maps well-known yt-dlp failure modes to
// actionable messages.
func classifyDownloadError(lastErr error) error {
	if lastErr == nil {
		return fmt.Errorf("unable to download video with available formats")
	}
	msg := strings.ToLower(lastErr.Error())

	if strings.Contains(msg, "ffmpeg is not installed") {
		return fmt.Errorf("ffmpeg is required for the selected YouTube format; install ffmpeg and retry: %w", lastErr)
	}
	if strings.Contains(msg, "nsig extraction failed") || strings.Contains(msg, "requested format is not available") {
		return fmt.Errorf("YouTube extractor signature failed for this video; upgrade yt-dlp and retry: %w", lastErr)
	}
	if strings.Contains(msg, "is not a valid url") || strings.Contains(msg, "unsupported url") {
		return &BadInputError{Reason: "URL is not a downloadable video", Err: lastErr}
	}
	return fmt.Errorf("unable to download video with available formats: %w", lastErr)
}

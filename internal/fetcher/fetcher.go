// Package fetcher downloads source clips with yt-dlp and extracts the
// metadata the pipeline needs (caption, uploader, duration).
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Clip is a downloaded video plus the metadata that travels with it into
// the final report.
type Clip struct {
	ID        string
	VideoPath string
	Caption   string
	Uploader  string
	Duration  float64
}

// clipInfo is the subset of yt-dlp's info JSON the pipeline cares about
type clipInfo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Uploader    string  `json:"uploader"`
	Duration    float64 `json:"duration"`
}

type Fetcher struct {
	ytdlpPath   string
	cookiesFile string
	timeout     time.Duration
}

// New creates a fetcher shelling out to the given yt-dlp binary. An empty
// path falls back to yt-dlp on PATH; cookiesFile is optional and only
// passed through when non-empty.
func New(ytdlpPath, cookiesFile string, timeout time.Duration) *Fetcher {
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}
	return &Fetcher{
		ytdlpPath:   ytdlpPath,
		cookiesFile: cookiesFile,
		timeout:     timeout,
	}
}

// Fetch downloads the clip at sourceURL into destDir and returns its local
// path and metadata. The video lands as destDir/source.mp4 (remuxed when the
// origin container is not already mp4).
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, destDir string) (*Clip, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	args := f.buildFetchArgs(sourceURL, destDir)
	cmd := exec.CommandContext(ctx, f.ytdlpPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, stderr.String())
	}

	var info clipInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp info JSON: %w", err)
	}

	videoPath, err := findDownloadedVideo(destDir)
	if err != nil {
		return nil, err
	}

	return &Clip{
		ID:        info.ID,
		VideoPath: videoPath,
		Caption:   captionFrom(info),
		Uploader:  info.Uploader,
		Duration:  info.Duration,
	}, nil
}

func (f *Fetcher) buildFetchArgs(sourceURL, destDir string) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--print-json",
		"--remux-video", "mp4",
		"-o", filepath.Join(destDir, "source.%(ext)s"),
	}

	if f.cookiesFile != "" {
		args = append(args, "--cookies", f.cookiesFile)
	}

	args = append(args, sourceURL)
	return args
}

// captionFrom prefers the description, where short-video platforms put the
// post caption, and falls back to the title.
func captionFrom(info clipInfo) string {
	if caption := strings.TrimSpace(info.Description); caption != "" {
		return caption
	}
	return strings.TrimSpace(info.Title)
}

func findDownloadedVideo(destDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(destDir, "source.*"))
	if err != nil {
		return "", fmt.Errorf("failed to scan download dir: %w", err)
	}
	// Drop yt-dlp side files, keep the media
	videos := matches[:0]
	for _, m := range matches {
		switch filepath.Ext(m) {
		case ".json", ".part", ".ytdl":
			continue
		}
		videos = append(videos, m)
	}
	if len(videos) == 0 {
		return "", fmt.Errorf("yt-dlp produced no video file in %s", destDir)
	}
	sort.Strings(videos)
	return videos[0], nil
}

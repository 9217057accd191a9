package frames

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrDecode indicates the video stream could not be decoded at all (corrupt
// stream, missing decoder, unreadable file). It is fatal for the clip, unlike
// a decodable video that simply contains no frames.
var ErrDecode = errors.New("video decode failed")

// SampledFrame is one still image emitted by the sampler. Index is the
// ordinal position in scan order (strictly increasing, never reused);
// Timestamp is seconds from the start of the clip.
type SampledFrame struct {
	Index     int
	Path      string
	Timestamp float64
}

// SampleOptions holds scene sampling options
type SampleOptions struct {
	InputPath      string
	OutputDir      string
	SceneThreshold float64 // (0,1); lower emits more frames
	MaxFrames      int     // 0 = unlimited
}

// SampleResult holds the sampled frames in presentation order
type SampleResult struct {
	Frames        []SampledFrame
	VideoDuration float64
}

// ClipInfo holds informational stream properties from ffprobe
type ClipInfo struct {
	Duration  float64
	FrameRate float64
}

// Sampler extracts one still per detected scene change using FFmpeg
type Sampler struct {
	ffmpegPath  string
	ffprobePath string
}

// NewSampler creates a new Sampler
func NewSampler(ffmpegPath, ffprobePath string) *Sampler {
	return &Sampler{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// probeFormat is the subset of ffprobe JSON output we read
type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// Probe returns the clip duration and frame rate. Both are informational;
// sampling does not depend on them.
func (s *Sampler) Probe(ctx context.Context, inputPath string) (*ClipInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, s.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	var probed probeFormat
	if err := json.Unmarshal(stdout.Bytes(), &probed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &ClipInfo{}
	if duration, err := strconv.ParseFloat(probed.Format.Duration, 64); err == nil {
		info.Duration = duration
	}

	for _, stream := range probed.Streams {
		if stream.CodecType == "video" {
			parts := strings.Split(stream.AvgFrameRate, "/")
			if len(parts) == 2 {
				num, _ := strconv.ParseFloat(parts[0], 64)
				den, _ := strconv.ParseFloat(parts[1], 64)
				if den != 0 {
					info.FrameRate = num / den
				}
			}
			break
		}
	}

	return info, nil
}

// Sample extracts one frame per detected scene change, in presentation order.
// The first decodable frame is always emitted regardless of threshold. A clip
// that decodes cleanly to zero frames yields an empty result and a nil error;
// decode failures return ErrDecode.
func (s *Sampler) Sample(ctx context.Context, opts SampleOptions) (*SampleResult, error) {
	if opts.SceneThreshold <= 0 || opts.SceneThreshold >= 1 {
		return nil, fmt.Errorf("scene threshold must be in (0,1), got %g", opts.SceneThreshold)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	result := &SampleResult{}
	if info, err := s.Probe(ctx, opts.InputPath); err == nil {
		result.VideoDuration = info.Duration
	}

	outputPattern := filepath.Join(opts.OutputDir, "frame_%04d.jpg")
	cmd := exec.CommandContext(ctx, s.ffmpegPath, buildSampleArgs(opts, outputPattern)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v, stderr: %s", ErrDecode, err, stderr.String())
	}

	paths, err := filepath.Glob(filepath.Join(opts.OutputDir, "frame_*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sampled frames: %w", err)
	}
	sort.Strings(paths)

	timestamps := parseShowinfoTimestamps(stderr.String())
	for i, path := range paths {
		frame := SampledFrame{Index: i, Path: path}
		if i < len(timestamps) {
			frame.Timestamp = timestamps[i]
		}
		result.Frames = append(result.Frames, frame)
	}

	return result, nil
}

// buildSampleArgs assembles the ffmpeg argument list for scene sampling.
// The eq(n,0) term guarantees the first frame is selected even when no scene
// change crosses the threshold; showinfo reports each selected frame's
// pts_time on stderr.
func buildSampleArgs(opts SampleOptions, outputPattern string) []string {
	args := []string{
		"-i", opts.InputPath,
		"-vf", buildSelectFilter(opts.SceneThreshold),
		"-vsync", "vfr",
		"-q:v", "2",
	}

	if opts.MaxFrames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(opts.MaxFrames))
	}

	args = append(args, "-y", outputPattern)
	return args
}

func buildSelectFilter(threshold float64) string {
	return fmt.Sprintf("select='eq(n,0)+gt(scene,%g)',showinfo", threshold)
}

var showinfoRegex = regexp.MustCompile(`Parsed_showinfo.*\bpts_time:([0-9]+(?:\.[0-9]+)?)`)

// parseShowinfoTimestamps extracts per-frame pts_time values from ffmpeg
// stderr, in the order frames were selected.
func parseShowinfoTimestamps(stderr string) []float64 {
	var timestamps []float64
	for _, match := range showinfoRegex.FindAllStringSubmatch(stderr, -1) {
		if ts, err := strconv.ParseFloat(match[1], 64); err == nil {
			timestamps = append(timestamps, ts)
		}
	}
	return timestamps
}

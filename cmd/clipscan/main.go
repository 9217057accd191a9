package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mediaref/clipscan/internal/config"
	"github.com/mediaref/clipscan/internal/logging"
	"github.com/mediaref/clipscan/internal/scan"
	"github.com/mediaref/clipscan/pkg/models"
)

var version = "dev"

var (
	scanThreshold    float64
	scanHashDistance int
	scanWorkers      int
	scanMaxFrames    int
	scanModel        string
	scanRetries      int
	scanCookies      string
	scanYtdlp        string
	scanFFmpeg       string
	scanFFprobe      string
	scanKeepFiles    bool
	scanVerbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "clipscan [url]",
	Short: "Detect media references in short video clips",
	Long: `Downloads the clip at the given URL, samples one frame per scene
change, drops visually duplicate frames and asks a vision model what music,
videos, articles or books each frame references. The aggregated report is
written to stdout as JSON; logs go to stderr.

The vision backend is authenticated with the GEMINI_API_KEY environment
variable.`,
	Args:          cobra.ExactArgs(1),
	RunE:          runScan,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.Flags().Float64Var(&scanThreshold, "scene-threshold", 0.05, "scene change sensitivity in (0,1); lower samples more frames")
	rootCmd.Flags().IntVar(&scanHashDistance, "hash-distance", 10, "Hamming distance at or below which frames are duplicates; 0 disables dedup")
	rootCmd.Flags().IntVar(&scanWorkers, "workers", 4, "concurrent vision requests")
	rootCmd.Flags().IntVar(&scanMaxFrames, "max-frames", 0, "cap on sampled frames; 0 means unlimited")
	rootCmd.Flags().StringVar(&scanModel, "model", "gemini-2.5-flash-lite", "vision model to query")
	rootCmd.Flags().IntVar(&scanRetries, "retries", 1, "attempts per frame for backend failures")
	rootCmd.Flags().StringVar(&scanCookies, "cookies", "", "cookies file passed to yt-dlp")
	rootCmd.Flags().StringVar(&scanYtdlp, "ytdlp", "yt-dlp", "yt-dlp binary")
	rootCmd.Flags().StringVar(&scanFFmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary")
	rootCmd.Flags().StringVar(&scanFFprobe, "ffprobe", "ffprobe", "ffprobe binary")
	rootCmd.Flags().BoolVar(&scanKeepFiles, "keep-files", false, "keep the downloaded video and sampled frames under data/")
	rootCmd.Flags().BoolVarP(&scanVerbose, "verbose", "v", false, "log pipeline progress to stderr")
}

func runScan(cmd *cobra.Command, args []string) error {
	sourceURL := args[0]

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return errors.New("GEMINI_API_KEY is not set")
	}

	log, err := newCLILogger(scanVerbose)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	pipeline := scan.NewPipeline(
		config.PipelineConfig{
			SceneThreshold: scanThreshold,
			HashDistance:   scanHashDistance,
			Workers:        scanWorkers,
			MaxFrames:      scanMaxFrames,
			FFmpegPath:     scanFFmpeg,
			FFprobePath:    scanFFprobe,
		},
		config.VisionConfig{
			APIKey:         apiKey,
			Model:          scanModel,
			Timeout:        60 * time.Second,
			MaxAttempts:    scanRetries,
			RetryBaseDelay: time.Second,
		},
		config.FetcherConfig{
			YtdlpPath:   scanYtdlp,
			CookiesFile: scanCookies,
			Timeout:     5 * time.Minute,
		},
		log,
	)

	scanID := uuid.New().String()

	var workDir string
	if scanKeepFiles {
		workDir = filepath.Join("data", scanID)
	} else {
		workDir, err = os.MkdirTemp("", "clipscan-*")
		if err != nil {
			return fmt.Errorf("failed to create work directory: %w", err)
		}
		defer os.RemoveAll(workDir)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := models.ScanOptions{
		SceneThreshold: scanThreshold,
		HashDistance:   scanHashDistance,
		Model:          scanModel,
		KeepArtifacts:  scanKeepFiles,
	}

	onStage := func(stage string) {
		log.WithScanID(scanID).Infof("Entering stage %s", stage)
	}

	result, err := pipeline.Run(ctx, scanID, sourceURL, workDir, opts, onStage)
	if err != nil {
		return err
	}

	log.WithScanID(scanID).Infof("Sampled %d frames, %d unique, %d media references",
		result.SampledFrames, result.UniqueFrames, len(result.Report.Media))
	if scanKeepFiles {
		log.WithScanID(scanID).Infof("Artifacts kept in %s", workDir)
	}

	output, err := json.MarshalIndent(result.Report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	cmd.Println(string(output))

	return nil
}

// newCLILogger keeps stderr quiet unless --verbose is set; stdout is
// reserved for the report JSON.
func newCLILogger(verbose bool) (*logging.Logger, error) {
	if verbose {
		return logging.NewConsoleLogger()
	}
	return logging.NewLogger(logging.Config{
		Level:  "warn",
		Format: "console",
		Output: "stderr",
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

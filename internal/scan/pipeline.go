package scan

import (
	"context"
	"path/filepath"
	"time"

	"github.com/mediaref/clipscan/internal/analyzer"
	"github.com/mediaref/clipscan/internal/config"
	"github.com/mediaref/clipscan/internal/fetcher"
	"github.com/mediaref/clipscan/internal/frames"
	"github.com/mediaref/clipscan/internal/logging"
	"github.com/mediaref/clipscan/internal/metrics"
	"github.com/mediaref/clipscan/internal/report"
	"github.com/mediaref/clipscan/internal/vision"
	"github.com/mediaref/clipscan/pkg/models"
)

// Pipeline stages, in execution order
const (
	StageFetch   = "fetch"
	StageSample  = "sample"
	StageDedup   = "dedup"
	StageAnalyze = "analyze"
	StageReport  = "report"
)

// StageError wraps a pipeline failure with the stage that produced it, so
// callers can tell a transient fetch failure from a fatal decode failure.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + " failed: " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline runs the frame pipeline for one clip: fetch the video, sample
// scene changes, collapse near-duplicate frames, analyze each survivor with
// the vision backend and aggregate everything into a ClipReport.
type Pipeline struct {
	fetcher   *fetcher.Fetcher
	sampler   *frames.Sampler
	cfg       config.PipelineConfig
	visionCfg config.VisionConfig
	log       *logging.Logger
}

// Result holds everything one pipeline run produced
type Result struct {
	Clip          *fetcher.Clip
	SampledFrames int
	UniqueFrames  int
	FrameResults  []models.FrameResult
	Report        models.ClipReport
}

// NewPipeline creates a pipeline from the pipeline, vision and fetcher
// configuration sections.
func NewPipeline(
	cfg config.PipelineConfig,
	visionCfg config.VisionConfig,
	fetcherCfg config.FetcherConfig,
	log *logging.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher.New(fetcherCfg.YtdlpPath, fetcherCfg.CookiesFile, fetcherCfg.Timeout),
		sampler:   frames.NewSampler(cfg.FFmpegPath, cfg.FFprobePath),
		cfg:       cfg,
		visionCfg: visionCfg,
		log:       log,
	}
}

// Run processes the clip at sourceURL inside workDir and returns the
// aggregated result. Per-frame analysis failures are recorded in the result,
// never returned as errors; only fetch, sampling and dedup failures abort the
// run. onStage, when non-nil, is called as each stage begins.
func (p *Pipeline) Run(ctx context.Context, scanID, sourceURL, workDir string, opts models.ScanOptions, onStage func(stage string)) (*Result, error) {
	stage := func(name string) {
		if onStage != nil {
			onStage(name)
		}
	}

	threshold := opts.SceneThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = p.cfg.SceneThreshold
	}

	stage(StageFetch)
	fetchStart := time.Now()
	clip, err := p.fetcher.Fetch(ctx, sourceURL, workDir)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	p.log.LogPipelineStage(scanID, StageFetch, time.Since(fetchStart), 0)

	stage(StageSample)
	sampleStart := time.Now()
	sampled, err := p.sampler.Sample(ctx, frames.SampleOptions{
		InputPath:      clip.VideoPath,
		OutputDir:      filepath.Join(workDir, "frames"),
		SceneThreshold: threshold,
		MaxFrames:      p.cfg.MaxFrames,
	})
	if err != nil {
		return nil, &StageError{Stage: StageSample, Err: err}
	}
	p.log.LogPipelineStage(scanID, StageSample, time.Since(sampleStart), len(sampled.Frames))

	result := &Result{
		Clip:          clip,
		SampledFrames: len(sampled.Frames),
	}

	// A clip that decodes cleanly to zero frames is a valid scan with an
	// empty report, not a failure
	if len(sampled.Frames) == 0 {
		stage(StageReport)
		result.Report = report.Build(sourceURL, clip.Caption, nil)
		metrics.RecordFrameCounts(0, 0)
		return result, nil
	}

	stage(StageDedup)
	dedupStart := time.Now()
	unique, err := frames.NewDeduplicator(opts.HashDistance).Deduplicate(sampled.Frames)
	if err != nil {
		return nil, &StageError{Stage: StageDedup, Err: err}
	}
	p.log.LogPipelineStage(scanID, StageDedup, time.Since(dedupStart), len(unique))

	result.UniqueFrames = len(unique)
	metrics.RecordFrameCounts(len(sampled.Frames), len(unique))

	stage(StageAnalyze)
	analyzeStart := time.Now()
	frameResults := analyzer.New(p.backendFor(opts.Model), p.cfg.Workers).AnalyzeFrames(ctx, unique)
	p.log.LogPipelineStage(scanID, StageAnalyze, time.Since(analyzeStart), len(frameResults))

	result.FrameResults = frameResults
	for _, fr := range frameResults {
		if fr.Failed() {
			metrics.RecordFrameAnalyzed("error")
		} else {
			metrics.RecordFrameAnalyzed("ok")
		}
	}

	stage(StageReport)
	result.Report = report.Build(sourceURL, clip.Caption, frameResults)
	for _, item := range result.Report.Media {
		metrics.RecordMediaItem(string(item.Type))
	}

	return result, nil
}

// backendFor builds the vision backend for one run, honoring a per-scan
// model override and the configured retry budget.
func (p *Pipeline) backendFor(model string) vision.Backend {
	cfg := vision.Config{
		BaseURL: p.visionCfg.BaseURL,
		APIKey:  p.visionCfg.APIKey,
		Model:   p.visionCfg.Model,
		Timeout: p.visionCfg.Timeout,
	}
	if model != "" {
		cfg.Model = model
	}

	client := vision.NewClient(cfg)

	var backend vision.Backend = &instrumentedBackend{
		backend: client,
		model:   client.Model(),
	}
	if p.visionCfg.MaxAttempts > 1 {
		backend = vision.NewRetryBackend(backend, p.visionCfg.MaxAttempts, p.visionCfg.RetryBaseDelay)
	}

	return backend
}

// instrumentedBackend records per-request backend metrics. It wraps the raw
// client so retry attempts are counted individually.
type instrumentedBackend struct {
	backend vision.Backend
	model   string
}

func (b *instrumentedBackend) AnalyzeImage(ctx context.Context, imageData []byte) ([]models.MediaItem, error) {
	start := time.Now()
	items, err := b.backend.AnalyzeImage(ctx, imageData)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordBackendRequest(b.model, status, time.Since(start).Seconds())

	return items, err
}

var _ vision.Backend = (*instrumentedBackend)(nil)

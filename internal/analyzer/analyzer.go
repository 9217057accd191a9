package analyzer

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/mediaref/clipscan/internal/frames"
	"github.com/mediaref/clipscan/internal/vision"
	"github.com/mediaref/clipscan/pkg/models"
)

// Analyzer fans per-frame vision queries out to a bounded worker pool.
// Frame analyses are independent and stateless with respect to each other,
// which is what makes this safe.
type Analyzer struct {
	backend vision.Backend
	workers int
}

// New creates an Analyzer bounded to the given worker count
func New(backend vision.Backend, workers int) *Analyzer {
	if workers < 1 {
		workers = 1
	}

	return &Analyzer{
		backend: backend,
		workers: workers,
	}
}

// AnalyzeFrames analyzes every frame and returns one FrameResult per input,
// with slot i holding the result for frameSet[i] regardless of completion
// order. Each slot is written exactly once, so no locking is needed. Per-frame
// failures are recorded in that slot and never abort the batch. When ctx is
// cancelled, frames not yet analyzed carry the context error in their slot,
// so callers can still aggregate the completed subset.
func (a *Analyzer) AnalyzeFrames(ctx context.Context, frameSet []frames.UniqueFrame) []models.FrameResult {
	results := make([]models.FrameResult, len(frameSet))

	workers := a.workers
	if workers > len(frameSet) {
		workers = len(frameSet)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = a.analyzeOne(ctx, frameSet[i])
			}
		}()
	}

	for i := range frameSet {
		select {
		case jobs <- i:
		case <-ctx.Done():
			// Slots never handed to a worker are filled here; the two sets
			// are disjoint, so every slot still has exactly one writer.
			results[i] = models.FrameResult{
				FrameIndex: frameSet[i].Index,
				Error:      fmt.Sprintf("analysis aborted: %v", ctx.Err()),
			}
			for j := i + 1; j < len(frameSet); j++ {
				results[j] = models.FrameResult{
					FrameIndex: frameSet[j].Index,
					Error:      fmt.Sprintf("analysis aborted: %v", ctx.Err()),
				}
			}
			close(jobs)
			wg.Wait()
			return results
		}
	}

	close(jobs)
	wg.Wait()
	return results
}

func (a *Analyzer) analyzeOne(ctx context.Context, frame frames.UniqueFrame) models.FrameResult {
	result := models.FrameResult{FrameIndex: frame.Index}

	if err := ctx.Err(); err != nil {
		result.Error = fmt.Sprintf("analysis aborted: %v", err)
		return result
	}

	imageData, err := os.ReadFile(frame.Path)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read frame: %v", err)
		return result
	}

	items, err := a.backend.AnalyzeImage(ctx, imageData)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Items = items
	return result
}

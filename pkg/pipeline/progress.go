package pipeline

import (
	"context"
	"sync"
)

// StageName labels a progress report.
type StageName string

const (
	StagePreparing          StageName = "preparing"
	StageExtracting         StageName = "extracting"
	StageRendering          StageName = "rendering"
	StageDownloadingVideo   StageName = "downloading-video"
	StageCapturingSubtitles StageName = "capturing-subtitles"
	StageProcessing         StageName = "processing"
	StageEncoding           StageName = "encoding"
	StageLoadingFFmpeg      StageName = "loading-ffmpeg"
	StageConverting         StageName = "converting"
	StageUploading          StageName = "uploading"
	StageDownloading        StageName = "downloading"
	StageFinalizing         StageName = "finalizing"
	StageComplete           StageName = "complete"
)

// ProgressFunc receives a percentage in [0, 100] and the current stage.
type ProgressFunc func(percent int, stage StageName)

// Report calls f with percent clamped to [0, 100]. A nil f is a no-op.
func (f ProgressFunc) Report(percent int, stage StageName) {
	if f == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	f(percent, stage)
}

// MonotonicProgress wraps f so that reports lower than the highest value
// already delivered are dropped. The stage label of a dropped report is lost.
func MonotonicProgress(f ProgressFunc) ProgressFunc {
	if f == nil {
		return nil
	}
	var (
		mu   sync.Mutex
		last = -1
	)
	return func(percent int, stage StageName) {
		mu.Lock()
		if percent < last {
			mu.Unlock()
			return
		}
		last = percent
		mu.Unlock()
		f(percent, stage)
	}
}

// CancelCheck is polled at checkpoints; true means abort now.
type CancelCheck func() bool

// Cancelled reports whether cancellation was requested. A nil check never cancels.
func (c CancelCheck) Cancelled() bool {
	return c != nil && c()
}

// Checkpoint returns ErrCancelled when cancel fires or ctx is done.
func Checkpoint(ctx context.Context, cancel CancelCheck) error {
	if cancel.Cancelled() || ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

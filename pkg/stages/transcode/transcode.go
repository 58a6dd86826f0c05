package transcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/clipforge/pkg/adapters/mp4probe"
	"github.com/user/clipforge/pkg/adapters/overlay"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// ErrSeekTimeout is returned when the media never settled at the snapshot position.
var ErrSeekTimeout = errors.New("transcode: seek did not complete")

// Snapshot timing defaults.
const (
	DefaultSettleDelay = 100 * time.Millisecond
	DefaultSeekTimeout = 10 * time.Second
)

// Stage exports a clip without realtime capture: it re-encodes the original
// media and composites a snapshot of the surface taken mid-window.
type Stage struct {
	engines     ports.EngineProvider
	compositor  ports.Compositor
	fetcher     ports.SourceFetcher
	overlay     *overlay.Renderer
	opts        Options
	logger      ports.Logger
	settleDelay time.Duration
	seekTimeout time.Duration
}

// NewStage creates a new transcode stage.
func NewStage(engines ports.EngineProvider, compositor ports.Compositor, fetcher ports.SourceFetcher, opts Options, logger ports.Logger) *Stage {
	return &Stage{
		engines:     engines,
		compositor:  compositor,
		fetcher:     fetcher,
		overlay:     overlay.New(overlay.Options{Width: opts.Width, Height: opts.Height}),
		opts:        opts,
		logger:      logger.WithComponent("transcode"),
		settleDelay: DefaultSettleDelay,
		seekTimeout: DefaultSeekTimeout,
	}
}

// WithSnapshotTiming overrides the seek timeout and the settle delay before the snapshot.
func (s *Stage) WithSnapshotTiming(seekTimeout, settle time.Duration) *Stage {
	s.seekTimeout = seekTimeout
	s.settleDelay = settle
	return s
}

// Execute runs the overlay export for input.Window.
func (s *Stage) Execute(ctx context.Context, input pipeline.TranscodeInput) (pipeline.TranscodeResult, error) {
	if err := input.Window.Validate(); err != nil {
		return pipeline.TranscodeResult{}, err
	}
	progress := pipeline.MonotonicProgress(input.Hooks.Progress)
	cancel := input.Hooks.Cancel
	started := time.Now()

	progress.Report(10, pipeline.StageLoadingFFmpeg)
	eng, err := s.engines.Acquire(ctx)
	if err != nil {
		return pipeline.TranscodeResult{}, fmt.Errorf("acquire engine: %w", err)
	}
	if err := pipeline.Checkpoint(ctx, cancel); err != nil {
		return pipeline.TranscodeResult{}, err
	}

	progress.Report(20, pipeline.StageDownloading)
	sourceURL := s.compositor.Media().SourceURL()
	s.logger.Debug("Fetching source %s", sourceURL)
	source, err := s.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return pipeline.TranscodeResult{}, fmt.Errorf("fetch source: %w", err)
	}
	if err := pipeline.Checkpoint(ctx, cancel); err != nil {
		return pipeline.TranscodeResult{}, err
	}

	progress.Report(30, pipeline.StageCapturingSubtitles)
	snap, err := s.snapshotAt(ctx, input.Window.Midpoint())
	if err != nil {
		return pipeline.TranscodeResult{}, err
	}
	overlayPNG, err := s.overlay.Prepare(snap)
	if err != nil {
		return pipeline.TranscodeResult{}, fmt.Errorf("prepare overlay: %w", err)
	}
	if err := pipeline.Checkpoint(ctx, cancel); err != nil {
		return pipeline.TranscodeResult{}, err
	}

	progress.Report(50, pipeline.StageProcessing)
	data, err := Run(ctx, eng, OverlayComposite(source, overlayPNG, input.Window, s.opts), s.logger)
	if err != nil {
		return pipeline.TranscodeResult{}, err
	}
	if err := pipeline.Checkpoint(ctx, cancel); err != nil {
		return pipeline.TranscodeResult{}, err
	}

	progress.Report(90, pipeline.StageFinalizing)
	artifact := pipeline.Artifact{Data: data, MimeType: pipeline.MimeMP4}
	if err := mp4probe.Annotate(&artifact); err != nil {
		s.logger.Debug("Cannot probe output: %v", err)
	}
	progress.Report(100, pipeline.StageComplete)

	s.logger.Info("Transcoded %s: %.2f MB in %s", input.Window, artifact.SizeMB(), time.Since(started).Round(time.Millisecond))
	return pipeline.TranscodeResult{Artifact: artifact}, nil
}

// snapshotAt seeks the media to pos, waits for it to settle so the surface
// redraws, and returns a snapshot of the surface.
func (s *Stage) snapshotAt(ctx context.Context, pos float64) ([]byte, error) {
	media := s.compositor.Media()
	seeked := make(chan struct{}, 1)
	detach := media.OnSeeked(func() {
		select {
		case seeked <- struct{}{}:
		default:
		}
	})
	defer detach()

	if err := media.Seek(pos); err != nil {
		return nil, fmt.Errorf("seek to %.2fs: %w", pos, err)
	}

	timer := time.NewTimer(s.seekTimeout)
	defer timer.Stop()
	select {
	case <-seeked:
	case <-timer.C:
		return nil, fmt.Errorf("%w after %s", ErrSeekTimeout, s.seekTimeout)
	case <-ctx.Done():
		return nil, pipeline.ErrCancelled
	}

	select {
	case <-time.After(s.settleDelay):
	case <-ctx.Done():
		return nil, pipeline.ErrCancelled
	}

	snap, err := s.compositor.Surface().Snapshot(ctx)
	if err != nil {
		return nil, &pipeline.DeviceCaptureError{Device: "surface snapshot", Err: err}
	}
	return snap, nil
}

package transcode

import (
	"context"
	"fmt"
	"time"

	"github.com/user/clipforge/pkg/adapters/mp4probe"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// ConvertStage converts a recording to MP4 with the local engine.
type ConvertStage struct {
	engines ports.EngineProvider
	opts    Options
	logger  ports.Logger
}

// NewConvertStage creates a new local conversion stage.
func NewConvertStage(engines ports.EngineProvider, opts Options, logger ports.Logger) *ConvertStage {
	return &ConvertStage{
		engines: engines,
		opts:    opts,
		logger:  logger.WithComponent("transcode"),
	}
}

// Execute remuxes input.Artifact to MP4. An MP4 input is returned unchanged.
func (s *ConvertStage) Execute(ctx context.Context, input pipeline.ConvertInput) (pipeline.ConvertResult, error) {
	if input.Artifact.MimeType == pipeline.MimeMP4 {
		return pipeline.ConvertResult{Artifact: input.Artifact}, nil
	}
	progress := pipeline.MonotonicProgress(input.Hooks.Progress)
	started := time.Now()

	progress.Report(0, pipeline.StageLoadingFFmpeg)
	eng, err := s.engines.Acquire(ctx)
	if err != nil {
		return pipeline.ConvertResult{}, fmt.Errorf("acquire engine: %w", err)
	}
	progress.Report(40, pipeline.StageLoadingFFmpeg)
	if err := pipeline.Checkpoint(ctx, input.Hooks.Cancel); err != nil {
		return pipeline.ConvertResult{}, err
	}

	s.logger.Info("Converting %.2f MB %s to MP4", input.Artifact.SizeMB(), input.Artifact.MimeType)
	progress.Report(60, pipeline.StageEncoding)
	job := Remux(input.Artifact.Data, s.opts)
	progress.Report(70, pipeline.StageEncoding)
	data, err := Run(ctx, eng, job, s.logger)
	if err != nil {
		return pipeline.ConvertResult{}, err
	}

	progress.Report(90, pipeline.StageFinalizing)
	artifact := pipeline.Artifact{Data: data, MimeType: pipeline.MimeMP4, DurationMs: input.Artifact.DurationMs}
	if err := mp4probe.Annotate(&artifact); err != nil {
		s.logger.Debug("Cannot probe output: %v", err)
	}
	progress.Report(100, pipeline.StageComplete)

	elapsed := time.Since(started)
	s.logger.Info("MP4 ready: %.2f MB in %s", artifact.SizeMB(), elapsed.Round(time.Millisecond))
	return pipeline.ConvertResult{Artifact: artifact, Elapsed: elapsed}, nil
}

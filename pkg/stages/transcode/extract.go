package transcode

import (
	"context"
	"fmt"

	"github.com/user/clipforge/pkg/adapters/mp4probe"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// ExtractStage cuts a raw vertical clip out of a source without overlay.
type ExtractStage struct {
	engines ports.EngineProvider
	fetcher ports.SourceFetcher
	opts    Options
	logger  ports.Logger
}

// NewExtractStage creates a new extraction stage.
func NewExtractStage(engines ports.EngineProvider, fetcher ports.SourceFetcher, opts Options, logger ports.Logger) *ExtractStage {
	return &ExtractStage{
		engines: engines,
		fetcher: fetcher,
		opts:    opts,
		logger:  logger.WithComponent("transcode"),
	}
}

// Execute extracts input.Window from input.SourceURL.
func (s *ExtractStage) Execute(ctx context.Context, input pipeline.ExtractInput) (pipeline.ExtractResult, error) {
	if err := input.Window.Validate(); err != nil {
		return pipeline.ExtractResult{}, err
	}
	progress := pipeline.MonotonicProgress(input.Hooks.Progress)

	progress.Report(10, pipeline.StageLoadingFFmpeg)
	eng, err := s.engines.Acquire(ctx)
	if err != nil {
		return pipeline.ExtractResult{}, fmt.Errorf("acquire engine: %w", err)
	}

	progress.Report(20, pipeline.StageDownloadingVideo)
	source, err := s.fetcher.Fetch(ctx, input.SourceURL)
	if err != nil {
		return pipeline.ExtractResult{}, fmt.Errorf("fetch source: %w", err)
	}
	if err := pipeline.Checkpoint(ctx, input.Hooks.Cancel); err != nil {
		return pipeline.ExtractResult{}, err
	}

	progress.Report(40, pipeline.StageProcessing)
	s.logger.Debug("Extracting %s from %s", input.Window, input.SourceURL)
	data, err := Run(ctx, eng, VerticalExtract(source, input.Window, s.opts), s.logger)
	if err != nil {
		return pipeline.ExtractResult{}, err
	}

	progress.Report(80, pipeline.StageFinalizing)
	artifact := pipeline.Artifact{Data: data, MimeType: pipeline.MimeMP4}
	if err := mp4probe.Annotate(&artifact); err != nil {
		s.logger.Debug("Cannot probe output: %v", err)
	}
	progress.Report(100, pipeline.StageComplete)
	return pipeline.ExtractResult{Artifact: artifact}, nil
}

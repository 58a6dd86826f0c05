// Package orchestrator coordinates the export stages.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/user/clipforge/pkg/metrics"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
	"github.com/user/clipforge/pkg/strategy"
)

// ConversionMode selects how a non-MP4 artifact is converted.
type ConversionMode string

const (
	ConversionNone   ConversionMode = "none"
	ConversionLocal  ConversionMode = "local"
	ConversionRemote ConversionMode = "remote"
)

// ParseConversionMode validates a configured conversion mode.
func ParseConversionMode(s string) (ConversionMode, error) {
	switch m := ConversionMode(s); m {
	case ConversionNone, ConversionLocal, ConversionRemote:
		return m, nil
	case "":
		return ConversionNone, nil
	default:
		return "", fmt.Errorf("orchestrator: unknown conversion mode %q", s)
	}
}

var (
	// ErrNoRemote is returned when remote conversion is requested without a client.
	ErrNoRemote = errors.New("orchestrator: remote conversion not configured")

	// ErrOutputExists is returned when the output path is taken and overwriting is off.
	ErrOutputExists = errors.New("orchestrator: output file already exists")
)

// Config contains all configuration for an export.
type Config struct {
	// Input
	Window     pipeline.ClipWindow
	OutputPath string // Empty keeps the artifact in memory only

	// Strategy: "auto", "capture" or "transcode"
	Strategy string

	// Recording
	Record pipeline.RecordInput // Window and Hooks are filled per export

	// Conversion of the recording to MP4
	Conversion ConversionMode
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Strategy:   "auto",
		Record:     pipeline.DefaultRecordInput(),
		Conversion: ConversionNone,
	}
}

// Stages groups the stages the orchestrator drives. Remote may be nil.
type Stages struct {
	Record    pipeline.Stage[pipeline.RecordInput, pipeline.RecordResult]
	Transcode pipeline.Stage[pipeline.TranscodeInput, pipeline.TranscodeResult]
	Convert   pipeline.Stage[pipeline.ConvertInput, pipeline.ConvertResult]
	Remote    pipeline.Stage[pipeline.ConvertInput, pipeline.ConvertResult]
	Extract   pipeline.Stage[pipeline.ExtractInput, pipeline.ExtractResult]
}

// Orchestrator runs exports against one compositor.
type Orchestrator struct {
	stages     Stages
	compositor ports.Compositor
	fs         ports.FileSystem
	logger     ports.Logger
	overwrite  bool
}

// New creates a new Orchestrator.
func New(stages Stages, compositor ports.Compositor, fs ports.FileSystem, logger ports.Logger) *Orchestrator {
	return &Orchestrator{
		stages:     stages,
		compositor: compositor,
		fs:         fs,
		logger:     logger,
	}
}

// WithOverwrite allows replacing existing output files.
func (o *Orchestrator) WithOverwrite(overwrite bool) *Orchestrator {
	o.overwrite = overwrite
	return o
}

// Export produces the clip for config.Window. Realtime capture is tried when
// the environment allows it; an unsupported environment falls back to the
// transcode strategy. The result is optionally converted to MP4.
func (o *Orchestrator) Export(ctx context.Context, config Config, hooks pipeline.Hooks) (RunResult, error) {
	if err := config.Window.Validate(); err != nil {
		return RunResult{}, err
	}
	if err := o.checkOutput(config.OutputPath); err != nil {
		return RunResult{}, err
	}
	started := time.Now()
	o.logger.Info("Exporting clip %s", config.Window)

	chosen, err := o.selectStrategy(ctx, config.Strategy)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{Strategy: chosen, Window: config.Window}
	defer func() {
		metrics.ObserveExport(string(result.Strategy), started, result.Artifact, err)
	}()

	if chosen == strategy.Capture {
		err = o.capture(ctx, config, hooks, &result)
		if errors.Is(err, pipeline.ErrUnsupportedEnvironment) {
			o.logger.Warn("Realtime capture unavailable (%v), falling back to transcode", err)
			metrics.StrategyFallbacksTotal.Inc()
			result.FellBack = true
			result.Strategy = strategy.Transcode
			chosen = strategy.Transcode
			err = nil
		} else if err != nil {
			o.logger.Error("Failed to record clip: %s", err)
			return RunResult{}, fmt.Errorf("record stage: %w", err)
		}
	}

	if chosen == strategy.Transcode {
		transcoded, terr := o.stages.Transcode.Execute(ctx, pipeline.TranscodeInput{Window: config.Window, Hooks: hooks})
		if terr != nil {
			err = terr
			o.logger.Error("Failed to transcode clip: %s", err)
			return RunResult{}, fmt.Errorf("transcode stage: %w", err)
		}
		result.Artifact = transcoded.Artifact
	}

	if err = pipeline.Checkpoint(ctx, hooks.Cancel); err != nil {
		return RunResult{}, err
	}

	converted, cerr := o.convert(ctx, config.Conversion, result.Artifact, hooks)
	if cerr != nil {
		err = cerr
		o.logger.Error("Failed to convert clip: %s", err)
		return RunResult{}, fmt.Errorf("convert stage: %w", err)
	}
	result.Converted = converted.MimeType != result.Artifact.MimeType
	result.Artifact = converted

	if err = o.write(config.OutputPath, result.Artifact); err != nil {
		return RunResult{}, err
	}

	result.Elapsed = time.Since(started)
	o.logger.Info("Export completed: %s, %.2f MB in %s", result.Artifact.MimeType, result.Artifact.SizeMB(), result.Elapsed.Round(time.Millisecond))
	return result, nil
}

func (o *Orchestrator) selectStrategy(ctx context.Context, configured string) (strategy.Strategy, error) {
	forced, ok, err := strategy.Parse(configured)
	if err != nil {
		return "", err
	}
	if ok {
		o.logger.Debug("Strategy forced to %s", forced)
		return forced, nil
	}
	env, err := o.compositor.Environment(ctx)
	if err != nil {
		return "", fmt.Errorf("probe environment: %w", err)
	}
	chosen := strategy.Select(env)
	o.logger.Debug("Selected %s strategy for %q", chosen, env.UserAgent)
	return chosen, nil
}

func (o *Orchestrator) capture(ctx context.Context, config Config, hooks pipeline.Hooks, result *RunResult) error {
	input := config.Record
	input.Window = config.Window
	input.Hooks = hooks
	recorded, err := o.stages.Record.Execute(ctx, input)
	if err != nil {
		return err
	}
	result.Artifact = recorded.Artifact
	result.ChunkCount = recorded.ChunkCount
	result.AudioCaptured = recorded.AudioCaptured
	result.StoppedBy = recorded.StoppedBy
	if !recorded.AudioCaptured {
		o.logger.Warn("Clip recorded without audio")
	}
	return nil
}

// convert turns artifact into MP4 according to mode. MP4 input and
// ConversionNone return artifact unchanged.
func (o *Orchestrator) convert(ctx context.Context, mode ConversionMode, artifact pipeline.Artifact, hooks pipeline.Hooks) (pipeline.Artifact, error) {
	if mode == "" || mode == ConversionNone || artifact.MimeType == pipeline.MimeMP4 {
		return artifact, nil
	}
	stage := o.stages.Convert
	if mode == ConversionRemote {
		if o.stages.Remote == nil {
			return pipeline.Artifact{}, ErrNoRemote
		}
		stage = o.stages.Remote
	}

	started := time.Now()
	out, err := stage.Execute(ctx, pipeline.ConvertInput{Artifact: artifact, Hooks: hooks})
	metrics.ObserveConversion(string(mode), started, err)
	if err != nil {
		return pipeline.Artifact{}, err
	}
	o.logger.Info("Converted %.2f MB -> %.2f MB (%s)", artifact.SizeMB(), out.Artifact.SizeMB(), mode)
	return out.Artifact, nil
}

// Convert converts a standalone artifact, e.g. a recording read from disk.
func (o *Orchestrator) Convert(ctx context.Context, artifact pipeline.Artifact, mode ConversionMode, outputPath string, hooks pipeline.Hooks) (pipeline.Artifact, error) {
	if err := o.checkOutput(outputPath); err != nil {
		return pipeline.Artifact{}, err
	}
	out, err := o.convert(ctx, mode, artifact, hooks)
	if err != nil {
		return pipeline.Artifact{}, fmt.Errorf("convert stage: %w", err)
	}
	if err := o.write(outputPath, out); err != nil {
		return pipeline.Artifact{}, err
	}
	return out, nil
}

// ExtractClipOnly cuts a raw vertical clip from sourceURL without overlay.
func (o *Orchestrator) ExtractClipOnly(ctx context.Context, sourceURL string, window pipeline.ClipWindow, outputPath string, hooks pipeline.Hooks) (pipeline.Artifact, error) {
	if err := o.checkOutput(outputPath); err != nil {
		return pipeline.Artifact{}, err
	}
	o.logger.Info("Extracting clip %s", window)
	started := time.Now()
	res, err := o.stages.Extract.Execute(ctx, pipeline.ExtractInput{SourceURL: sourceURL, Window: window, Hooks: hooks})
	metrics.ObserveExport("extract", started, res.Artifact, err)
	if err != nil {
		o.logger.Error("Failed to extract clip: %s", err)
		return pipeline.Artifact{}, fmt.Errorf("extract stage: %w", err)
	}
	if err := o.write(outputPath, res.Artifact); err != nil {
		return pipeline.Artifact{}, err
	}
	return res.Artifact, nil
}

// checkOutput fails fast when path is taken, before any stage runs.
func (o *Orchestrator) checkOutput(path string) error {
	if path == "" || o.overwrite {
		return nil
	}
	exists, err := o.fs.Exists(path)
	if err != nil {
		return fmt.Errorf("check output: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrOutputExists, path)
	}
	return nil
}

func (o *Orchestrator) write(path string, artifact pipeline.Artifact) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := o.fs.MkdirAll(dir); err != nil {
			o.logger.Error("Failed to write output: %s", err)
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := o.fs.WriteFile(path, artifact.Data); err != nil {
		o.logger.Error("Failed to write output: %s", err)
		if rerr := o.fs.Remove(path); rerr != nil {
			o.logger.Debug("Partial output %s not removed: %v", path, rerr)
		}
		return fmt.Errorf("write output: %w", err)
	}
	o.logger.Info("Output saved to %s", path)
	return nil
}

// RunResult contains the results of an export for summary output.
type RunResult struct {
	Strategy strategy.Strategy
	FellBack bool // Capture was selected but the environment could not record
	Window   pipeline.ClipWindow
	Artifact pipeline.Artifact

	// Capture information
	ChunkCount    int
	AudioCaptured bool
	StoppedBy     pipeline.StopReason

	Converted bool
	Elapsed   time.Duration
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/user/clipforge/pkg/adapters/engine"
	"github.com/user/clipforge/pkg/adapters/remoteconvert"
	"github.com/user/clipforge/pkg/adapters/sourcefetch"
	"github.com/user/clipforge/pkg/adapters/vfs"
	"github.com/user/clipforge/pkg/config"
	"github.com/user/clipforge/pkg/orchestrator"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
	"github.com/user/clipforge/pkg/stages/record"
	"github.com/user/clipforge/pkg/stages/transcode"
)

func newEngines(cfg config.Config, log ports.Logger) *engine.Instance {
	return engine.NewInstance(engine.Options{
		FFmpegPath: cfg.Engine.FFmpegPath,
		WorkDir:    cfg.Engine.WorkDir,
		Logger:     log,
	})
}

// newOrchestrator wires every stage. comp may be nil for commands that
// never touch the compositor.
func newOrchestrator(cfg config.Config, comp ports.Compositor, log ports.Logger) *orchestrator.Orchestrator {
	engines := newEngines(cfg, log)
	fetcher := sourcefetch.New(cfg.FetchTimeout(), cfg.MaxSourceBytes())
	opts := cfg.TranscodeOptions()

	stages := orchestrator.Stages{
		Record:    record.New(comp, log),
		Transcode: transcode.NewStage(engines, comp, fetcher, opts, log),
		Convert:   transcode.NewConvertStage(engines, opts, log),
		Extract:   transcode.NewExtractStage(engines, fetcher, opts, log),
	}
	if cfg.Remote.BaseURL != "" {
		stages.Remote = remoteconvert.New(cfg.Remote.BaseURL, cfg.RemoteTimeout(), log)
	}
	return orchestrator.New(stages, comp, vfs.NewHost(), log)
}

func hooks(c *cli.Context) pipeline.Hooks {
	if c.Bool("no-progress") || c.Bool("quiet") {
		return pipeline.Hooks{}
	}
	return pipeline.Hooks{Progress: progressPrinter()}
}

// progressPrinter redraws one line on a terminal and prints one line per
// stage change otherwise.
func progressPrinter() pipeline.ProgressFunc {
	tty := isatty.IsTerminal(os.Stderr.Fd())
	var (
		mu   sync.Mutex
		last pipeline.StageName
	)
	return func(percent int, stage pipeline.StageName) {
		mu.Lock()
		defer mu.Unlock()
		if tty {
			fmt.Fprintf(os.Stderr, "\r%3d%% %-22s", percent, stage)
			if percent == 100 {
				fmt.Fprintln(os.Stderr)
			}
			return
		}
		if stage != last {
			fmt.Fprintf(os.Stderr, "%3d%% %s\n", percent, stage)
			last = stage
		}
	}
}

func printSummary(r orchestrator.RunResult) {
	fmt.Println(l10n.F("Strategy:  %s", r.Strategy))
	if r.FellBack {
		fmt.Println(l10n.T("           (fell back from realtime capture)"))
	}
	fmt.Println(l10n.F("Format:    %s", r.Artifact.MimeType))
	fmt.Println(l10n.F("Size:      %.2f MB", r.Artifact.SizeMB()))
	if r.Artifact.DurationMs > 0 {
		fmt.Println(l10n.F("Duration:  %d ms", r.Artifact.DurationMs))
	}
	if r.Artifact.Width > 0 {
		fmt.Println(l10n.F("Frame:     %dx%d", r.Artifact.Width, r.Artifact.Height))
	}
	if r.ChunkCount > 0 {
		fmt.Println(l10n.F("Chunks:    %d (stopped by %s, audio %v)", r.ChunkCount, r.StoppedBy, r.AudioCaptured))
	}
	fmt.Println(l10n.F("Elapsed:   %s", r.Elapsed.Round(time.Millisecond)))
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// mimeFor guesses the container of a local recording from its extension.
func mimeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".mov":
		return pipeline.MimeMP4
	default:
		return pipeline.MimeWebM
	}
}

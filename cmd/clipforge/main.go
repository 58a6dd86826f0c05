// Package main provides the CLI entry point for clipforge.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/clipforge/pkg/adapters/logger"
	"github.com/user/clipforge/pkg/config"
	"github.com/user/clipforge/pkg/ports"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "clipforge",
		Usage:   l10n.T("Export vertical clips from a live compositor"),
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), EnvVars: []string{"CLIPFORGE_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output")},
			&cli.StringFlag{Name: "ffmpeg-path", Usage: l10n.T("Path to ffmpeg (falls back to FFMPEG_PATH, then PATH)")},
		},
		Commands: []*cli.Command{
			exportCommand(),
			convertCommand(),
			extractCommand(),
			serveCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Println(l10n.F("clipforge version %s", version))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtimeEnv is what every command needs: configuration, logger and a
// context cancelled on SIGINT/SIGTERM.
type runtimeEnv struct {
	cfg    config.Config
	log    ports.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func setup(c *cli.Context) (*runtimeEnv, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("ffmpeg-path") {
		cfg.Engine.FFmpegPath = c.String("ffmpeg-path")
	}

	var log ports.Logger
	if c.Bool("quiet") {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))
	}
	if path := c.String("config"); path != "" {
		log.Debug("Loading config from %s", path)
	}

	ctx, cancel := context.WithCancel(c.Context)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return &runtimeEnv{cfg: cfg, log: log, ctx: ctx, cancel: cancel}, nil
}

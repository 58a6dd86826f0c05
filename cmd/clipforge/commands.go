package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/clipforge/pkg/adapters/chromecompositor"
	"github.com/user/clipforge/pkg/adapters/vfs"
	"github.com/user/clipforge/pkg/orchestrator"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/server"
	"github.com/user/clipforge/pkg/stages/transcode"
)

func windowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "start", Aliases: []string{"s"}, Usage: l10n.T("Clip start in seconds"), Required: true},
		&cli.Float64Flag{Name: "end", Aliases: []string{"e"}, Usage: l10n.T("Clip end in seconds"), Required: true},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: l10n.T("Output file path"), Required: true},
		&cli.BoolFlag{Name: "no-progress", Usage: l10n.T("Do not print progress")},
		&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: l10n.T("Overwrite an existing output file")},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     l10n.T("Export a clip from a compositor page"),
		ArgsUsage: "<page-url>",
		Flags: append(windowFlags(),
			&cli.StringFlag{Name: "strategy", Usage: l10n.T("auto, capture or transcode")},
			&cli.StringFlag{Name: "conversion", Usage: l10n.T("Convert the recording to MP4: none, local or remote")},
			&cli.StringFlag{Name: "remote-url", Usage: l10n.T("Base URL of a conversion service")},
			&cli.StringFlag{Name: "chrome-path", Usage: l10n.T("Path to Chrome executable (falls back to CHROME_PATH env, then system default)")},
			&cli.BoolFlag{Name: "no-headless", Usage: l10n.T("Run browser in non-headless mode")},
		),
		Action: runExport,
	}
}

func runExport(c *cli.Context) error {
	pageURL := c.Args().First()
	if pageURL == "" {
		return cli.Exit(l10n.T("a compositor page URL is required"), 2)
	}
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.cancel()

	cfg := env.cfg
	if c.IsSet("strategy") {
		cfg.Strategy = c.String("strategy")
	}
	if c.IsSet("conversion") {
		cfg.Conversion.Mode = c.String("conversion")
	}
	if c.IsSet("remote-url") {
		cfg.Remote.BaseURL = c.String("remote-url")
	}
	if c.IsSet("chrome-path") {
		cfg.Browser.ChromePath = c.String("chrome-path")
	}
	if c.Bool("no-headless") {
		cfg.Browser.Headless = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	window, err := pipeline.NewClipWindow(c.Float64("start"), c.Float64("end"))
	if err != nil {
		return err
	}
	exportCfg, err := cfg.ToExportOptions(window, c.String("output"))
	if err != nil {
		return err
	}

	opts := chromecompositor.DefaultOptions()
	opts.ChromePath = cfg.Browser.ChromePath
	opts.Headless = cfg.Browser.Headless
	opts.SurfaceSelector = cfg.Browser.SurfaceSelector
	opts.MediaSelector = cfg.Browser.MediaSelector
	opts.LoadTimeout = msDuration(cfg.Browser.LoadTimeoutMs)
	comp := chromecompositor.New(opts, env.log)

	env.log.Info("Launching browser")
	if err := comp.Launch(env.ctx); err != nil {
		return err
	}
	defer func() {
		comp.Close()
		env.log.Debug("Browser closed")
	}()
	if err := comp.Open(pageURL); err != nil {
		return err
	}

	orch := newOrchestrator(cfg, comp, env.log).WithOverwrite(c.Bool("force"))
	result, err := orch.Export(env.ctx, exportCfg, hooks(c))
	if err != nil {
		return err
	}

	printSummary(result)
	return nil
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     l10n.T("Convert a WebM recording to MP4"),
		ArgsUsage: "<input.webm>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: l10n.T("Output file path")},
			&cli.StringFlag{Name: "mode", Value: "local", Usage: l10n.T("local or remote")},
			&cli.StringFlag{Name: "remote-url", Usage: l10n.T("Base URL of a conversion service")},
			&cli.BoolFlag{Name: "no-progress", Usage: l10n.T("Do not print progress")},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: l10n.T("Overwrite an existing output file")},
		},
		Action: func(c *cli.Context) error {
			input := c.Args().First()
			if input == "" {
				return cli.Exit(l10n.T("an input file is required"), 2)
			}
			env, err := setup(c)
			if err != nil {
				return err
			}
			defer env.cancel()

			cfg := env.cfg
			if c.IsSet("remote-url") {
				cfg.Remote.BaseURL = c.String("remote-url")
			}
			mode, err := orchestrator.ParseConversionMode(c.String("mode"))
			if err != nil {
				return err
			}

			host := vfs.NewHost()
			data, err := host.ReadFile(input)
			if err != nil {
				return err
			}
			output := c.String("output")
			if output == "" {
				output = strings.TrimSuffix(input, filepath.Ext(input)) + ".mp4"
			}

			orch := newOrchestrator(cfg, nil, env.log).WithOverwrite(c.Bool("force"))
			artifact := pipeline.Artifact{Data: data, MimeType: mimeFor(input)}
			out, err := orch.Convert(env.ctx, artifact, mode, output, hooks(c))
			if err != nil {
				return err
			}
			fmt.Println(l10n.F("%s: %.2f MB", output, out.SizeMB()))
			return nil
		},
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     l10n.T("Cut a vertical clip from a source video without overlay"),
		ArgsUsage: "<source-url-or-path>",
		Flags:     windowFlags(),
		Action: func(c *cli.Context) error {
			source := c.Args().First()
			if source == "" {
				return cli.Exit(l10n.T("a source URL or path is required"), 2)
			}
			env, err := setup(c)
			if err != nil {
				return err
			}
			defer env.cancel()

			window, err := pipeline.NewClipWindow(c.Float64("start"), c.Float64("end"))
			if err != nil {
				return err
			}
			orch := newOrchestrator(env.cfg, nil, env.log).WithOverwrite(c.Bool("force"))
			out, err := orch.ExtractClipOnly(env.ctx, source, window, c.String("output"), hooks(c))
			if err != nil {
				return err
			}
			fmt.Println(l10n.F("%s: %.2f MB, %d ms", c.String("output"), out.SizeMB(), out.DurationMs))
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: l10n.T("Run the WebM to MP4 conversion service"),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: l10n.T("Listen address"), EnvVars: []string{"CLIPFORGE_LISTEN"}},
		},
		Action: func(c *cli.Context) error {
			env, err := setup(c)
			if err != nil {
				return err
			}
			defer env.cancel()

			cfg := env.cfg
			if c.IsSet("listen") {
				cfg.Server.Listen = c.String("listen")
			}
			engines := newEngines(cfg, env.log)
			opts := server.DefaultOptions()
			opts.Listen = cfg.Server.Listen
			opts.MaxUploadBytes = cfg.Server.MaxUploadMB << 20
			if len(cfg.Server.AllowOrigins) > 0 {
				opts.AllowOrigins = cfg.Server.AllowOrigins
			}

			convert := transcode.NewConvertStage(engines, cfg.TranscodeOptions(), env.log)
			return server.New(convert, opts, env.log).Run(env.ctx)
		},
	}
}

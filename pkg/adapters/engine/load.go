package engine

import (
	"context"

	"github.com/user/clipforge/pkg/ports"
)

// Load resolves and verifies the ffmpeg installation.
func Load(ctx context.Context, ffmpegPath, workDir string, log ports.Logger) (*Engine, error) {
	path, err := FindFFmpeg(ffmpegPath)
	if err != nil {
		return nil, err
	}
	log.Debug("Using ffmpeg at %s", path)

	version, err := probeVersion(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := checkEncoders(ctx, path); err != nil {
		return nil, err
	}

	probe := findFFprobe(path)
	if probe == "" {
		log.Debug("ffprobe not found, continuing without it")
	}

	return &Engine{
		ffmpegPath:  path,
		ffprobePath: probe,
		version:     version,
		workDir:     workDir,
		logger:      log,
	}, nil
}

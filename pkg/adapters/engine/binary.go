package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// requiredEncoders must be present in the ffmpeg build for the transcode jobs.
var requiredEncoders = []string{"libx264", "aac"}

// FindFFmpeg searches for ffmpeg.
// Priority: 1) customPath, 2) FFMPEG_PATH env, 3) PATH, 4) common locations
func FindFFmpeg(customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, customPath)
	}

	if envPath := os.Getenv("FFMPEG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: FFMPEG_PATH %s not found", ErrFFmpegNotFound, envPath)
	}

	path, err := exec.LookPath(executableName("ffmpeg"))
	if err == nil {
		return path, nil
	}

	var commonPaths []string
	switch runtime.GOOS {
	case "windows":
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	case "darwin":
		commonPaths = []string{
			"/opt/homebrew/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/usr/bin/ffmpeg",
		}
	default:
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}

// IsFFmpegAvailable checks if ffmpeg can be located.
func IsFFmpegAvailable() bool {
	_, err := FindFFmpeg("")
	return err == nil
}

// findFFprobe looks for ffprobe next to ffmpeg, then in PATH. It is optional.
func findFFprobe(ffmpegPath string) string {
	sibling := filepath.Join(filepath.Dir(ffmpegPath), executableName("ffprobe"))
	if _, err := os.Stat(sibling); err == nil {
		return sibling
	}
	if path, err := exec.LookPath(executableName("ffprobe")); err == nil {
		return path
	}
	return ""
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// probeVersion runs "ffmpeg -version" and returns the version token.
func probeVersion(ctx context.Context, ffmpegPath string) (string, error) {
	out, err := exec.CommandContext(ctx, ffmpegPath, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("run %s -version: %w", ffmpegPath, err)
	}
	return parseVersion(out), nil
}

// parseVersion extracts the version from the first line of "ffmpeg -version",
// e.g. "ffmpeg version 6.1.1-3ubuntu5 Copyright ..." -> "6.1.1-3ubuntu5".
func parseVersion(out []byte) string {
	line, _, _ := bytes.Cut(out, []byte("\n"))
	fields := strings.Fields(string(line))
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return "unknown"
}

// checkEncoders verifies that every required encoder is compiled in.
func checkEncoders(ctx context.Context, ffmpegPath string) error {
	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders").Output()
	if err != nil {
		return fmt.Errorf("list encoders: %w", err)
	}
	available := parseEncoders(out)
	for _, name := range requiredEncoders {
		if !available[name] {
			return fmt.Errorf("%w: %s", ErrMissingEncoder, name)
		}
	}
	return nil
}

// parseEncoders reads the "-encoders" table. Lines look like
// " V....D libx264              libx264 H.264 / AVC ...".
func parseEncoders(out []byte) map[string]bool {
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	pastHeader := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "------") {
			pastHeader = true
			continue
		}
		if !pastHeader {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			encoders[fields[1]] = true
		}
	}
	return encoders
}

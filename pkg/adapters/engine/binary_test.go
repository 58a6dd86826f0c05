package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/user/clipforge/pkg/adapters/logger"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023 the FFmpeg developers\nbuilt with gcc", "6.1.1-3ubuntu5"},
		{"ffmpeg version n7.0 Copyright", "n7.0"},
		{"garbage", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := parseVersion([]byte(tt.in)); got != tt.want {
			t.Errorf("parseVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseEncoders(t *testing.T) {
	out := `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 A....D aac                  AAC (Advanced Audio Coding)
 V....D libvpx               libvpx VP8
`
	enc := parseEncoders([]byte(out))
	for _, name := range []string{"libx264", "aac", "libvpx"} {
		if !enc[name] {
			t.Errorf("expected encoder %s", name)
		}
	}
	if enc["="] || enc["Video"] {
		t.Error("header lines must not be parsed as encoders")
	}
}

func TestFindFFmpeg_CustomPathMissing(t *testing.T) {
	_, err := FindFFmpeg("/nonexistent/ffmpeg-binary")
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Fatalf("expected ErrFFmpegNotFound, got %v", err)
	}
}

func TestTail(t *testing.T) {
	if got := tail("short", 10); got != "short" {
		t.Errorf("tail kept %q", got)
	}
	if got := tail(strings.Repeat("a", 20)+"END", 3); got != "...END" {
		t.Errorf("tail = %q", got)
	}
}

func TestLoadAndExec(t *testing.T) {
	if !IsFFmpegAvailable() {
		t.Skip("ffmpeg not available")
	}

	ctx := context.Background()
	eng, err := Load(ctx, "", t.TempDir(), logger.NewNoop())
	if err != nil {
		if errors.Is(err, ErrMissingEncoder) {
			t.Skipf("ffmpeg build lacks required encoders: %v", err)
		}
		t.Fatalf("Load failed: %v", err)
	}
	if eng.Version() == "" {
		t.Error("expected a version string")
	}

	job, err := eng.NewJob()
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	defer job.Close()

	args := []string{"-f", "lavfi", "-i", "color=c=red:s=64x64:d=0.5", "-c:v", "libx264", "-pix_fmt", "yuv420p", "out.mp4"}
	if err := job.Exec(ctx, args); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	data, err := job.ReadFile("out.mp4")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) < 8 || string(data[4:8]) != "ftyp" {
		t.Errorf("expected MP4 output")
	}

	err = job.Exec(ctx, []string{"-i", "missing.webm", "x.mp4"})
	if !errors.Is(err, ErrExecFailed) {
		t.Errorf("expected ErrExecFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "stderr:") {
		t.Errorf("expected stderr in error, got %v", err)
	}

	if err := job.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := job.Exec(ctx, args); !errors.Is(err, ErrJobClosed) {
		t.Errorf("expected ErrJobClosed after Close, got %v", err)
	}
}

package transcode

import (
	"reflect"
	"strings"
	"testing"

	"github.com/user/clipforge/pkg/pipeline"
)

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestRemux_Args(t *testing.T) {
	job := Remux([]byte("webm"), DefaultOptions())

	want := []string{
		"-i", "input.webm",
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "+faststart", "-pix_fmt", "yuv420p", "-threads", "0",
		"output.mp4",
	}
	if !reflect.DeepEqual(job.Args, want) {
		t.Errorf("unexpected args:\n got %v\nwant %v", job.Args, want)
	}
	if job.Output != "output.mp4" {
		t.Errorf("unexpected output %s", job.Output)
	}
	if names := job.InputNames(); len(names) != 1 || names[0] != "input.webm" {
		t.Errorf("unexpected inputs %v", names)
	}
}

func TestOverlayComposite_Args(t *testing.T) {
	w := pipeline.ClipWindow{Start: 12.5, End: 20}
	job := OverlayComposite([]byte("mp4"), []byte("png"), w, DefaultOptions())

	if got := argValue(job.Args, "-ss"); got != "12.5" {
		t.Errorf("-ss = %s", got)
	}
	if got := argValue(job.Args, "-t"); got != "7.5" {
		t.Errorf("-t = %s", got)
	}
	if got := argValue(job.Args, "-filter_complex"); got != "[0:v]scale=1080:1920[bg]; [bg][1:v]overlay=(W-w)/2:(H-h)/2[v]" {
		t.Errorf("-filter_complex = %s", got)
	}
	if got := argValue(job.Args, "-crf"); got != "23" {
		t.Errorf("-crf = %s", got)
	}
	if got := argValue(job.Args, "-preset"); got != "medium" {
		t.Errorf("-preset = %s", got)
	}
	joined := strings.Join(job.Args, " ")
	if !strings.Contains(joined, "-map [v] -map 0:a?") {
		t.Errorf("expected optional audio mapping in %s", joined)
	}
	// -ss must precede the first input for a fast seek.
	if job.Args[0] != "-ss" || job.Args[2] != "-i" {
		t.Errorf("expected input seek, got %v", job.Args[:4])
	}
	if names := job.InputNames(); !reflect.DeepEqual(names, []string{"input.mp4", "overlay.png"}) {
		t.Errorf("unexpected inputs %v", names)
	}
}

func TestVerticalExtract_Args(t *testing.T) {
	w := pipeline.ClipWindow{Start: 10, End: 25}
	job := VerticalExtract([]byte("mp4"), w, DefaultOptions())

	if got := argValue(job.Args, "-ss"); got != "10" {
		t.Errorf("-ss = %s", got)
	}
	if got := argValue(job.Args, "-t"); got != "15" {
		t.Errorf("-t = %s", got)
	}
	if got := argValue(job.Args, "-vf"); got != `scale=-1:1920,crop=min(iw\,1080):1920` {
		t.Errorf("-vf = %s", got)
	}
	if got := argValue(job.Args, "-crf"); got != "18" {
		t.Errorf("-crf = %s", got)
	}
	if got := argValue(job.Args, "-b:a"); got != "192k" {
		t.Errorf("-b:a = %s", got)
	}
}

func TestSeconds(t *testing.T) {
	tests := map[float64]string{0: "0", 10: "10", 12.25: "12.25", 0.1: "0.1"}
	for in, want := range tests {
		if got := seconds(in); got != want {
			t.Errorf("seconds(%v) = %s, want %s", in, got, want)
		}
	}
}

package strategy

import (
	"errors"
	"testing"

	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

const (
	uaChrome  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	uaSafari  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15"
	uaAndroid = "Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 (KHTML, like Gecko) Mobile Safari/537.36"
	uaFirefox = "Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		env  ports.Environment
		want Strategy
	}{
		{"chrome with capture", ports.Environment{UserAgent: uaChrome, ElementCapture: true, Recorder: true}, Capture},
		{"firefox with capture", ports.Environment{UserAgent: uaFirefox, ElementCapture: true, Recorder: true}, Capture},
		{"android webview", ports.Environment{UserAgent: uaAndroid, ElementCapture: true, Recorder: true}, Capture},
		{"safari", ports.Environment{UserAgent: uaSafari, ElementCapture: true, Recorder: true}, Transcode},
		{"no element capture", ports.Environment{UserAgent: uaChrome, Recorder: true}, Transcode},
		{"no recorder", ports.Environment{UserAgent: uaChrome, ElementCapture: true}, Transcode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Select(tt.env); got != tt.want {
				t.Errorf("Select() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCheckCapture(t *testing.T) {
	err := CheckCapture(ports.Environment{UserAgent: uaSafari, ElementCapture: true, Recorder: true})
	if !errors.Is(err, pipeline.ErrUnsupportedEnvironment) {
		t.Fatalf("expected ErrUnsupportedEnvironment, got %v", err)
	}
	if err := CheckCapture(ports.Environment{UserAgent: uaChrome, ElementCapture: true, Recorder: true}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestParse(t *testing.T) {
	if _, forced, err := Parse("auto"); forced || err != nil {
		t.Errorf("auto: forced=%v err=%v", forced, err)
	}
	if s, forced, err := Parse("Transcode"); s != Transcode || !forced || err != nil {
		t.Errorf("transcode: got %s %v %v", s, forced, err)
	}
	if _, _, err := Parse("gpu"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

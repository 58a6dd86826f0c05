package chromecompositor

import (
	"errors"
	"strings"
	"testing"

	"github.com/user/clipforge/pkg/adapters/logger"
	"github.com/user/clipforge/pkg/ports"
)

func TestCall(t *testing.T) {
	tests := []struct {
		fn   string
		args []any
		want string
	}{
		{"snapshot", nil, "window.__cf.snapshot()"},
		{"seek", []any{12.5}, "window.__cf.seek(12.5)"},
		{"isTypeSupported", []any{`video/webm;codecs="vp8"`}, `window.__cf.isTypeSupported("video/webm;codecs=\"vp8\"")`},
		{"newRecorder", []any{[]string{"1", "2"}, "video/webm", 5000000}, `window.__cf.newRecorder(["1","2"],"video/webm",5000000)`},
	}
	for _, tt := range tests {
		if got := call(tt.fn, tt.args...); got != tt.want {
			t.Errorf("call(%s) = %s, want %s", tt.fn, got, tt.want)
		}
	}
}

func TestInstallScriptQuotesSelectors(t *testing.T) {
	s := installScript(`#stage canvas`, `video[data-role="source"]`)
	if !strings.Contains(s, `document.querySelector("#stage canvas")`) {
		t.Error("surface selector not embedded")
	}
	if !strings.Contains(s, `document.querySelector("video[data-role=\"source\"]")`) {
		t.Error("media selector not escaped")
	}
}

func TestBridgeScriptChecksMediaCapture(t *testing.T) {
	want := `elementCapture: typeof (media.captureStream || media.mozCaptureStream) === "function"`
	if !strings.Contains(bridgeScript, want) {
		t.Error("environment must check the media element capture primitive")
	}
}

func TestListeners_Dispatch(t *testing.T) {
	l := newListeners()

	var seeked int
	var positions []float64
	detachSeeked := l.onSeeked(func() { seeked++ })
	l.onPosition(func(p float64) { positions = append(positions, p) })

	var chunks [][]byte
	var stopped bool
	var recErr error
	l.addRecorder(&recorder{id: "7", handlers: ports.RecorderHandlers{
		OnData:  func(b []byte) { chunks = append(chunks, b) },
		OnStop:  func() { stopped = true },
		OnError: func(err error) { recErr = err },
	}})

	payloads := []string{
		`{"type":"seeked"}`,
		`{"type":"timeupdate","position":10.25}`,
		`{"type":"data","id":"7","data":"aGVsbG8="}`,
		`{"type":"error","id":"7","error":"NotSupportedError"}`,
		`{"type":"stop","id":"7"}`,
	}
	for _, p := range payloads {
		if err := l.dispatch(p); err != nil {
			t.Fatalf("dispatch(%s): %v", p, err)
		}
	}

	if seeked != 1 {
		t.Errorf("seeked = %d, want 1", seeked)
	}
	if len(positions) != 1 || positions[0] != 10.25 {
		t.Errorf("positions = %v", positions)
	}
	if len(chunks) != 1 || string(chunks[0]) != "hello" {
		t.Errorf("chunks = %q", chunks)
	}
	if recErr == nil || recErr.Error() != "NotSupportedError" {
		t.Errorf("recorder error = %v", recErr)
	}
	if !stopped {
		t.Error("OnStop not called")
	}

	// The recorder is forgotten after stop.
	if err := l.dispatch(`{"type":"data","id":"7","data":"aGVsbG8="}`); err == nil {
		t.Error("expected error for data after stop")
	}

	detachSeeked()
	if err := l.dispatch(`{"type":"seeked"}`); err != nil {
		t.Fatal(err)
	}
	if seeked != 1 {
		t.Errorf("detached listener still called")
	}
	if l.count() != 1 {
		t.Errorf("count = %d, want 1", l.count())
	}
}

func TestListeners_DispatchErrors(t *testing.T) {
	l := newListeners()
	for _, p := range []string{`not json`, `{"type":"bogus"}`, `{"type":"data","id":"1","data":"%%%"}`} {
		if err := l.dispatch(p); err == nil {
			t.Errorf("dispatch(%s) should fail", p)
		}
	}
}

func TestQueue(t *testing.T) {
	q := newQueue()
	q.push("a")
	q.push("b")

	select {
	case <-q.notify:
	default:
		t.Fatal("push should signal")
	}
	if got := q.drain(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("drain = %v", got)
	}
	if got := q.drain(); got != nil {
		t.Errorf("second drain = %v, want empty", got)
	}
}

func TestDecodeDataURL(t *testing.T) {
	data, err := decodeDataURL("data:image/png;base64,iVBORw0KGgo=")
	if err != nil {
		t.Fatalf("decodeDataURL: %v", err)
	}
	if len(data) != 8 || data[1] != 'P' {
		t.Errorf("data = %v", data)
	}
	if _, err := decodeDataURL("blob:abc"); err == nil {
		t.Error("expected error for non data URL")
	}
}

func TestCompositor_NotOpen(t *testing.T) {
	c := New(DefaultOptions(), logger.NewNoop())
	if _, err := c.Environment(t.Context()); !errors.Is(err, ErrNotOpen) {
		t.Errorf("err = %v, want ErrNotOpen", err)
	}
	if err := c.Open("about:blank"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Open before Launch: err = %v, want ErrNotOpen", err)
	}
}

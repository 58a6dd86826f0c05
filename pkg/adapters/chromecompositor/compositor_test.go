package chromecompositor

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/clipforge/pkg/adapters/logger"
)

const testPage = `<!doctype html>
<html><body>
<canvas width="90" height="160"></canvas>
<video muted></video>
<script>
  const g = document.querySelector("canvas").getContext("2d");
  g.fillStyle = "#e33";
  g.fillRect(0, 0, 90, 160);
</script>
</body></html>`

func TestCompositor_OpenPage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	chromePath := ResolveChromePath("")
	if chromePath == "" {
		t.Skip("Chrome not installed, skipping browser test")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.ChromePath = chromePath
	c := New(opts, logger.NewNoop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := c.Launch(ctx); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	defer c.Close()

	if err := c.Open(srv.URL); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	env, err := c.Environment(ctx)
	if err != nil {
		t.Fatalf("Environment failed: %v", err)
	}
	if env.UserAgent == "" || !env.ElementCapture || !env.Recorder {
		t.Errorf("unexpected environment: %+v", env)
	}

	// Capture depends on the media element; the canvas primitive alone is not enough.
	var removed bool
	if err := c.eval(ctx, `(delete HTMLMediaElement.prototype.captureStream, true)`, &removed); err != nil {
		t.Fatalf("remove captureStream: %v", err)
	}
	env, err = c.Environment(ctx)
	if err != nil {
		t.Fatalf("Environment failed: %v", err)
	}
	if env.ElementCapture {
		t.Error("ElementCapture should be false without media captureStream")
	}

	png, err := c.Surface().Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Errorf("snapshot is not a PNG (%d bytes)", len(png))
	}

	out, err := c.Media().AudioOutput()
	if err != nil {
		t.Fatalf("AudioOutput failed: %v", err)
	}
	if !out.Muted {
		t.Errorf("audio output = %+v, want muted", out)
	}
}

package chromecompositor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// bindingName is the runtime binding the page uses to report events.
const bindingName = "__clipforge"

// bridgeScript installs window.__cf, the page-side half of the adapter. It
// is formatted with the JSON-encoded surface and media selectors.
const bridgeScript = `(() => {
  const surface = document.querySelector(%s);
  const media = document.querySelector(%s);
  if (!surface || !media) {
    throw new Error("clipforge: surface or media element not found");
  }
  const send = (m) => window.__clipforge(JSON.stringify(m));
  const cf = window.__cf = { tracks: {}, recorders: {}, next: 1 };
  const id = () => String(cf.next++);
  const register = (tracks) => tracks.map((t) => {
    const k = id();
    cf.tracks[k] = t;
    return { id: k, kind: t.kind };
  });
  media.addEventListener("seeked", () => send({ type: "seeked" }));
  media.addEventListener("timeupdate", () => send({ type: "timeupdate", position: media.currentTime }));

  cf.captureSurface = (fps) => register(surface.captureStream(fps).getVideoTracks());
  cf.captureAudio = () => {
    const capture = media.captureStream || media.mozCaptureStream;
    if (!capture) throw new Error("media element capture not available");
    return register(capture.call(media).getAudioTracks());
  };
  cf.stopTrack = (k) => {
    const t = cf.tracks[k];
    if (t) { t.stop(); delete cf.tracks[k]; }
    return true;
  };
  cf.output = () => ({ muted: media.muted, volume: media.volume });
  cf.setOutput = (muted, volume) => { media.muted = muted; media.volume = volume; return true; };
  cf.seek = (s) => { media.currentTime = s; return true; };
  cf.play = () => media.play().then(() => true);
  cf.pause = () => { media.pause(); return true; };
  cf.position = () => media.currentTime;
  cf.source = () => media.currentSrc || media.src || "";
  cf.isTypeSupported = (m) => typeof MediaRecorder !== "undefined" && MediaRecorder.isTypeSupported(m);
  cf.newRecorder = (ids, mimeType, bps) => {
    const stream = new MediaStream(ids.map((k) => cf.tracks[k]).filter(Boolean));
    const r = new MediaRecorder(stream, { mimeType, videoBitsPerSecond: bps });
    const k = id();
    let chain = Promise.resolve();
    r.ondataavailable = (e) => {
      if (!e.data || e.data.size === 0) return;
      chain = chain.then(async () => {
        const buf = new Uint8Array(await e.data.arrayBuffer());
        let bin = "";
        for (let i = 0; i < buf.length; i += 0x8000) {
          bin += String.fromCharCode.apply(null, buf.subarray(i, i + 0x8000));
        }
        send({ type: "data", id: k, data: btoa(bin) });
      });
    };
    r.onstop = () => { chain = chain.then(() => send({ type: "stop", id: k })); };
    r.onerror = (e) => send({ type: "error", id: k, error: String((e && e.error) || "recorder error") });
    cf.recorders[k] = r;
    return k;
  };
  cf.start = (k, ms) => { cf.recorders[k].start(ms); return true; };
  cf.stop = (k) => {
    const r = cf.recorders[k];
    if (r && r.state !== "inactive") r.stop();
    return true;
  };
  cf.state = (k) => (cf.recorders[k] ? cf.recorders[k].state : "inactive");
  cf.snapshot = () => surface.toDataURL("image/png");
  cf.environment = () => ({
    userAgent: navigator.userAgent,
    elementCapture: typeof (media.captureStream || media.mozCaptureStream) === "function",
    recorder: typeof MediaRecorder !== "undefined",
  });
  return true;
})()`

// message is a page event delivered through the binding.
type message struct {
	Type     string  `json:"type"`
	ID       string  `json:"id,omitempty"`
	Position float64 `json:"position,omitempty"`
	Data     string  `json:"data,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// call formats a bridge invocation with JSON-encoded arguments.
func call(fn string, args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			b = []byte("null")
		}
		parts[i] = string(b)
	}
	return fmt.Sprintf("window.__cf.%s(%s)", fn, strings.Join(parts, ","))
}

// installScript returns the bridge for the given selectors.
func installScript(surfaceSelector, mediaSelector string) string {
	s, _ := json.Marshal(surfaceSelector)
	m, _ := json.Marshal(mediaSelector)
	return fmt.Sprintf(bridgeScript, s, m)
}

// listeners fans page events out to the registered callbacks.
type listeners struct {
	mu        sync.Mutex
	next      int
	seeked    map[int]func()
	position  map[int]func(float64)
	recorders map[string]*recorder
}

func newListeners() *listeners {
	return &listeners{
		seeked:    make(map[int]func()),
		position:  make(map[int]func(float64)),
		recorders: make(map[string]*recorder),
	}
}

func (l *listeners) onSeeked(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	id := l.next
	l.seeked[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.seeked, id)
		l.mu.Unlock()
	}
}

func (l *listeners) onPosition(fn func(float64)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	id := l.next
	l.position[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.position, id)
		l.mu.Unlock()
	}
}

func (l *listeners) addRecorder(r *recorder) {
	l.mu.Lock()
	l.recorders[r.id] = r
	l.mu.Unlock()
}

// count returns the number of attached media listeners.
func (l *listeners) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seeked) + len(l.position)
}

// dispatch decodes one binding payload and invokes the matching callbacks.
// Callbacks run without the lock held.
func (l *listeners) dispatch(payload string) error {
	var msg message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return fmt.Errorf("decode page event: %w", err)
	}

	l.mu.Lock()
	var (
		seeked   []func()
		position []func(float64)
		rec      = l.recorders[msg.ID]
	)
	switch msg.Type {
	case "seeked":
		for _, fn := range l.seeked {
			seeked = append(seeked, fn)
		}
	case "timeupdate":
		for _, fn := range l.position {
			position = append(position, fn)
		}
	case "stop":
		delete(l.recorders, msg.ID)
	}
	l.mu.Unlock()

	switch msg.Type {
	case "seeked":
		for _, fn := range seeked {
			fn()
		}
	case "timeupdate":
		for _, fn := range position {
			fn(msg.Position)
		}
	case "data":
		if rec == nil {
			return fmt.Errorf("data for unknown recorder %q", msg.ID)
		}
		chunk, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return fmt.Errorf("decode chunk: %w", err)
		}
		if rec.handlers.OnData != nil {
			rec.handlers.OnData(chunk)
		}
	case "stop":
		if rec != nil && rec.handlers.OnStop != nil {
			rec.handlers.OnStop()
		}
	case "error":
		if rec != nil && rec.handlers.OnError != nil {
			rec.handlers.OnError(errors.New(msg.Error))
		}
	default:
		return fmt.Errorf("unknown page event %q", msg.Type)
	}
	return nil
}

// queue is an unbounded FIFO between the CDP event reader and the
// dispatcher goroutine. Push never blocks.
type queue struct {
	mu     sync.Mutex
	items  []string
	notify chan struct{}
}

func newQueue() *queue {
	return &queue{notify: make(chan struct{}, 1)}
}

func (q *queue) push(s string) {
	q.mu.Lock()
	q.items = append(q.items, s)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *queue) drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

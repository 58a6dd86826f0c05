package chromecompositor

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/user/clipforge/pkg/ports"
)

// track is a MediaStreamTrack held by the page.
type track struct {
	c    *Compositor
	id   string
	kind ports.TrackKind
}

func (t *track) ID() string            { return t.id }
func (t *track) Kind() ports.TrackKind { return t.kind }

func (t *track) Stop() error {
	return t.c.eval(t.c.ctx, call("stopTrack", t.id), nil)
}

type trackRef struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

func (c *Compositor) tracks(refs []trackRef) []ports.Track {
	out := make([]ports.Track, 0, len(refs))
	for _, r := range refs {
		out = append(out, &track{c: c, id: r.ID, kind: ports.TrackKind(r.Kind)})
	}
	return out
}

// surface is the page canvas.
type surface struct {
	c *Compositor
}

func (s *surface) CaptureStream(fps int) (*ports.MediaStream, error) {
	var refs []trackRef
	if err := s.c.eval(s.c.ctx, call("captureSurface", fps), &refs); err != nil {
		return nil, fmt.Errorf("capture surface: %w", err)
	}
	return ports.NewMediaStream(s.c.tracks(refs)), nil
}

func (s *surface) Snapshot(ctx context.Context) ([]byte, error) {
	var dataURL string
	if err := s.c.eval(ctx, call("snapshot"), &dataURL); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return decodeDataURL(dataURL)
}

// decodeDataURL extracts the payload of a base64 data URL.
func decodeDataURL(s string) ([]byte, error) {
	i := strings.Index(s, ";base64,")
	if !strings.HasPrefix(s, "data:") || i < 0 {
		return nil, fmt.Errorf("unexpected data URL prefix %.32q", s)
	}
	return base64.StdEncoding.DecodeString(s[i+len(";base64,"):])
}

// media is the page video element.
type media struct {
	c *Compositor
}

func (m *media) CaptureAudio() ([]ports.Track, error) {
	var refs []trackRef
	if err := m.c.eval(m.c.ctx, call("captureAudio"), &refs); err != nil {
		return nil, fmt.Errorf("capture audio: %w", err)
	}
	return m.c.tracks(refs), nil
}

func (m *media) AudioOutput() (ports.AudioOutput, error) {
	var out struct {
		Muted  bool    `json:"muted"`
		Volume float64 `json:"volume"`
	}
	if err := m.c.eval(m.c.ctx, call("output"), &out); err != nil {
		return ports.AudioOutput{}, err
	}
	return ports.AudioOutput{Muted: out.Muted, Volume: out.Volume}, nil
}

func (m *media) SetAudioOutput(out ports.AudioOutput) error {
	return m.c.eval(m.c.ctx, call("setOutput", out.Muted, out.Volume), nil)
}

func (m *media) Seek(seconds float64) error {
	return m.c.eval(m.c.ctx, call("seek", seconds), nil)
}

func (m *media) Play() error {
	return m.c.evalAwait(m.c.ctx, call("play"), nil)
}

func (m *media) Pause() error {
	return m.c.eval(m.c.ctx, call("pause"), nil)
}

func (m *media) Position() (float64, error) {
	var pos float64
	err := m.c.eval(m.c.ctx, call("position"), &pos)
	return pos, err
}

func (m *media) OnSeeked(fn func()) func() {
	return m.c.listeners.onSeeked(fn)
}

func (m *media) OnPosition(fn func(seconds float64)) func() {
	return m.c.listeners.onPosition(fn)
}

func (m *media) SourceURL() string {
	var src string
	if err := m.c.eval(m.c.ctx, call("source"), &src); err != nil {
		m.c.logger.Warn("Failed to read media source: %v", err)
		return ""
	}
	return src
}

var (
	_ ports.Surface     = (*surface)(nil)
	_ ports.MediaSource = (*media)(nil)
	_ ports.Track       = (*track)(nil)
)

// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/clipforge/pkg/ports"
)

// Compositor is a mock implementation of ports.Compositor.
type Compositor struct {
	SurfaceMock   *Surface
	MediaMock     *MediaSource
	RecordersMock *RecorderFactory

	EnvironmentFunc func(ctx context.Context) (ports.Environment, error)
}

// NewCompositor returns a compositor whose environment supports realtime capture.
func NewCompositor() *Compositor {
	return &Compositor{
		SurfaceMock:   &Surface{},
		MediaMock:     NewMediaSource(),
		RecordersMock: &RecorderFactory{},
	}
}

func (m *Compositor) Surface() ports.Surface           { return m.SurfaceMock }
func (m *Compositor) Media() ports.MediaSource         { return m.MediaMock }
func (m *Compositor) Recorders() ports.RecorderFactory { return m.RecordersMock }

func (m *Compositor) Environment(ctx context.Context) (ports.Environment, error) {
	if m.EnvironmentFunc != nil {
		return m.EnvironmentFunc(ctx)
	}
	return ports.Environment{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		ElementCapture: true,
		Recorder:       true,
	}, nil
}

// Track is a mock capture track that records whether it was stopped.
type Track struct {
	TrackID   string
	TrackKind ports.TrackKind
	stopped   atomic.Bool
}

func (t *Track) ID() string            { return t.TrackID }
func (t *Track) Kind() ports.TrackKind { return t.TrackKind }

func (t *Track) Stop() error {
	t.stopped.Store(true)
	return nil
}

// Stopped reports whether Stop was called.
func (t *Track) Stopped() bool {
	return t.stopped.Load()
}

// Surface is a mock implementation of ports.Surface.
type Surface struct {
	CaptureStreamFunc func(fps int) (*ports.MediaStream, error)
	SnapshotFunc      func(ctx context.Context) ([]byte, error)

	mu     sync.Mutex
	tracks []*Track
}

func (m *Surface) CaptureStream(fps int) (*ports.MediaStream, error) {
	if m.CaptureStreamFunc != nil {
		return m.CaptureStreamFunc(fps)
	}
	t := &Track{TrackID: "video-0", TrackKind: ports.TrackVideo}
	m.mu.Lock()
	m.tracks = append(m.tracks, t)
	m.mu.Unlock()
	return ports.NewMediaStream([]ports.Track{t}), nil
}

func (m *Surface) Snapshot(ctx context.Context) ([]byte, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx)
	}
	return nil, nil
}

// Tracks returns the tracks handed out by the default CaptureStream.
func (m *Surface) Tracks() []*Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Track(nil), m.tracks...)
}

// MediaSource is a mock implementation of ports.MediaSource. By default Seek
// moves the position and fires the seeked listeners asynchronously.
type MediaSource struct {
	CaptureAudioFunc func() ([]ports.Track, error)
	SeekFunc         func(seconds float64) error
	PlayFunc         func() error
	PauseFunc        func() error
	URL              string

	mu            sync.Mutex
	output        ports.AudioOutput
	position      float64
	seekedFns     map[int]func()
	positionFns   map[int]func(float64)
	nextID        int
	audioTracks   []*Track
	outputHistory []ports.AudioOutput

	PlayCalls  atomic.Int32
	PauseCalls atomic.Int32
}

// NewMediaSource returns an audible media source.
func NewMediaSource() *MediaSource {
	return &MediaSource{
		output:      ports.AudioOutput{Muted: false, Volume: 1},
		seekedFns:   make(map[int]func()),
		positionFns: make(map[int]func(float64)),
	}
}

func (m *MediaSource) CaptureAudio() ([]ports.Track, error) {
	if m.CaptureAudioFunc != nil {
		return m.CaptureAudioFunc()
	}
	t := &Track{TrackID: "audio-0", TrackKind: ports.TrackAudio}
	m.mu.Lock()
	m.audioTracks = append(m.audioTracks, t)
	m.mu.Unlock()
	return []ports.Track{t}, nil
}

// AudioTracks returns the tracks handed out by the default CaptureAudio.
func (m *MediaSource) AudioTracks() []*Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Track(nil), m.audioTracks...)
}

func (m *MediaSource) AudioOutput() (ports.AudioOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.output, nil
}

func (m *MediaSource) SetAudioOutput(out ports.AudioOutput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.output = out
	m.outputHistory = append(m.outputHistory, out)
	return nil
}

// OutputHistory returns every audio output set so far.
func (m *MediaSource) OutputHistory() []ports.AudioOutput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.AudioOutput(nil), m.outputHistory...)
}

func (m *MediaSource) Seek(seconds float64) error {
	if m.SeekFunc != nil {
		return m.SeekFunc(seconds)
	}
	m.mu.Lock()
	m.position = seconds
	m.mu.Unlock()
	go m.EmitSeeked()
	return nil
}

func (m *MediaSource) Play() error {
	m.PlayCalls.Add(1)
	if m.PlayFunc != nil {
		return m.PlayFunc()
	}
	return nil
}

func (m *MediaSource) Pause() error {
	m.PauseCalls.Add(1)
	if m.PauseFunc != nil {
		return m.PauseFunc()
	}
	return nil
}

func (m *MediaSource) Position() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position, nil
}

func (m *MediaSource) OnSeeked(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.seekedFns[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.seekedFns, id)
		m.mu.Unlock()
	}
}

func (m *MediaSource) OnPosition(fn func(seconds float64)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.positionFns[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.positionFns, id)
		m.mu.Unlock()
	}
}

func (m *MediaSource) SourceURL() string {
	return m.URL
}

// EmitSeeked calls every attached seeked listener.
func (m *MediaSource) EmitSeeked() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.seekedFns))
	for _, fn := range m.seekedFns {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// EmitPosition sets the position and calls every attached position listener.
func (m *MediaSource) EmitPosition(seconds float64) {
	m.mu.Lock()
	m.position = seconds
	fns := make([]func(float64), 0, len(m.positionFns))
	for _, fn := range m.positionFns {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(seconds)
	}
}

// Listeners returns the number of attached listeners.
func (m *MediaSource) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seekedFns) + len(m.positionFns)
}

// RecorderFactory is a mock implementation of ports.RecorderFactory.
type RecorderFactory struct {
	IsTypeSupportedFunc func(mimeType string) bool
	NewRecorderFunc     func(stream *ports.MediaStream, opts ports.RecorderOptions, handlers ports.RecorderHandlers) (ports.Recorder, error)

	mu        sync.Mutex
	recorders []*Recorder
}

func (m *RecorderFactory) IsTypeSupported(mimeType string) bool {
	if m.IsTypeSupportedFunc != nil {
		return m.IsTypeSupportedFunc(mimeType)
	}
	return true
}

func (m *RecorderFactory) NewRecorder(stream *ports.MediaStream, opts ports.RecorderOptions, handlers ports.RecorderHandlers) (ports.Recorder, error) {
	if m.NewRecorderFunc != nil {
		return m.NewRecorderFunc(stream, opts, handlers)
	}
	rec := NewRecorder(stream, opts, handlers)
	m.mu.Lock()
	m.recorders = append(m.recorders, rec)
	m.mu.Unlock()
	return rec, nil
}

// Last returns the most recent recorder created by the default NewRecorder.
func (m *RecorderFactory) Last() *Recorder {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.recorders) == 0 {
		return nil
	}
	return m.recorders[len(m.recorders)-1]
}

// Recorder is a mock realtime encoder. By default Stop flushes FinalChunk and
// reports the stop asynchronously, like a browser MediaRecorder.
type Recorder struct {
	Stream     *ports.MediaStream
	Options    ports.RecorderOptions
	Handlers   ports.RecorderHandlers
	FinalChunk []byte

	StartFunc func(timeslice time.Duration) error
	StopFunc  func() error

	mu         sync.Mutex
	state      ports.RecorderState
	StopCalls  atomic.Int32
	StartCalls atomic.Int32
}

// NewRecorder creates a mock recorder with a one-byte final chunk.
func NewRecorder(stream *ports.MediaStream, opts ports.RecorderOptions, handlers ports.RecorderHandlers) *Recorder {
	return &Recorder{
		Stream:     stream,
		Options:    opts,
		Handlers:   handlers,
		FinalChunk: []byte{0x1A},
		state:      ports.RecorderInactive,
	}
}

func (m *Recorder) Start(timeslice time.Duration) error {
	m.StartCalls.Add(1)
	if m.StartFunc != nil {
		if err := m.StartFunc(timeslice); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.state = ports.RecorderRecording
	m.mu.Unlock()
	return nil
}

func (m *Recorder) Stop() error {
	m.StopCalls.Add(1)
	m.mu.Lock()
	m.state = ports.RecorderInactive
	m.mu.Unlock()
	if m.StopFunc != nil {
		return m.StopFunc()
	}
	go func() {
		if len(m.FinalChunk) > 0 && m.Handlers.OnData != nil {
			m.Handlers.OnData(m.FinalChunk)
		}
		if m.Handlers.OnStop != nil {
			m.Handlers.OnStop()
		}
	}()
	return nil
}

func (m *Recorder) State() ports.RecorderState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Emit delivers a data chunk as if the encoder flushed it.
func (m *Recorder) Emit(chunk []byte) {
	if m.Handlers.OnData != nil {
		m.Handlers.OnData(chunk)
	}
}

var (
	_ ports.Compositor      = (*Compositor)(nil)
	_ ports.Surface         = (*Surface)(nil)
	_ ports.MediaSource     = (*MediaSource)(nil)
	_ ports.Track           = (*Track)(nil)
	_ ports.RecorderFactory = (*RecorderFactory)(nil)
	_ ports.Recorder        = (*Recorder)(nil)
)

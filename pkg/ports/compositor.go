// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
	"time"
)

// Compositor abstracts the live composition being exported: a rendered
// surface kept in sync with an original media element.
type Compositor interface {
	// Surface returns the rendered visual output.
	Surface() Surface

	// Media returns the original media element (audio and playback clock).
	Media() MediaSource

	// Recorders returns the factory for realtime stream encoders.
	Recorders() RecorderFactory

	// Environment describes the runtime capabilities of the compositor host.
	Environment(ctx context.Context) (Environment, error)
}

// Environment describes what the compositor host can do.
type Environment struct {
	UserAgent      string // Runtime signature, e.g. a browser user agent
	ElementCapture bool   // A per-element realtime capture primitive exists
	Recorder       bool   // A realtime stream encoder exists
}

// TrackKind distinguishes media track types.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// Track is an acquired capture track. Stop releases the underlying device.
type Track interface {
	ID() string
	Kind() TrackKind
	Stop() error
}

// MediaStream is a set of live tracks recorded together.
type MediaStream struct {
	Tracks []Track
}

// NewMediaStream combines the given track sets into one stream.
func NewMediaStream(sets ...[]Track) *MediaStream {
	s := &MediaStream{}
	for _, set := range sets {
		s.Tracks = append(s.Tracks, set...)
	}
	return s
}

// VideoTracks returns the video tracks of the stream.
func (s *MediaStream) VideoTracks() []Track {
	return s.byKind(TrackVideo)
}

// AudioTracks returns the audio tracks of the stream.
func (s *MediaStream) AudioTracks() []Track {
	return s.byKind(TrackAudio)
}

func (s *MediaStream) byKind(kind TrackKind) []Track {
	var out []Track
	for _, t := range s.Tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// Surface abstracts the compositor's visual output.
type Surface interface {
	// CaptureStream starts a live capture of the surface at fps frames per second.
	CaptureStream(fps int) (*MediaStream, error)

	// Snapshot returns the current surface content as PNG data.
	Snapshot(ctx context.Context) ([]byte, error)
}

// AudioOutput is the audible state of a media element.
type AudioOutput struct {
	Muted  bool
	Volume float64
}

// MediaSource abstracts the original media element and its playback clock.
type MediaSource interface {
	// CaptureAudio acquires the audio tracks of the element.
	CaptureAudio() ([]Track, error)

	// AudioOutput returns the current audible state.
	AudioOutput() (AudioOutput, error)

	// SetAudioOutput changes the audible state.
	SetAudioOutput(out AudioOutput) error

	// Seek moves the playback position. Completion is signalled through OnSeeked.
	Seek(seconds float64) error

	// Play starts playback.
	Play() error

	// Pause stops playback.
	Pause() error

	// Position returns the current playback position in seconds.
	Position() (float64, error)

	// OnSeeked registers fn for position-settled notifications.
	// The returned function detaches the listener.
	OnSeeked(fn func()) (detach func())

	// OnPosition registers fn for playback-position updates.
	// The returned function detaches the listener.
	OnPosition(fn func(seconds float64)) (detach func())

	// SourceURL returns the location of the original media.
	SourceURL() string
}

// RecorderState mirrors the encoder lifecycle.
type RecorderState string

const (
	RecorderInactive  RecorderState = "inactive"
	RecorderRecording RecorderState = "recording"
)

// RecorderOptions configures a realtime encoder.
type RecorderOptions struct {
	MimeType           string
	VideoBitsPerSecond int
}

// RecorderHandlers receives encoder events. Handlers may be called from any
// goroutine and must not block.
type RecorderHandlers struct {
	OnData  func(chunk []byte)
	OnStop  func()
	OnError func(err error)
}

// RecorderFactory creates realtime encoders for live streams.
type RecorderFactory interface {
	// IsTypeSupported reports whether mimeType can be produced.
	IsTypeSupported(mimeType string) bool

	// NewRecorder creates an encoder bound to stream.
	NewRecorder(stream *MediaStream, opts RecorderOptions, handlers RecorderHandlers) (Recorder, error)
}

// Recorder is a realtime stream encoder producing chunked output.
type Recorder interface {
	// Start begins encoding, flushing a chunk every timeslice.
	Start(timeslice time.Duration) error

	// Stop ends encoding. The final chunk and the stop event follow asynchronously.
	Stop() error

	// State returns the encoder state.
	State() RecorderState
}

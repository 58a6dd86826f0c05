package pipeline

import (
	"fmt"
	"math"
	"time"
)

// =============================================================================
// Common Types
// =============================================================================

// MIME types of the artifacts produced by the stages.
const (
	MimeWebM = "video/webm"
	MimeMP4  = "video/mp4"
	MimePNG  = "image/png"
)

// ClipWindow is the [Start, End) interval of the source media, in seconds.
// The duration is always derived from the bounds.
type ClipWindow struct {
	Start float64
	End   float64
}

// NewClipWindow validates and returns a clip window.
func NewClipWindow(start, end float64) (ClipWindow, error) {
	w := ClipWindow{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return ClipWindow{}, err
	}
	return w, nil
}

// Validate reports ErrInvalidWindow unless 0 <= Start < End.
func (w ClipWindow) Validate() error {
	if math.IsNaN(w.Start) || math.IsNaN(w.End) || math.IsInf(w.End, 0) {
		return fmt.Errorf("%w: [%v, %v)", ErrInvalidWindow, w.Start, w.End)
	}
	if w.Start < 0 || w.End <= w.Start {
		return fmt.Errorf("%w: [%v, %v)", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

// Duration returns the window length in seconds.
func (w ClipWindow) Duration() float64 {
	return w.End - w.Start
}

// DurationTime returns the window length as a time.Duration.
func (w ClipWindow) DurationTime() time.Duration {
	return time.Duration(w.Duration() * float64(time.Second))
}

// Midpoint returns the position halfway through the window.
func (w ClipWindow) Midpoint() float64 {
	return w.Start + w.Duration()/2
}

// String formats the window for logs.
func (w ClipWindow) String() string {
	return fmt.Sprintf("[%.2fs, %.2fs)", w.Start, w.End)
}

// Artifact is an encoded video returned to the caller.
// Duration and dimensions are filled in when the container could be probed.
type Artifact struct {
	Data       []byte
	MimeType   string
	DurationMs int
	Width      int
	Height     int
}

// Size returns the artifact size in bytes.
func (a Artifact) Size() int64 {
	return int64(len(a.Data))
}

// SizeMB returns the artifact size in megabytes for log output.
func (a Artifact) SizeMB() float64 {
	return float64(len(a.Data)) / 1024 / 1024
}

// Hooks carries the caller callbacks threaded through every stage.
type Hooks struct {
	Progress ProgressFunc
	Cancel   CancelCheck
}

// =============================================================================
// Record Stage Types
// =============================================================================

// RecordInput contains parameters for realtime capture.
type RecordInput struct {
	Window             ClipWindow
	FPS                int           // Surface capture rate
	VideoBitsPerSecond int           // Encoder bitrate ceiling
	FlushInterval      time.Duration // Recorder timeslice
	StopMargin         time.Duration // Added to the window duration for the fallback timer
	TickInterval       time.Duration // Progress estimator and cancellation poll period
	SeekTimeout        time.Duration // Maximum wait for the seek to settle
	StopTimeout        time.Duration // Maximum wait for the recorder to finalize
	MimePreferences    []string      // Ordered container/codec preferences
	Hooks              Hooks
}

// DefaultMimePreferences lists the recorder formats in order of preference:
// low-complexity codecs first, then a generic container.
func DefaultMimePreferences() []string {
	return []string{
		"video/webm;codecs=vp8,opus",
		"video/webm;codecs=vp9,opus",
		"video/webm",
	}
}

// DefaultRecordInput returns RecordInput with default values.
func DefaultRecordInput() RecordInput {
	return RecordInput{
		FPS:                30,
		VideoBitsPerSecond: 5_000_000,
		FlushInterval:      500 * time.Millisecond,
		StopMargin:         500 * time.Millisecond,
		TickInterval:       time.Second,
		SeekTimeout:        10 * time.Second,
		StopTimeout:        10 * time.Second,
		MimePreferences:    DefaultMimePreferences(),
	}
}

// StopReason records which trigger ended a recording.
type StopReason string

const (
	StopByPosition StopReason = "position"
	StopByTimer    StopReason = "timer"
	StopByCancel   StopReason = "cancel"
	StopByRecorder StopReason = "recorder"
)

// RecordResult contains the capture output.
type RecordResult struct {
	Artifact      Artifact
	ChunkCount    int
	AudioCaptured bool
	StoppedBy     StopReason
	Elapsed       time.Duration
}

// =============================================================================
// Transcode Stage Types
// =============================================================================

// TranscodeInput contains parameters for the software-transcode export.
type TranscodeInput struct {
	Window ClipWindow
	Hooks  Hooks
}

// TranscodeResult contains the transcoded clip.
type TranscodeResult struct {
	Artifact Artifact
}

// ExtractInput contains parameters for a vertical extraction without overlay.
type ExtractInput struct {
	SourceURL string
	Window    ClipWindow
	Hooks     Hooks
}

// ExtractResult contains the extracted clip.
type ExtractResult struct {
	Artifact Artifact
}

// =============================================================================
// Convert Stage Types
// =============================================================================

// ConvertInput contains the artifact to convert to MP4.
type ConvertInput struct {
	Artifact Artifact
	Hooks    Hooks
}

// ConvertResult contains the converted artifact.
type ConvertResult struct {
	Artifact Artifact
	Elapsed  time.Duration
}

package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWindow is returned for a clip window with End <= Start or a negative Start.
	ErrInvalidWindow = errors.New("pipeline: invalid clip window")

	// ErrUnsupportedEnvironment is returned by the capture path when realtime
	// capture cannot run here. Callers switch to the transcode strategy.
	ErrUnsupportedEnvironment = errors.New("pipeline: realtime capture not supported in this environment")

	// ErrCancelled is returned when the caller aborted the export.
	ErrCancelled = errors.New("pipeline: export cancelled")
)

// DeviceCaptureError reports a failure to acquire a capture device or track.
type DeviceCaptureError struct {
	Device string
	Err    error
}

func (e *DeviceCaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Device, e.Err)
}

func (e *DeviceCaptureError) Unwrap() error {
	return e.Err
}

// EncodingError reports an encoder failure during recording or a transcode job.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding failed during %s: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// RemoteServiceError reports a non-2xx answer from the remote conversion service.
// Message holds the server-provided text when there was one.
type RemoteServiceError struct {
	StatusCode int
	Message    string
}

func (e *RemoteServiceError) Error() string {
	return e.Message
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

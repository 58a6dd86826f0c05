package engine

import "errors"

var (
	// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
	ErrFFmpegNotFound = errors.New("engine: ffmpeg not found")

	// ErrMissingEncoder is returned when the binary lacks a required encoder.
	ErrMissingEncoder = errors.New("engine: required encoder not available")

	// ErrExecFailed is returned when an engine run exits with an error.
	ErrExecFailed = errors.New("engine: execution failed")

	// ErrJobClosed is returned when a job is used after Close.
	ErrJobClosed = errors.New("engine: job closed")
)

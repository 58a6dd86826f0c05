package ports

import (
	"context"
)

// TranscodeEngine abstracts a loaded software transcoding engine.
type TranscodeEngine interface {
	// NewJob creates a job with its own sandboxed file store.
	NewJob() (TranscodeJob, error)

	// Version returns the engine version string.
	Version() string
}

// TranscodeJob executes declarative pipelines against a private virtual file store.
type TranscodeJob interface {
	// WriteFile stores data under name in the job's store.
	WriteFile(name string, data []byte) error

	// ReadFile returns the content stored under name.
	ReadFile(name string) ([]byte, error)

	// DeleteFile removes name from the store.
	DeleteFile(name string) error

	// Exec runs the engine with argv-like arguments referring to store names.
	Exec(ctx context.Context, args []string) error

	// Close releases the store and everything left in it.
	Close() error
}

// EngineProvider hands out the shared engine, loading it on first use.
type EngineProvider interface {
	Acquire(ctx context.Context) (TranscodeEngine, error)
}

// SourceFetcher retrieves the original media bytes.
type SourceFetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

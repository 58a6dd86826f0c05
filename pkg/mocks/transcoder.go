package mocks

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/user/clipforge/pkg/ports"
)

// TranscodeEngine is an in-memory ports.TranscodeEngine. Every job it hands
// out shares ExecFunc and is recorded for inspection.
type TranscodeEngine struct {
	ExecFunc    func(ctx context.Context, job *TranscodeJob, args []string) error
	NewJobFunc  func() (ports.TranscodeJob, error)
	VersionText string

	mu   sync.Mutex
	jobs []*TranscodeJob
}

func (m *TranscodeEngine) NewJob() (ports.TranscodeJob, error) {
	if m.NewJobFunc != nil {
		return m.NewJobFunc()
	}
	j := &TranscodeJob{engine: m, files: make(map[string][]byte)}
	m.mu.Lock()
	m.jobs = append(m.jobs, j)
	m.mu.Unlock()
	return j, nil
}

func (m *TranscodeEngine) Version() string {
	if m.VersionText == "" {
		return "mock"
	}
	return m.VersionText
}

// Jobs returns the jobs created so far.
func (m *TranscodeEngine) Jobs() []*TranscodeJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*TranscodeJob(nil), m.jobs...)
}

// TranscodeJob is an in-memory ports.TranscodeJob.
type TranscodeJob struct {
	engine *TranscodeEngine

	mu     sync.Mutex
	files  map[string][]byte
	args   [][]string
	closed bool
}

func (j *TranscodeJob) WriteFile(name string, data []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.files[name] = data
	return nil
}

func (j *TranscodeJob) ReadFile(name string) ([]byte, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	data, ok := j.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return data, nil
}

func (j *TranscodeJob) DeleteFile(name string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.files[name]; !ok {
		return fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	delete(j.files, name)
	return nil
}

// Exec records args and runs the engine's ExecFunc. Without one it writes
// a placeholder to the last argument, the output name.
func (j *TranscodeJob) Exec(ctx context.Context, args []string) error {
	j.mu.Lock()
	j.args = append(j.args, append([]string(nil), args...))
	j.mu.Unlock()
	if j.engine.ExecFunc != nil {
		return j.engine.ExecFunc(ctx, j, args)
	}
	if len(args) > 0 {
		return j.WriteFile(args[len(args)-1], []byte("output"))
	}
	return nil
}

func (j *TranscodeJob) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}

// Files returns the names left in the store, sorted.
func (j *TranscodeJob) Files() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	names := make([]string, 0, len(j.files))
	for name := range j.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Args returns the argument lists passed to Exec.
func (j *TranscodeJob) Args() [][]string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([][]string(nil), j.args...)
}

// Closed reports whether Close was called.
func (j *TranscodeJob) Closed() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closed
}

// EngineProvider is a mock implementation of ports.EngineProvider.
type EngineProvider struct {
	Engine      ports.TranscodeEngine
	AcquireFunc func(ctx context.Context) (ports.TranscodeEngine, error)
}

func (m *EngineProvider) Acquire(ctx context.Context) (ports.TranscodeEngine, error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx)
	}
	return m.Engine, nil
}

// SourceFetcher is a mock implementation of ports.SourceFetcher.
type SourceFetcher struct {
	FetchFunc func(ctx context.Context, location string) ([]byte, error)
	Data      []byte
}

func (m *SourceFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, location)
	}
	return m.Data, nil
}

var (
	_ ports.TranscodeEngine = (*TranscodeEngine)(nil)
	_ ports.TranscodeJob    = (*TranscodeJob)(nil)
	_ ports.EngineProvider  = (*EngineProvider)(nil)
	_ ports.SourceFetcher   = (*SourceFetcher)(nil)
)

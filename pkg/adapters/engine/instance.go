package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/clipforge/pkg/adapters/logger"
	"github.com/user/clipforge/pkg/metrics"
	"github.com/user/clipforge/pkg/ports"
)

// State is the load state of an Instance.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Loader produces a ready engine. It runs at most once per load attempt.
type Loader func(ctx context.Context) (ports.TranscodeEngine, error)

// Options configures the default loader.
type Options struct {
	FFmpegPath string // Explicit binary; empty searches FFMPEG_PATH, PATH and common locations
	WorkDir    string // Parent directory of job stores; empty uses os.TempDir
	Logger     ports.Logger
}

// attempt is one in-flight load shared by every caller that arrives while it runs.
type attempt struct {
	done   chan struct{}
	engine ports.TranscodeEngine
	err    error
}

// Instance lazily loads the engine on first Acquire and caches it.
// A failed load returns the instance to StateUnloaded so that the next
// Acquire retries.
type Instance struct {
	load   Loader
	logger ports.Logger

	mu      sync.Mutex
	state   State
	engine  ports.TranscodeEngine
	current *attempt
}

// NewInstance creates an Instance that loads the local ffmpeg installation.
func NewInstance(opts Options) *Instance {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	log = log.WithComponent("engine")
	return &Instance{
		load: func(ctx context.Context) (ports.TranscodeEngine, error) {
			return Load(ctx, opts.FFmpegPath, opts.WorkDir, log)
		},
		logger: log,
	}
}

// NewInstanceWithLoader creates an Instance around a custom loader.
func NewInstanceWithLoader(load Loader, log ports.Logger) *Instance {
	if log == nil {
		log = logger.NewNoop()
	}
	return &Instance{load: load, logger: log.WithComponent("engine")}
}

// State returns the current load state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Acquire returns the loaded engine, loading it if needed. Callers arriving
// during a load wait for it and receive the same engine or the same error.
// A cancelled ctx stops the wait, not the load.
func (i *Instance) Acquire(ctx context.Context) (ports.TranscodeEngine, error) {
	i.mu.Lock()
	switch i.state {
	case StateReady:
		eng := i.engine
		i.mu.Unlock()
		return eng, nil
	case StateUnloaded:
		a := &attempt{done: make(chan struct{})}
		i.current = a
		i.state = StateLoading
		i.logger.Debug("Engine state %s -> %s", StateUnloaded, StateLoading)
		go i.run(context.WithoutCancel(ctx), a)
	}
	a := i.current
	i.mu.Unlock()

	select {
	case <-a.done:
		return a.engine, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (i *Instance) run(ctx context.Context, a *attempt) {
	eng, err := i.load(ctx)

	i.mu.Lock()
	if err != nil {
		a.err = fmt.Errorf("engine load: %w", err)
		i.state = StateUnloaded
		metrics.EngineLoadsTotal.WithLabelValues(metrics.StatusError).Inc()
		i.logger.Warn("Engine load failed: %v", err)
	} else {
		a.engine = eng
		i.engine = eng
		i.state = StateReady
		metrics.EngineLoadsTotal.WithLabelValues(metrics.StatusOK).Inc()
		i.logger.Info("Engine ready (ffmpeg %s)", eng.Version())
	}
	i.current = nil
	i.mu.Unlock()

	close(a.done)
}

var _ ports.EngineProvider = (*Instance)(nil)

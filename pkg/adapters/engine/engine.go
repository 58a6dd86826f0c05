// Package engine loads the ffmpeg transcoding engine once per Instance and
// runs jobs against per-job virtual file stores.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/user/clipforge/pkg/adapters/vfs"
	"github.com/user/clipforge/pkg/ports"
)

// maxStderrTail bounds the ffmpeg output kept in error messages.
const maxStderrTail = 4096

// Engine is a loaded ffmpeg installation.
type Engine struct {
	ffmpegPath  string
	ffprobePath string
	version     string
	workDir     string
	logger      ports.Logger
}

// FFmpegPath returns the resolved ffmpeg binary.
func (e *Engine) FFmpegPath() string {
	return e.ffmpegPath
}

// FFprobePath returns the resolved ffprobe binary, or "" when absent.
func (e *Engine) FFprobePath() string {
	return e.ffprobePath
}

// Version returns the ffmpeg version string.
func (e *Engine) Version() string {
	return e.version
}

// NewJob creates a job with its own store under the engine's work directory.
func (e *Engine) NewJob() (ports.TranscodeJob, error) {
	root := e.workDir
	if root == "" {
		root = os.TempDir()
	}
	store, err := vfs.New(root)
	if err != nil {
		return nil, fmt.Errorf("engine: new job: %w", err)
	}
	e.logger.Debug("Job store %s created", store.ID())
	return &Job{engine: e, store: store}, nil
}

// Job runs ffmpeg inside a private store directory. Arguments refer to
// store names, which resolve relative to that directory.
type Job struct {
	engine *Engine
	store  *vfs.Store

	mu     sync.Mutex
	closed bool
}

// WriteFile stores data under name.
func (j *Job) WriteFile(name string, data []byte) error {
	return j.store.WriteFile(name, data)
}

// ReadFile returns the content stored under name.
func (j *Job) ReadFile(name string) ([]byte, error) {
	return j.store.ReadFile(name)
}

// DeleteFile removes name from the store.
func (j *Job) DeleteFile(name string) error {
	return j.store.DeleteFile(name)
}

// Exec runs ffmpeg with args. Output files are overwritten.
func (j *Job) Exec(ctx context.Context, args []string) error {
	j.mu.Lock()
	closed := j.closed
	j.mu.Unlock()
	if closed {
		return ErrJobClosed
	}

	fullArgs := append([]string{"-hide_banner", "-nostdin", "-y"}, args...)
	j.engine.logger.Debug("ffmpeg %s", strings.Join(fullArgs, " "))

	cmd := exec.CommandContext(ctx, j.engine.ffmpegPath, fullArgs...)
	cmd.Dir = j.store.Dir()
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrExecFailed, ctxErr)
		}
		return fmt.Errorf("%w: %v\nstderr: %s", ErrExecFailed, err, tail(stderr.String(), maxStderrTail))
	}
	return nil
}

// Close removes the store and everything left in it. Close is idempotent.
func (j *Job) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.store.Close(); err != nil && !errors.Is(err, vfs.ErrClosed) {
		return err
	}
	return nil
}

// Dir returns the store directory of the job.
func (j *Job) Dir() string {
	return j.store.Dir()
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

var (
	_ ports.TranscodeEngine = (*Engine)(nil)
	_ ports.TranscodeJob    = (*Job)(nil)
)
